package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fstack/internal/config"
	"fstack/internal/engine"
	"fstack/internal/orchestrator"
	"fstack/internal/state"
)

type stackFlags struct {
	output       string
	radius       int
	smoothing    int
	jpegQuality  int
	outputFormat string
	methods      string
	noAB         bool
	force        bool
}

func (f *stackFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.output, "output", "", "Per-stack output directory name (default: stacked)")
	cmd.Flags().IntVar(&f.radius, "radius", 0, "Engine radius parameter")
	cmd.Flags().IntVar(&f.smoothing, "smoothing", 0, "Engine smoothing parameter")
	cmd.Flags().IntVar(&f.jpegQuality, "jpeg-quality", 0, "JPEG quality when the output format is jpg")
	cmd.Flags().StringVar(&f.outputFormat, "output-format", "", "Artifact format (dng, tif or jpg)")
	cmd.Flags().StringVar(&f.methods, "methods", "", "Comma-separated methods to run (A,B,C)")
	cmd.Flags().BoolVar(&f.noAB, "no-ab", false, "Skip the AB combination pass")
	cmd.Flags().BoolVar(&f.force, "force", false, "Re-run methods already recorded done")
}

// orchestratorOptions merges configuration with command-line overrides.
func (f *stackFlags) orchestratorOptions(cmd *cobra.Command, cfg *config.Config) (orchestrator.Options, error) {
	params := engine.Params{
		Radius:       cfg.Engine.Radius,
		Smoothing:    cfg.Engine.Smoothing,
		JPEGQuality:  cfg.Engine.JPEGQuality,
		OutputFormat: cfg.Engine.OutputFormat,
	}
	if cmd.Flags().Changed("radius") {
		params.Radius = f.radius
	}
	if cmd.Flags().Changed("smoothing") {
		params.Smoothing = f.smoothing
	}
	if cmd.Flags().Changed("jpeg-quality") {
		params.JPEGQuality = f.jpegQuality
	}
	if f.outputFormat != "" {
		params.OutputFormat = strings.ToLower(f.outputFormat)
	}

	methodNames := cfg.Engine.Methods
	if f.methods != "" {
		methodNames = strings.Split(f.methods, ",")
	}
	methods, err := parseMethods(methodNames)
	if err != nil {
		return orchestrator.Options{}, err
	}

	combineAB := cfg.Engine.CombineAB
	if f.noAB {
		combineAB = false
	}

	return orchestrator.Options{
		Methods:          methods,
		CombineAB:        combineAB,
		Force:            f.force,
		Params:           params,
		OutputDirName:    f.output,
		StackNamePattern: cfg.Sorter.StackNameFormat,
	}, nil
}

// parseMethods validates the base method names and returns them in evaluation
// order regardless of input order.
func parseMethods(names []string) ([]state.Method, error) {
	enabled := make(map[state.Method]bool, len(names))
	for _, name := range names {
		trimmed := strings.ToUpper(strings.TrimSpace(name))
		if trimmed == "" {
			continue
		}
		method, ok := state.ParseMethod(trimmed)
		if !ok || method == state.MethodAB {
			return nil, fmt.Errorf("unknown method %q (valid: A, B, C)", name)
		}
		enabled[method] = true
	}
	var methods []state.Method
	for _, method := range state.EvaluationOrder() {
		if enabled[method] {
			methods = append(methods, method)
		}
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no methods enabled")
	}
	return methods, nil
}

func newStackCommand(ctx *commandContext) *cobra.Command {
	var flags stackFlags

	cmd := &cobra.Command{
		Use:   "stack <dir>",
		Short: "Run the compositing engine over every stack directory",
		Long: `Stack processes each stack directory under the given root, driving the
external compositing engine once per enabled method. Completed methods are
recorded in each stack's state file and skipped on later runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			summary, err := runStack(cmd, ctx, cfg, &flags, root)
			if err != nil {
				return err
			}
			printStackSummary(cmd, summary)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func runStack(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, flags *stackFlags, root string) (orchestrator.Summary, error) {
	opts, err := flags.orchestratorOptions(cmd, cfg)
	if err != nil {
		return orchestrator.Summary{}, err
	}
	client, err := ctx.engineClient(cfg)
	if err != nil {
		return orchestrator.Summary{}, err
	}
	orch := orchestrator.New(client, opts, ctx.buildLogger())
	return orch.ProcessRoot(cmd.Context(), root)
}

func printStackSummary(cmd *cobra.Command, summary orchestrator.Summary) {
	out := cmd.OutOrStdout()

	if summary.TotalStacks() == 0 {
		fmt.Fprintln(out, "No stacks to process")
		return
	}

	rows := make([][]string, 0, summary.TotalStacks())
	for _, result := range summary.Stacks {
		if result.Err != nil {
			rows = append(rows, []string{stackLabel(result.Dir), "", "error: " + result.Err.Error()})
			continue
		}
		for _, outcome := range result.Outcomes {
			detail := colorStatus(outcome.Status)
			if outcome.SkippedResume {
				detail += " (resumed)"
			}
			if outcome.Reason != "" {
				detail += ": " + outcome.Reason
			}
			rows = append(rows, []string{stackLabel(result.Dir), string(outcome.Method), detail})
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stack", "Method", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft},
	))

	fmt.Fprintf(out, "%s stack(s): %d completed, %d partial, %d failed, %d skip(s) from earlier runs\n",
		strconv.Itoa(summary.TotalStacks()),
		summary.StacksCompleted, summary.StacksPartial, summary.StacksFailed, summary.ResumeSkips)
}
