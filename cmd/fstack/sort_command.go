package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fstack/internal/config"
	"fstack/internal/layout"
	"fstack/internal/metadata"
	"fstack/internal/scan"
	"fstack/internal/stacker"
)

func newSortCommand(ctx *commandContext) *cobra.Command {
	var targetFlag string
	var gapFlag float64

	cmd := &cobra.Command{
		Use:   "sort <source>",
		Short: "Group bracketed captures into stack directories",
		Long: `Sort scans a directory of captures, groups temporally adjacent shots into
stacks using the capture-time gap, and moves each stack's files into its own
numbered directory. Singles stay where they are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			target := source
			if targetFlag != "" {
				if target, err = config.ExpandPath(targetFlag); err != nil {
					return err
				}
			}
			gap := cfg.Sorter.GapSeconds
			if cmd.Flags().Changed("gap") {
				gap = gapFlag
			}

			result, report, err := runSort(cmd, ctx, cfg, source, target, gap)
			if err != nil {
				return err
			}
			printSortSummary(cmd, result, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetFlag, "target", "", "Directory to create stack directories in (default: the source)")
	cmd.Flags().Float64Var(&gapFlag, "gap", 0, "Maximum capture gap in seconds for two shots to share a stack")
	return cmd
}

func runSort(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, source, target string, gap float64) (stacker.Result, layout.Report, error) {
	logger := ctx.buildLogger()

	scanner := scan.New(metadata.EXIFReader{}, cfg.Sorter.ExifWorkers, logger)
	snapshot, err := scanner.Scan(cmd.Context(), source)
	if err != nil {
		return stacker.Result{}, layout.Report{}, err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d image(s)%s, %d sidecar(s), %d without capture time\n",
		snapshot.TotalImages(), formatInventory(snapshot.FormatCounts), snapshot.SidecarCount, snapshot.MissingMetadata)

	result, err := stacker.Group(snapshot.Entries, stacker.Options{
		GapSeconds:   gap,
		MinStackSize: cfg.Sorter.MinStackSize,
		NameFormat:   cfg.Sorter.StackNameFormat,
	})
	if err != nil {
		return stacker.Result{}, layout.Report{}, err
	}

	report, err := layout.New(logger).Apply(result.Stacks, target)
	if err != nil {
		return stacker.Result{}, layout.Report{}, err
	}
	return result, report, nil
}

// formatInventory renders per-extension counts like " (.orf: 12, .jpg: 3)".
func formatInventory(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	exts := make([]string, 0, len(counts))
	for ext := range counts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		parts = append(parts, fmt.Sprintf("%s: %d", ext, counts[ext]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func printSortSummary(cmd *cobra.Command, result stacker.Result, report layout.Report) {
	out := cmd.OutOrStdout()

	if len(result.Stacks) > 0 {
		rows := make([][]string, 0, len(result.Stacks))
		for _, stack := range result.Stacks {
			first := stack.Members[0]
			rows = append(rows, []string{
				stack.DirectoryName,
				strconv.Itoa(len(stack.Members)),
				first.CaptureTime.Format("2006-01-02 15:04:05"),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Stack", "Images", "First capture"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft},
		))
	}

	fmt.Fprintf(out, "%d stack(s), %d single(s), %d file(s) moved, %d sidecar(s) moved\n",
		len(result.Stacks), len(result.Singles), report.FilesMoved, report.SidecarsMoved)
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "move failed: %s: %v\n", failure.Path, failure.Err)
	}
}
