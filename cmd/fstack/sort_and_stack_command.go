package main

import (
	"github.com/spf13/cobra"

	"fstack/internal/config"
)

func newSortAndStackCommand(ctx *commandContext) *cobra.Command {
	var targetFlag string
	var gapFlag float64
	var flags stackFlags

	cmd := &cobra.Command{
		Use:   "sort-and-stack <source>",
		Short: "Sort captures into stacks, then run the engine over them",
		Args:  cobra.ExactArgs(1),
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

			summary, err := runStack(cmd, ctx, cfg, &flags, target)
			if err != nil {
				return err
			}
			printStackSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetFlag, "target", "", "Directory to create stack directories in (default: the source)")
	cmd.Flags().Float64Var(&gapFlag, "gap", 0, "Maximum capture gap in seconds for two shots to share a stack")
	flags.register(cmd)
	return cmd
}
