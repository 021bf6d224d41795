package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"fstack/internal/catalog"
	"fstack/internal/config"
	"fstack/internal/media"
	"fstack/internal/state"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <dir>",
		Short: "Show per-stack processing state and recent imports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if err := printStackStatus(cmd, ctx, root); err != nil {
				return err
			}
			return printImportStatus(cmd, root)
		},
	}
	return cmd
}

func printStackStatus(cmd *cobra.Command, ctx *commandContext, root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read %s: %w", root, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if isStackDir(dir) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No stack directories under %s\n", root)
		return nil
	}

	headers := []string{"Stack", "Images"}
	for _, method := range state.EvaluationOrder() {
		headers = append(headers, string(method))
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(root, name)
		store, err := state.Open(dir, ctx.buildLogger())
		if err != nil {
			rows = append(rows, []string{name, "", "error: " + err.Error()})
			continue
		}
		row := []string{name, fmt.Sprintf("%d", countImages(dir))}
		for _, method := range state.EvaluationOrder() {
			row = append(row, colorStatus(store.Status(method)))
		}
		rows = append(rows, row)
	}

	aligns := make([]columnAlignment, len(headers))
	aligns[1] = alignRight
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
	return nil
}

// printImportStatus lists recent import runs when the directory holds a
// catalog database. Quiet otherwise: not every tree is a library.
func printImportStatus(cmd *cobra.Command, root string) error {
	dbPath := filepath.Join(root, catalog.FileName)
	if _, err := os.Stat(dbPath); err != nil {
		return nil
	}

	cat, err := catalog.Open(root)
	if err != nil {
		return err
	}
	defer func() { _ = cat.Close() }()

	runs, err := cat.RecentRuns(cmd.Context(), 5)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		completed := "in progress"
		if !run.CompletedAt.IsZero() {
			completed = run.CompletedAt.Local().Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			run.SourceDir,
			completed,
			fmt.Sprintf("%d", run.FilesImported),
			fmt.Sprintf("%d", run.FilesSkipped),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Import source", "Completed", "Imported", "Skipped"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func isStackDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, state.FileName)); err == nil {
		return true
	}
	return countImages(dir) >= 2
}

func countImages(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && media.IsImage(entry.Name()) {
			n++
		}
	}
	return n
}
