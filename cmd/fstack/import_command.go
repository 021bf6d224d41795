package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fstack/internal/catalog"
	"fstack/internal/config"
	"fstack/internal/importer"
	"fstack/internal/metadata"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var destFlag string

	cmd := &cobra.Command{
		Use:   "import <source>",
		Short: "Copy images from a card into the library, organized by capture date",
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
			dest := cfg.Paths.LibraryDir
			if destFlag != "" {
				if dest, err = config.ExpandPath(destFlag); err != nil {
					return err
				}
			}

			cat, err := catalog.Open(dest)
			if err != nil {
				return err
			}
			defer func() { _ = cat.Close() }()

			imp := importer.New(metadata.EXIFReader{}, cat, importer.Options{
				DateFormat:   cfg.Import.DateFormat,
				Workers:      cfg.Import.Workers,
				SkipExisting: cfg.Import.SkipExisting,
				CopySidecars: cfg.Import.CopySidecars,
			}, ctx.buildLogger())

			report, err := imp.Import(cmd.Context(), source, dest)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d file(s) and %d sidecar(s) into %s, skipped %d already present\n",
				report.Imported, report.Sidecars, dest, report.Skipped)
			for _, failure := range report.Failures {
				fmt.Fprintf(out, "import failed: %s: %v\n", failure.SourcePath, failure.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&destFlag, "dest", "", "Library directory to import into (default: paths.library_dir)")
	return cmd
}
