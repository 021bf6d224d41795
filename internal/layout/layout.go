package layout

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fstack/internal/fileutil"
	"fstack/internal/logging"
	"fstack/internal/services"
	"fstack/internal/stacker"
)

// MoveFailure records one file that could not be relocated.
type MoveFailure struct {
	Path string
	Err  error
}

// Report summarizes a layout pass. Failures never abort the pass; the
// remaining moves proceed and the on-disk result is ground truth afterwards.
type Report struct {
	StackDirs     []string
	FilesMoved    int
	SidecarsMoved int
	Failures      []MoveFailure
}

// Layout relocates stack members into per-stack directories. Moves are
// destructive: files leave the source tree.
type Layout struct {
	logger *slog.Logger
}

// New constructs a layout runner.
func New(logger *slog.Logger) *Layout {
	return &Layout{logger: logging.WithComponent(logger, "layout")}
}

// Apply creates one directory per stack under targetRoot and moves each
// member file and its sidecar in. A move that fails for one file is recorded
// and the rest proceed; only a failure to create targetRoot or a stack
// directory itself is returned as an error.
func (l *Layout) Apply(stacks []stacker.Stack, targetRoot string) (Report, error) {
	var report Report
	if len(stacks) == 0 {
		return report, nil
	}
	if err := os.MkdirAll(targetRoot, 0o755); err != nil {
		return report, services.Wrap(services.ErrFilesystem, "layout", "create target root", targetRoot, err)
	}

	for _, stack := range stacks {
		dir := filepath.Join(targetRoot, stack.DirectoryName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report, services.Wrap(services.ErrFilesystem, "layout", "create stack directory", dir, err)
		}
		report.StackDirs = append(report.StackDirs, dir)

		for _, member := range stack.Members {
			if err := l.moveInto(member.Path, dir); err != nil {
				report.Failures = append(report.Failures, MoveFailure{Path: member.Path, Err: err})
				l.logger.Warn("move failed, continuing",
					logging.Args(logging.String("file", member.Path), logging.Error(err))...)
				continue
			}
			report.FilesMoved++

			if member.SidecarPath == "" {
				continue
			}
			if err := l.moveInto(member.SidecarPath, dir); err != nil {
				report.Failures = append(report.Failures, MoveFailure{Path: member.SidecarPath, Err: err})
				l.logger.Warn("sidecar move failed, continuing",
					logging.Args(logging.String("file", member.SidecarPath), logging.Error(err))...)
				continue
			}
			report.SidecarsMoved++
		}

		l.logger.Info("stack laid out",
			logging.Args(
				logging.String(logging.FieldStack, stack.DirectoryName),
				logging.Int("members", len(stack.Members)),
			)...)
	}

	return report, nil
}

func (l *Layout) moveInto(path, dir string) error {
	dst := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}
	return fileutil.MoveFile(path, dst)
}
