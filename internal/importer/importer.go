package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"fstack/internal/catalog"
	"fstack/internal/fileutil"
	"fstack/internal/logging"
	"fstack/internal/media"
	"fstack/internal/metadata"
	"fstack/internal/services"
)

// Options configures an import run.
type Options struct {
	// DateFormat is the time layout for the per-day directory under the
	// year directory.
	DateFormat string
	// Workers bounds the copy worker pool.
	Workers int
	// SkipExisting leaves files alone when the destination already exists on
	// disk or in the catalog.
	SkipExisting bool
	// CopySidecars brings XMP sidecars along with their images.
	CopySidecars bool
}

// Failure records one file that could not be imported.
type Failure struct {
	SourcePath string
	Err        error
}

// Report summarizes an import run.
type Report struct {
	RunID    string
	Imported int
	Skipped  int
	Sidecars int
	Failures []Failure
}

// UndatedDirName holds images whose capture time could not be read.
const UndatedDirName = "undated"

// Importer copies images from a card or staging directory into the library,
// organized by capture date. Source files are never modified or removed.
type Importer struct {
	reader metadata.Reader
	cat    *catalog.Catalog
	opts   Options
	logger *slog.Logger
}

// New constructs an importer. cat may be nil, in which case no import history
// is recorded and skip decisions rely on the destination tree alone.
func New(reader metadata.Reader, cat *catalog.Catalog, opts Options, logger *slog.Logger) *Importer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.DateFormat == "" {
		opts.DateFormat = "2006-01-02"
	}
	return &Importer{
		reader: reader,
		cat:    cat,
		opts:   opts,
		logger: logging.WithComponent(logger, "importer"),
	}
}

type job struct {
	sourcePath string
}

type jobResult struct {
	sourcePath string
	destPath   string
	sidecar    bool
	skipped    bool
	size       int64
	capture    time.Time
	err        error
}

// Import copies every image under sourceDir into libraryDir. The returned
// error is reserved for conditions that stop the whole run; per-file failures
// are collected in the report.
func (i *Importer) Import(ctx context.Context, sourceDir, libraryDir string) (Report, error) {
	var report Report

	sources, err := collectImages(sourceDir)
	if err != nil {
		return report, err
	}
	if len(sources) == 0 {
		i.logger.Info("nothing to import", logging.Args(logging.String("source", sourceDir))...)
		return report, nil
	}

	if i.cat != nil {
		runID, err := i.cat.BeginRun(ctx, sourceDir)
		if err != nil {
			return report, err
		}
		report.RunID = runID
	}

	jobs := make(chan job)
	results := make(chan jobResult)

	var wg sync.WaitGroup
	for w := 0; w < i.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				for _, res := range i.importOne(ctx, j.sourcePath, libraryDir) {
					results <- res
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, src := range sources {
			select {
			case jobs <- job{sourcePath: src}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		switch {
		case res.err != nil:
			report.Failures = append(report.Failures, Failure{SourcePath: res.sourcePath, Err: res.err})
			i.logger.Warn("import failed",
				logging.Args(logging.String("source", res.sourcePath), logging.Error(res.err))...)
		case res.skipped:
			report.Skipped++
		case res.sidecar:
			report.Sidecars++
		default:
			report.Imported++
			if i.cat != nil && report.RunID != "" {
				recordErr := i.cat.RecordFile(ctx, report.RunID, catalog.ImportedFile{
					SourcePath:  res.sourcePath,
					DestPath:    res.destPath,
					CaptureTime: res.capture,
					SizeBytes:   res.size,
				})
				if recordErr != nil {
					i.logger.Warn("catalog record failed",
						logging.Args(logging.String("dest", res.destPath), logging.Error(recordErr))...)
				}
			}
		}
	}

	if i.cat != nil && report.RunID != "" {
		if err := i.cat.FinishRun(ctx, report.RunID, report.Imported, report.Skipped); err != nil {
			i.logger.Warn("catalog finish failed", logging.Args(logging.Error(err))...)
		}
	}

	i.logger.Info("import finished", logging.Args(
		logging.Int("imported", report.Imported),
		logging.Int("skipped", report.Skipped),
		logging.Int("sidecars", report.Sidecars),
		logging.Int("failed", len(report.Failures)))...)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// importOne copies a single image, and its sidecar when configured, into the
// date directory derived from the image's capture time.
func (i *Importer) importOne(ctx context.Context, sourcePath, libraryDir string) []jobResult {
	if err := ctx.Err(); err != nil {
		return []jobResult{{sourcePath: sourcePath, err: err}}
	}

	capture, hasTime := i.reader.CaptureTime(sourcePath)
	destDir := filepath.Join(libraryDir, UndatedDirName)
	if hasTime {
		destDir = filepath.Join(libraryDir,
			strconv.Itoa(capture.Year()), capture.Format(i.opts.DateFormat))
	}

	destPath := filepath.Join(destDir, filepath.Base(sourcePath))
	res := jobResult{sourcePath: sourcePath, destPath: destPath, capture: capture}

	skip, err := i.shouldSkip(ctx, destPath)
	if err != nil {
		res.err = err
		return []jobResult{res}
	}
	if skip {
		res.skipped = true
		return []jobResult{res}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		res.err = services.Wrap(services.ErrFilesystem, "importer", "import", "create date directory", err)
		return []jobResult{res}
	}
	if err := fileutil.CopyFileVerified(sourcePath, destPath); err != nil {
		res.err = err
		return []jobResult{res}
	}
	if info, err := os.Stat(destPath); err == nil {
		res.size = info.Size()
	}

	out := []jobResult{res}
	if i.opts.CopySidecars {
		if sidecar := i.copySidecar(sourcePath, destDir); sidecar != nil {
			out = append(out, *sidecar)
		}
	}
	return out
}

func (i *Importer) shouldSkip(ctx context.Context, destPath string) (bool, error) {
	if !i.opts.SkipExisting {
		return false, nil
	}
	if _, err := os.Stat(destPath); err == nil {
		return true, nil
	}
	if i.cat != nil {
		known, err := i.cat.HasDestination(ctx, destPath)
		if err != nil {
			return false, err
		}
		if known {
			return true, nil
		}
	}
	return false, nil
}

// copySidecar copies the image's XMP sidecar when one exists next to the
// source. Returns nil when there is no sidecar.
func (i *Importer) copySidecar(imagePath, destDir string) *jobResult {
	sidecarPath, ok := findSidecar(imagePath)
	if !ok {
		return nil
	}
	destPath := filepath.Join(destDir, filepath.Base(sidecarPath))
	res := jobResult{sourcePath: sidecarPath, destPath: destPath, sidecar: true}
	if _, err := os.Stat(destPath); err == nil {
		res.skipped = true
		return &res
	}
	if err := fileutil.CopyFile(sidecarPath, destPath); err != nil {
		res.err = err
	}
	return &res
}

// findSidecar probes both casings the common tools write.
func findSidecar(imagePath string) (string, bool) {
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	for _, candidate := range []string{media.SidecarPath(imagePath), base + ".XMP"} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// collectImages returns all image files under root, sorted for deterministic
// processing order.
func collectImages(root string) ([]string, error) {
	var images []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if media.IsImage(path) {
			images = append(images, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "importer", "scan", fmt.Sprintf("walk %s", root), err)
	}
	sort.Strings(images)
	return images, nil
}
