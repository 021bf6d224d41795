package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"fstack/internal/logging"
	"fstack/internal/media"
	"fstack/internal/metadata"
	"fstack/internal/stacker"
)

// Snapshot is the result of scanning a source tree once. Grouping and layout
// operate on this snapshot; later filesystem changes are not observed.
type Snapshot struct {
	// Entries are sorted by capture time ascending, entries without a
	// timestamp last. Ready for stacker.Group.
	Entries []stacker.ImageEntry
	// FormatCounts maps lowercase extension to the number of files found.
	FormatCounts map[string]int
	// SidecarCount is the number of sidecar files paired with images.
	SidecarCount int
	// MissingMetadata counts entries without a readable capture timestamp.
	MissingMetadata int
}

// TotalImages returns the number of discovered image files.
func (s Snapshot) TotalImages() int {
	return len(s.Entries)
}

// Scanner discovers image files and reads their capture timestamps.
type Scanner struct {
	reader  metadata.Reader
	workers int
	logger  *slog.Logger
}

// New constructs a scanner. workers bounds the metadata reader pool; values
// below 1 are raised to 1.
func New(reader metadata.Reader, workers int, logger *slog.Logger) *Scanner {
	if reader == nil {
		reader = metadata.EXIFReader{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Scanner{reader: reader, workers: workers, logger: logging.WithComponent(logger, "scan")}
}

// Scan walks root recursively, pairs sidecars with their owning images, and
// reads capture timestamps on a bounded worker pool. Files that are neither
// supported images nor sidecars are ignored. Unreadable metadata demotes an
// entry to unknown time; it never fails the scan.
func (s *Scanner) Scan(ctx context.Context, root string) (Snapshot, error) {
	var imagePaths []string
	sidecars := make(map[string]string)
	counts := make(map[string]int)
	sidecarTotal := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch {
		case media.IsSidecar(path):
			sidecars[sidecarKey(path)] = path
			sidecarTotal++
		case media.IsImage(path):
			imagePaths = append(imagePaths, path)
			counts[strings.ToLower(filepath.Ext(path))]++
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	sort.Strings(imagePaths)

	entries := make([]stacker.ImageEntry, len(imagePaths))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				path := imagePaths[i]
				captured, ok := s.reader.CaptureTime(path)
				entries[i] = stacker.ImageEntry{
					Path:        path,
					CaptureTime: captured,
					HasTime:     ok,
				}
				if sidecar, found := sidecars[sidecarKey(path)]; found {
					entries[i].SidecarPath = sidecar
				}
			}
		}()
	}

	feed := func() {
		defer close(jobs)
		for i := range imagePaths {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}
	feed()
	wg.Wait()
	if ctx.Err() != nil {
		return Snapshot{}, ctx.Err()
	}

	missing := 0
	paired := 0
	for _, entry := range entries {
		if !entry.HasTime {
			missing++
		}
		if entry.SidecarPath != "" {
			paired++
		}
	}
	if missing > 0 {
		s.logger.Warn("entries without capture timestamp are kept as singles",
			logging.Args(logging.Int("count", missing))...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].HasTime != entries[j].HasTime {
			return entries[i].HasTime
		}
		if !entries[i].CaptureTime.Equal(entries[j].CaptureTime) {
			return entries[i].CaptureTime.Before(entries[j].CaptureTime)
		}
		return entries[i].Path < entries[j].Path
	})

	return Snapshot{
		Entries:         entries,
		FormatCounts:    counts,
		SidecarCount:    paired,
		MissingMetadata: missing,
	}, nil
}

// sidecarKey pairs a sidecar with its image regardless of extension case.
func sidecarKey(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, strings.ToLower(base))
}
