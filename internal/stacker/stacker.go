package stacker

import (
	"fmt"
	"sort"
	"time"

	"fstack/internal/services"
)

// ImageEntry is one discovered image file. Entries are immutable once
// discovered; grouping consumes them without mutation.
type ImageEntry struct {
	Path        string
	CaptureTime time.Time
	// HasTime is false when no capture timestamp could be read. Such entries
	// are never merged with neighbors.
	HasTime bool
	// SidecarPath is the companion metadata file, empty when none exists.
	// Sidecars travel with their owning entry and never participate in gap
	// computation.
	SidecarPath string
}

// Stack is an ordered group of temporally-adjacent captures.
type Stack struct {
	// Index is 1-based, assigned in ascending order of group start time with
	// no gaps in numbering.
	Index int
	// Members are ordered by capture time ascending and never empty.
	Members []ImageEntry
	// DirectoryName is derived from Index via the configured name format.
	DirectoryName string
}

// Options configures grouping. Values are passed explicitly rather than read
// from ambient state so groupings are reproducible in tests.
type Options struct {
	// GapSeconds is the maximum gap between consecutive shots of one stack.
	GapSeconds float64
	// MinStackSize is the smallest group materialized as a stack. Zero means
	// the default of 2.
	MinStackSize int
	// NameFormat is the fmt pattern for DirectoryName, e.g. "Stack_%03d".
	NameFormat string
}

// DefaultMinStackSize is applied when Options.MinStackSize is zero.
const DefaultMinStackSize = 2

// DefaultNameFormat is applied when Options.NameFormat is empty.
const DefaultNameFormat = "Stack_%03d"

// Result partitions the input into stacks and singles. Singles keep their
// discovery order relative to the sorted input and are left untouched by the
// layout step.
type Result struct {
	Stacks  []Stack
	Singles []ImageEntry
}

// Group partitions entries into stacks using inter-capture time gaps.
//
// Two consecutive entries belong to the same group iff their gap is at most
// Options.GapSeconds. Chaining is transitive through consecutive gaps only: a
// burst of shots each within the gap of its neighbor forms one group even
// when its first and last members are further apart. Entries without a
// capture timestamp are always singles. Groups smaller than MinStackSize are
// reported as singles and excluded from stack numbering.
//
// The result is a pure function of the input and options; equal inputs always
// yield equal groupings.
func Group(entries []ImageEntry, opts Options) (Result, error) {
	if opts.GapSeconds <= 0 {
		return Result{}, services.Wrap(services.ErrConfiguration, "stacker", "group",
			fmt.Sprintf("gap must be positive, got %v", opts.GapSeconds), nil)
	}
	minSize := opts.MinStackSize
	if minSize == 0 {
		minSize = DefaultMinStackSize
	}
	if minSize < 2 {
		return Result{}, services.Wrap(services.ErrConfiguration, "stacker", "group",
			fmt.Sprintf("minimum stack size must be at least 2, got %d", minSize), nil)
	}
	nameFormat := opts.NameFormat
	if nameFormat == "" {
		nameFormat = DefaultNameFormat
	}

	if len(entries) == 0 {
		return Result{}, nil
	}

	timed := make([]ImageEntry, 0, len(entries))
	var result Result
	for _, entry := range entries {
		if entry.HasTime {
			timed = append(timed, entry)
			continue
		}
		result.Singles = append(result.Singles, entry)
	}

	// Callers pass entries sorted by capture time; sorting again (with path
	// as tiebreak) keeps the grouping deterministic even when they do not.
	sort.SliceStable(timed, func(i, j int) bool {
		if timed[i].CaptureTime.Equal(timed[j].CaptureTime) {
			return timed[i].Path < timed[j].Path
		}
		return timed[i].CaptureTime.Before(timed[j].CaptureTime)
	})

	gap := time.Duration(opts.GapSeconds * float64(time.Second))
	var group []ImageEntry
	flush := func() {
		if len(group) >= minSize {
			index := len(result.Stacks) + 1
			result.Stacks = append(result.Stacks, Stack{
				Index:         index,
				Members:       group,
				DirectoryName: fmt.Sprintf(nameFormat, index),
			})
		} else {
			result.Singles = append(result.Singles, group...)
		}
		group = nil
	}

	for _, entry := range timed {
		if len(group) > 0 {
			last := group[len(group)-1].CaptureTime
			if entry.CaptureTime.Sub(last) > gap {
				flush()
			}
		}
		group = append(group, entry)
	}
	if len(group) > 0 {
		flush()
	}

	return result, nil
}
