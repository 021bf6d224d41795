package stacker_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"fstack/internal/services"
	"fstack/internal/stacker"
)

var epoch = time.Date(2026, 5, 14, 9, 0, 0, 0, time.UTC)

func entryAt(name string, offsetSeconds float64) stacker.ImageEntry {
	return stacker.ImageEntry{
		Path:        "/photos/" + name,
		CaptureTime: epoch.Add(time.Duration(offsetSeconds * float64(time.Second))),
		HasTime:     true,
	}
}

func entriesAt(offsets ...float64) []stacker.ImageEntry {
	entries := make([]stacker.ImageEntry, 0, len(offsets))
	for i, off := range offsets {
		entries = append(entries, entryAt(fmt.Sprintf("IMG_%04d.orf", i), off))
	}
	return entries
}

func memberPaths(s stacker.Stack) []string {
	paths := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		paths = append(paths, m.Path)
	}
	return paths
}

func TestGroupBurstsIntoStacks(t *testing.T) {
	// Worked example: [0.0, 0.3, 0.9, 5.0, 5.2] with T=1.0 yields two stacks
	// and no singles.
	res, err := stacker.Group(entriesAt(0.0, 0.3, 0.9, 5.0, 5.2), stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Singles) != 0 {
		t.Fatalf("expected no singles, got %d", len(res.Singles))
	}
	if len(res.Stacks) != 2 {
		t.Fatalf("expected 2 stacks, got %d", len(res.Stacks))
	}
	if len(res.Stacks[0].Members) != 3 || len(res.Stacks[1].Members) != 2 {
		t.Fatalf("unexpected stack sizes: %d, %d", len(res.Stacks[0].Members), len(res.Stacks[1].Members))
	}
	if res.Stacks[0].Index != 1 || res.Stacks[1].Index != 2 {
		t.Fatalf("unexpected indices: %d, %d", res.Stacks[0].Index, res.Stacks[1].Index)
	}
	if res.Stacks[0].DirectoryName != "Stack_001" || res.Stacks[1].DirectoryName != "Stack_002" {
		t.Fatalf("unexpected names: %q, %q", res.Stacks[0].DirectoryName, res.Stacks[1].DirectoryName)
	}
}

func TestGroupTransitiveChaining(t *testing.T) {
	// Each neighbor is within T of the next, but first and last are 1.8s
	// apart. A contiguous burst is one group regardless of total span.
	res, err := stacker.Group(entriesAt(0.0, 0.9, 1.8), stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Stacks) != 1 || len(res.Stacks[0].Members) != 3 {
		t.Fatalf("expected one stack of 3, got %+v", res.Stacks)
	}
}

func TestGroupBoundaryGapEqualToThreshold(t *testing.T) {
	// gap == T stays in the same group; only gap > T splits.
	res, err := stacker.Group(entriesAt(0.0, 1.0), stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Stacks) != 1 {
		t.Fatalf("expected one stack, got %+v", res)
	}
}

func TestGroupSmallGroupsAreSingles(t *testing.T) {
	// Worked example: [0.0, 2.0] with T=1.0 and minimum 2 yields two singles
	// and zero stacks.
	res, err := stacker.Group(entriesAt(0.0, 2.0), stacker.Options{GapSeconds: 1.0, MinStackSize: 2})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Stacks) != 0 {
		t.Fatalf("expected no stacks, got %d", len(res.Stacks))
	}
	if len(res.Singles) != 2 {
		t.Fatalf("expected 2 singles, got %d", len(res.Singles))
	}
}

func TestGroupNumberingSkipsNoIndices(t *testing.T) {
	// burst, lone shot, burst: the lone shot must not consume a stack index.
	res, err := stacker.Group(entriesAt(0.0, 0.5, 10.0, 20.0, 20.5), stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Stacks) != 2 {
		t.Fatalf("expected 2 stacks, got %d", len(res.Stacks))
	}
	if res.Stacks[0].Index != 1 || res.Stacks[1].Index != 2 {
		t.Fatalf("indices must be contiguous, got %d and %d", res.Stacks[0].Index, res.Stacks[1].Index)
	}
	if len(res.Singles) != 1 {
		t.Fatalf("expected the lone shot as a single, got %d singles", len(res.Singles))
	}
}

func TestGroupUnknownTimeNeverMerges(t *testing.T) {
	entries := entriesAt(0.0, 0.4, 0.8)
	unknown := stacker.ImageEntry{Path: "/photos/IMG_9999.orf"}
	entries = append(entries, unknown)

	res, err := stacker.Group(entries, stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Stacks) != 1 || len(res.Stacks[0].Members) != 3 {
		t.Fatalf("timestamped burst should form one stack, got %+v", res.Stacks)
	}
	if len(res.Singles) != 1 || res.Singles[0].Path != unknown.Path {
		t.Fatalf("unknown-time entry must be a single, got %+v", res.Singles)
	}
}

func TestGroupAdjacentGapProperty(t *testing.T) {
	offsets := []float64{0, 0.2, 0.5, 3, 3.1, 3.9, 4.0, 9, 9.5, 30}
	threshold := 1.0
	res, err := stacker.Group(entriesAt(offsets...), stacker.Options{GapSeconds: threshold})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	gap := time.Duration(threshold * float64(time.Second))
	for _, s := range res.Stacks {
		for i := 1; i < len(s.Members); i++ {
			d := s.Members[i].CaptureTime.Sub(s.Members[i-1].CaptureTime)
			if d > gap {
				t.Fatalf("stack %d contains adjacent gap %v > %v", s.Index, d, gap)
			}
		}
	}
}

func TestGroupDeterministic(t *testing.T) {
	entries := entriesAt(0, 0.3, 0.6, 5, 5.5, 12)
	opts := stacker.Options{GapSeconds: 1.0}

	first, err := stacker.Group(entries, opts)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	second, err := stacker.Group(entries, opts)
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input must yield identical grouping")
	}
}

func TestGroupUnsortedInputIsNormalized(t *testing.T) {
	entries := []stacker.ImageEntry{
		entryAt("c.orf", 0.6),
		entryAt("a.orf", 0.0),
		entryAt("b.orf", 0.3),
	}
	res, err := stacker.Group(entries, stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Stacks) != 1 {
		t.Fatalf("expected one stack, got %+v", res)
	}
	want := []string{"/photos/a.orf", "/photos/b.orf", "/photos/c.orf"}
	if got := memberPaths(res.Stacks[0]); !reflect.DeepEqual(got, want) {
		t.Fatalf("members not ordered by capture time: %v", got)
	}
}

func TestGroupEmptyInput(t *testing.T) {
	res, err := stacker.Group(nil, stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("empty input is not an error: %v", err)
	}
	if len(res.Stacks) != 0 || len(res.Singles) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestGroupRejectsInvalidThreshold(t *testing.T) {
	for _, gap := range []float64{0, -0.5} {
		_, err := stacker.Group(entriesAt(0, 1), stacker.Options{GapSeconds: gap})
		if err == nil {
			t.Fatalf("gap %v must be rejected", gap)
		}
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	}
}

func TestGroupSidecarTravelsWithEntry(t *testing.T) {
	entries := entriesAt(0.0, 0.2)
	entries[0].SidecarPath = "/photos/IMG_0000.xmp"
	res, err := stacker.Group(entries, stacker.Options{GapSeconds: 1.0})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(res.Stacks) != 1 {
		t.Fatalf("expected one stack, got %+v", res)
	}
	if res.Stacks[0].Members[0].SidecarPath != "/photos/IMG_0000.xmp" {
		t.Fatal("sidecar path must survive grouping")
	}
}

func TestGroupCustomNameFormat(t *testing.T) {
	res, err := stacker.Group(entriesAt(0, 0.1), stacker.Options{GapSeconds: 1.0, NameFormat: "Series-%02d"})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if res.Stacks[0].DirectoryName != "Series-01" {
		t.Fatalf("unexpected directory name %q", res.Stacks[0].DirectoryName)
	}
}
