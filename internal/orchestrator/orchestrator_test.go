package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"fstack/internal/engine"
	"fstack/internal/orchestrator"
	"fstack/internal/state"
)

// fakeEngine records requests and returns scripted outcomes instead of
// launching the real application.
type fakeEngine struct {
	requests []engine.Request
	failOn   func(req engine.Request) error
}

func (f *fakeEngine) Invoke(_ context.Context, req engine.Request) error {
	f.requests = append(f.requests, req)
	if f.failOn != nil {
		if err := f.failOn(req); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEngine) invokedOutputs() []string {
	outs := make([]string, 0, len(f.requests))
	for _, req := range f.requests {
		outs = append(outs, filepath.Base(req.OutputPath))
	}
	return outs
}

func makeStack(t *testing.T, root, name string, images int) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i := 0; i < images; i++ {
		path := filepath.Join(dir, fmt.Sprintf("IMG_%04d.orf", i))
		if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func defaultOptions() orchestrator.Options {
	return orchestrator.Options{
		Methods:   []state.Method{state.MethodA, state.MethodB},
		CombineAB: true,
		Params:    engine.Params{Radius: 3, Smoothing: 1, JPEGQuality: 95, OutputFormat: "dng"},
	}
}

func TestProcessStackRunsMethodsInOrder(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 3)
	fake := &fakeEngine{}

	result := orchestrator.New(fake, defaultOptions(), nil).ProcessStack(context.Background(), dir)
	if result.Err != nil {
		t.Fatalf("ProcessStack: %v", result.Err)
	}
	want := []string{"Stack_001_A.dng", "Stack_001_B.dng", "Stack_001_AB.dng"}
	if got := fake.invokedOutputs(); !equalStrings(got, want) {
		t.Fatalf("invocations = %v, want %v", got, want)
	}
	if !result.Completed() {
		t.Fatalf("expected completed stack: %+v", result)
	}

	// The combination is a method B pass over the A and B artifacts.
	ab := fake.requests[2]
	if ab.Method != state.MethodB {
		t.Fatalf("AB request method = %s", ab.Method)
	}
	if len(ab.InputPaths) != 2 ||
		filepath.Base(ab.InputPaths[0]) != "Stack_001_A.dng" ||
		filepath.Base(ab.InputPaths[1]) != "Stack_001_B.dng" {
		t.Fatalf("AB inputs = %v", ab.InputPaths)
	}

	// Durable state reflects the outcomes.
	store, err := state.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open state: %v", err)
	}
	for _, method := range []state.Method{state.MethodA, state.MethodB, state.MethodAB} {
		if got := store.Status(method); got != state.StatusDone {
			t.Fatalf("state %s = %s, want done", method, got)
		}
	}
}

func TestResumeSkipsDoneMethods(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 2)
	store, err := state.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open state: %v", err)
	}
	if err := store.Set(state.MethodA, state.StatusDone, filepath.Join(dir, "stacked", "Stack_001_A.dng"), ""); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	fake := &fakeEngine{}
	opts := defaultOptions()
	opts.Methods = []state.Method{state.MethodA, state.MethodB, state.MethodC}
	result := orchestrator.New(fake, opts, nil).ProcessStack(context.Background(), dir)
	if result.Err != nil {
		t.Fatalf("ProcessStack: %v", result.Err)
	}

	got := fake.invokedOutputs()
	want := []string{"Stack_001_B.dng", "Stack_001_C.dng", "Stack_001_AB.dng"}
	if !equalStrings(got, want) {
		t.Fatalf("engine must not be invoked for done method A: %v", got)
	}
	if !result.Outcomes[0].SkippedResume || result.Outcomes[0].Status != state.StatusDone {
		t.Fatalf("A outcome = %+v", result.Outcomes[0])
	}
}

func TestStaleRunningIsRetried(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 2)
	store, err := state.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open state: %v", err)
	}
	// A crashed prior run left B at running.
	if err := store.Set(state.MethodB, state.StatusRunning, "", ""); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	fake := &fakeEngine{}
	result := orchestrator.New(fake, defaultOptions(), nil).ProcessStack(context.Background(), dir)
	if result.Err != nil {
		t.Fatalf("ProcessStack: %v", result.Err)
	}
	found := false
	for _, out := range fake.invokedOutputs() {
		if out == "Stack_001_B.dng" {
			found = true
		}
	}
	if !found {
		t.Fatalf("stale running entry must be retried, invocations: %v", fake.invokedOutputs())
	}
}

func TestABPreconditionFailedWithoutInvocation(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 2)
	engineErr := errors.New("engine exited 2")
	fake := &fakeEngine{failOn: func(req engine.Request) error {
		if strings.Contains(req.OutputPath, "_A.") {
			return engineErr
		}
		return nil
	}}

	result := orchestrator.New(fake, defaultOptions(), nil).ProcessStack(context.Background(), dir)
	if result.Err != nil {
		t.Fatalf("ProcessStack: %v", result.Err)
	}

	if got := fake.invokedOutputs(); !equalStrings(got, []string{"Stack_001_A.dng", "Stack_001_B.dng"}) {
		t.Fatalf("AB must not be invoked when A failed: %v", got)
	}

	byMethod := outcomesByMethod(result)
	if byMethod[state.MethodA].Status != state.StatusFailed {
		t.Fatalf("A = %+v", byMethod[state.MethodA])
	}
	if byMethod[state.MethodB].Status != state.StatusDone {
		t.Fatalf("B = %+v", byMethod[state.MethodB])
	}
	ab := byMethod[state.MethodAB]
	if ab.Status != state.StatusFailed || !strings.Contains(ab.Reason, "precondition not met") {
		t.Fatalf("AB = %+v", ab)
	}

	store, err := state.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open state: %v", err)
	}
	if record, _ := store.Get(state.MethodAB); !strings.Contains(record.Reason, "precondition not met") {
		t.Fatalf("AB record = %+v", record)
	}
}

func TestABPreconditionWithDisabledB(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 2)
	fake := &fakeEngine{}
	opts := defaultOptions()
	opts.Methods = []state.Method{state.MethodA} // B disabled

	result := orchestrator.New(fake, opts, nil).ProcessStack(context.Background(), dir)
	byMethod := outcomesByMethod(result)
	ab := byMethod[state.MethodAB]
	if ab.Status != state.StatusFailed || !strings.Contains(ab.Reason, "precondition not met") {
		t.Fatalf("disabled B must fail the AB precondition: %+v", ab)
	}
	if got := fake.invokedOutputs(); !equalStrings(got, []string{"Stack_001_A.dng"}) {
		t.Fatalf("unexpected invocations: %v", got)
	}
}

func TestMethodFailureIsIsolated(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 2)
	fake := &fakeEngine{failOn: func(req engine.Request) error {
		if strings.Contains(req.OutputPath, "_C.") {
			return errors.New("timed out after 10ms")
		}
		return nil
	}}
	opts := defaultOptions()
	opts.Methods = []state.Method{state.MethodA, state.MethodB, state.MethodC}

	result := orchestrator.New(fake, opts, nil).ProcessStack(context.Background(), dir)
	byMethod := outcomesByMethod(result)
	if byMethod[state.MethodC].Status != state.StatusFailed {
		t.Fatalf("C = %+v", byMethod[state.MethodC])
	}
	for _, m := range []state.Method{state.MethodA, state.MethodB, state.MethodAB} {
		if byMethod[m].Status != state.StatusDone {
			t.Fatalf("%s must be unaffected by C's failure: %+v", m, byMethod[m])
		}
	}
	if result.Completed() || result.Failed() {
		t.Fatalf("stack should be partial: %+v", result)
	}
}

func TestForceRerunsDoneMethods(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 2)
	store, err := state.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open state: %v", err)
	}
	for _, m := range []state.Method{state.MethodA, state.MethodB, state.MethodAB} {
		if err := store.Set(m, state.StatusDone, "", ""); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	fake := &fakeEngine{}
	opts := defaultOptions()
	opts.Force = true
	result := orchestrator.New(fake, opts, nil).ProcessStack(context.Background(), dir)
	if result.Err != nil {
		t.Fatalf("ProcessStack: %v", result.Err)
	}
	if len(fake.requests) != 3 {
		t.Fatalf("force must re-invoke all methods, got %v", fake.invokedOutputs())
	}
}

func TestProcessRootDiscoversAndAggregates(t *testing.T) {
	root := t.TempDir()
	makeStack(t, root, "Stack_001", 2)
	makeStack(t, root, "Stack_002", 3)
	makeStack(t, root, "notastack", 2)

	fake := &fakeEngine{failOn: func(req engine.Request) error {
		if strings.Contains(req.OutputPath, "Stack_002") {
			return errors.New("boom")
		}
		return nil
	}}

	summary, err := orchestrator.New(fake, defaultOptions(), nil).ProcessRoot(context.Background(), root)
	if err != nil {
		t.Fatalf("ProcessRoot: %v", err)
	}
	if summary.TotalStacks() != 2 {
		t.Fatalf("expected 2 stacks, got %d", summary.TotalStacks())
	}
	if summary.StacksCompleted != 1 || summary.StacksFailed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestProcessRootFallsBackToBareDirectory(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.orf", "b.orf"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("raw"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	fake := &fakeEngine{}
	summary, err := orchestrator.New(fake, defaultOptions(), nil).ProcessRoot(context.Background(), root)
	if err != nil {
		t.Fatalf("ProcessRoot: %v", err)
	}
	if summary.TotalStacks() != 1 || summary.StacksCompleted != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestProcessRootEmptyDirectory(t *testing.T) {
	summary, err := orchestrator.New(&fakeEngine{}, defaultOptions(), nil).ProcessRoot(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("ProcessRoot: %v", err)
	}
	if summary.TotalStacks() != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestProcessRootRefusesConcurrentRun(t *testing.T) {
	root := t.TempDir()
	makeStack(t, root, "Stack_001", 2)

	held := flock.New(filepath.Join(root, orchestrator.LockFileName))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock: %v %v", locked, err)
	}
	defer func() { _ = held.Unlock() }()

	_, err = orchestrator.New(&fakeEngine{}, defaultOptions(), nil).ProcessRoot(context.Background(), root)
	if err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestResumeCountsInSummary(t *testing.T) {
	root := t.TempDir()
	dir := makeStack(t, root, "Stack_001", 2)
	store, err := state.Open(dir, nil)
	if err != nil {
		t.Fatalf("Open state: %v", err)
	}
	if err := store.Set(state.MethodA, state.StatusDone, "", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	summary, err := orchestrator.New(&fakeEngine{}, defaultOptions(), nil).ProcessRoot(context.Background(), root)
	if err != nil {
		t.Fatalf("ProcessRoot: %v", err)
	}
	if summary.ResumeSkips != 1 {
		t.Fatalf("ResumeSkips = %d", summary.ResumeSkips)
	}
}

func outcomesByMethod(result orchestrator.StackResult) map[state.Method]orchestrator.MethodOutcome {
	out := make(map[state.Method]orchestrator.MethodOutcome, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		out[outcome.Method] = outcome
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
