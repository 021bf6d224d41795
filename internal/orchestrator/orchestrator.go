package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"fstack/internal/engine"
	"fstack/internal/logging"
	"fstack/internal/state"
)

// Options configures a processing run. Passed explicitly so runs are
// reproducible in tests without ambient state.
type Options struct {
	// Methods are the enabled base methods in evaluation order. Disabled
	// methods are never attempted and never recorded.
	Methods []state.Method
	// CombineAB derives an AB composite from the A and B artifacts when both
	// reached done.
	CombineAB bool
	// Force re-runs methods already recorded done.
	Force bool
	// Params is forwarded to the engine untouched.
	Params engine.Params
	// OutputDirName is the per-stack directory for composited artifacts.
	// Empty means "stacked".
	OutputDirName string
	// StackNamePattern matches stack directories during discovery. Empty
	// means the default "Stack_%03d" layout.
	StackNamePattern string
}

// Orchestrator drives the external engine across stacks, one invocation in
// flight at a time. The engine is a single-instance application, so stacks
// are processed sequentially and a file lock keeps concurrent fstack runs off
// the same tree.
type Orchestrator struct {
	client engine.Client
	opts   Options
	logger *slog.Logger
}

// New constructs an orchestrator around an engine client.
func New(client engine.Client, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.OutputDirName == "" {
		opts.OutputDirName = "stacked"
	}
	return &Orchestrator{
		client: client,
		opts:   opts,
		logger: logging.WithComponent(logger, "orchestrator"),
	}
}

// LockFileName is created in the processed root for the duration of a run.
const LockFileName = ".fstack.lock"

// ProcessRoot processes every stack directory under root sequentially. When
// root contains no stack directories but holds images itself, it is processed
// as one ad-hoc stack. The returned error is reserved for unrecoverable
// conditions (lock contention, unreadable root); per-method failures are
// reported through the summary.
func (o *Orchestrator) ProcessRoot(ctx context.Context, root string) (Summary, error) {
	lock := flock.New(filepath.Join(root, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return Summary{}, fmt.Errorf("another fstack run is processing %s", root)
	}
	defer func() { _ = lock.Unlock() }()

	dirs, err := discoverStackDirs(root, o.opts.StackNamePattern)
	if err != nil {
		return Summary{}, err
	}
	if len(dirs) == 0 {
		ok, err := hasProcessableImages(root)
		if err != nil {
			return Summary{}, err
		}
		if ok {
			dirs = []string{root}
			o.logger.Info("no stack directories found, processing root as one stack",
				logging.Args(logging.String("root", root))...)
		}
	}

	var summary Summary
	for _, dir := range dirs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		result := o.ProcessStack(ctx, dir)
		summary.add(result)
	}
	return summary, nil
}
