package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fstack/internal/fileutil"
	"fstack/internal/logging"
	"fstack/internal/services"
	"fstack/internal/state"
)

// Params is the opaque parameter bag forwarded to the engine.
type Params struct {
	Radius       int
	Smoothing    int
	JPEGQuality  int
	OutputFormat string
}

// Request describes one compositing invocation.
type Request struct {
	// Method selects the engine's stacking strategy. Only the base methods
	// A, B, C are valid here; the AB combination is expressed as a method B
	// invocation over the A and B artifacts.
	Method state.Method
	// InputPaths are the member images, ordered by capture time.
	InputPaths []string
	// OutputPath is where the engine must write the composited artifact.
	OutputPath string
	Params     Params
}

// Client invokes the external focus-compositing engine. Implementations run
// non-interactively and block until the engine exits; a nil error means the
// declared artifact exists and is non-empty.
type Client interface {
	Invoke(ctx context.Context, req Request) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *CLI) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// CLI drives a HeliconFocus-style command line engine.
type CLI struct {
	binary  string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// methodCodes maps base methods to the engine's -mp parameter.
var methodCodes = map[state.Method]int{
	state.MethodA: 0,
	state.MethodB: 1,
	state.MethodC: 2,
}

// New constructs an engine client. The timeout bounds each invocation; a
// timed-out run is reported as an engine error, never left hanging.
func New(binary string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*CLI, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "new", "binary required", nil)
	}
	client := &CLI{
		binary:  binary,
		timeout: timeout,
		exec:    commandExecutor{},
		logger:  logging.WithComponent(logger, "engine"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Invoke runs the engine for one method over the request inputs.
func (c *CLI) Invoke(ctx context.Context, req Request) error {
	code, ok := methodCodes[req.Method]
	if !ok {
		return services.Wrap(services.ErrEngine, "engine", "invoke",
			fmt.Sprintf("method %q has no engine code", req.Method), nil)
	}
	if len(req.InputPaths) == 0 {
		return services.Wrap(services.ErrEngine, "engine", "invoke", "no input files", nil)
	}
	if req.OutputPath == "" {
		return services.Wrap(services.ErrEngine, "engine", "invoke", "output path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, "engine", "create output directory", filepath.Dir(req.OutputPath), err)
	}

	inputFile, err := writeInputList(req.InputPaths)
	if err != nil {
		return err
	}
	defer os.Remove(inputFile)

	args := []string{
		"-silent",
		"-i", inputFile,
		fmt.Sprintf("-save:%s", req.OutputPath),
		fmt.Sprintf("-mp:%d", code),
		fmt.Sprintf("-rp:%d", req.Params.Radius),
		fmt.Sprintf("-sp:%d", req.Params.Smoothing),
	}
	if strings.EqualFold(req.Params.OutputFormat, "jpg") {
		args = append(args, fmt.Sprintf("-j:%d", req.Params.JPEGQuality))
	}

	invokeCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	logger := c.logger.With(logging.Args(logging.String(logging.FieldMethod, string(req.Method)))...)
	logger.Info("invoking engine",
		logging.Args(logging.Int("inputs", len(req.InputPaths)), logging.String("output", req.OutputPath))...)

	runErr := c.exec.Run(invokeCtx, c.binary, args, func(line string) {
		logger.Debug("engine output", logging.Args(logging.String("line", line))...)
	})
	if runErr != nil {
		if errors.Is(invokeCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrEngine, "engine", "invoke",
				fmt.Sprintf("timed out after %s", c.timeout), runErr)
		}
		return services.Wrap(services.ErrEngine, "engine", "invoke", "engine exited with error", runErr)
	}

	if !fileutil.NonEmptyFile(req.OutputPath) {
		return services.Wrap(services.ErrEngine, "engine", "verify artifact",
			fmt.Sprintf("engine reported success but %s is missing or empty", req.OutputPath), nil)
	}

	logger.Info("engine finished",
		logging.Args(logging.Duration("elapsed", time.Since(started)), logging.String("output", req.OutputPath))...)
	return nil
}

// writeInputList writes the member paths, one per line, next to the first
// input so relative engine installs resolve them consistently.
func writeInputList(paths []string) (string, error) {
	dir := filepath.Dir(paths[0])
	f, err := os.CreateTemp(dir, "fstack-input-*.txt")
	if err != nil {
		return "", services.Wrap(services.ErrFilesystem, "engine", "create input list", dir, err)
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(f, p); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", services.Wrap(services.ErrFilesystem, "engine", "write input list", f.Name(), err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", services.Wrap(services.ErrFilesystem, "engine", "close input list", f.Name(), err)
	}
	return f.Name(), nil
}

var _ Client = (*CLI)(nil)
