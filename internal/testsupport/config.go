package testsupport

import (
	"path/filepath"
	"testing"

	"fstack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Engine.Binary = filepath.Join(base, "bin", "engine")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGapSeconds overrides the stack grouping interval on the test config.
func WithGapSeconds(seconds float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sorter.GapSeconds = seconds
	}
}

// WithMethods overrides the enabled compositing methods on the test config.
func WithMethods(methods ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.Methods = methods
	}
}

// WithEngineBinary points the test config at an existing engine executable.
func WithEngineBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.Binary = path
	}
}
