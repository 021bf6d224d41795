package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fstack/internal/config"
	"fstack/internal/services"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config, resolved=%s", resolved)
	}
	if cfg.Sorter.GapSeconds != 1.0 || cfg.Sorter.MinStackSize != 2 {
		t.Fatalf("unexpected sorter defaults: %+v", cfg.Sorter)
	}
	if got := cfg.Engine.Methods; len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("unexpected default methods: %v", got)
	}
	if !cfg.Engine.CombineAB {
		t.Fatal("combine_ab should default to true")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[sorter]
gap_seconds = 2.5
min_stack_size = 3

[engine]
output_format = "TIF"
methods = ["b", "a", "b"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Sorter.GapSeconds != 2.5 {
		t.Fatalf("gap_seconds = %v", cfg.Sorter.GapSeconds)
	}
	if cfg.Engine.OutputFormat != "tif" {
		t.Fatalf("output_format = %q", cfg.Engine.OutputFormat)
	}
	if got := cfg.Engine.Methods; len(got) != 2 || got[0] != "B" || got[1] != "A" {
		t.Fatalf("methods not deduped/uppercased: %v", got)
	}
}

func TestLoadValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"zero gap", "[sorter]\ngap_seconds = 0.0\n", "gap_seconds"},
		{"negative gap", "[sorter]\ngap_seconds = -1.0\n", "gap_seconds"},
		{"min stack", "[sorter]\nmin_stack_size = 1\n", "min_stack_size"},
		{"radius", "[engine]\nradius = 9\n", "radius"},
		{"smoothing", "[engine]\nsmoothing = 5\n", "smoothing"},
		{"format", "[engine]\noutput_format = \"png\"\n", "output_format"},
		{"methods", "[engine]\nmethods = [\"D\"]\n", "methods"},
		{"timeout", "[engine]\ntimeout = 0\n", "timeout"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("sample config not found after creation")
	}
	if cfg.Engine.Radius != 3 {
		t.Fatalf("sample radius = %d", cfg.Engine.Radius)
	}
}
