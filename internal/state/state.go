package state

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"fstack/internal/logging"
	"fstack/internal/services"
)

// Method names a compositing strategy offered by the external engine.
type Method string

const (
	MethodA  Method = "A"
	MethodB  Method = "B"
	MethodC  Method = "C"
	MethodAB Method = "AB"
)

// EvaluationOrder is the fixed order methods are considered per stack. AB is
// derived from the A and B outputs and therefore always evaluated last.
func EvaluationOrder() []Method {
	return []Method{MethodA, MethodB, MethodC, MethodAB}
}

// ParseMethod converts a string into a known Method.
func ParseMethod(value string) (Method, bool) {
	switch Method(value) {
	case MethodA, MethodB, MethodC, MethodAB:
		return Method(value), true
	}
	return "", false
}

// Status is the lifecycle of one (stack, method) pair.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Record is the durable outcome of one method on one stack. Records are
// overwritten on each attempt, never deleted, forming an audit trail across
// resumed runs.
type Record struct {
	Status      Status    `toml:"status"`
	LastAttempt time.Time `toml:"last_attempt"`
	OutputPath  string    `toml:"output,omitempty"`
	Reason      string    `toml:"reason,omitempty"`
}

// FileName is the state file kept inside each stack directory. Living next to
// the images keeps state attached to its stack through directory moves, and a
// TOML file stays inspectable with any editor.
const FileName = "stacking.toml"

type fileSchema struct {
	Methods map[string]Record `toml:"methods"`
}

// Store persists per-method processing state for a single stack directory.
type Store struct {
	path    string
	records map[Method]Record
	logger  *slog.Logger
}

// Open loads the state file for stackDir, creating an empty store when none
// exists. A malformed file is treated as empty with a warning: the safe
// default is to re-run. Records found as running belong to a crashed prior
// run and are demoted to pending.
func Open(stackDir string, logger *slog.Logger) (*Store, error) {
	store := &Store{
		path:    filepath.Join(stackDir, FileName),
		records: make(map[Method]Record),
		logger:  logging.WithComponent(logger, "state"),
	}

	data, err := os.ReadFile(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrState, "state", "read", store.path, err)
	}

	var schema fileSchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		store.logger.Warn("state file unreadable, treating all methods as pending",
			logging.Args(logging.String("path", store.path), logging.Error(err))...)
		return store, nil
	}

	for name, record := range schema.Methods {
		method, ok := ParseMethod(name)
		if !ok {
			store.logger.Warn("ignoring unknown method in state file",
				logging.Args(logging.String("method", name), logging.String("path", store.path))...)
			continue
		}
		if record.Status == StatusRunning {
			// A running record can only come from a crash mid-invocation.
			// It is safe to retry, never safe to treat as done.
			record.Status = StatusPending
		}
		switch record.Status {
		case StatusPending, StatusDone, StatusFailed:
		default:
			store.logger.Warn("ignoring record with unknown status",
				logging.Args(logging.String("method", name), logging.String("status", string(record.Status)))...)
			continue
		}
		store.records[method] = record
	}
	return store, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Status reports the most recently written status for method, defaulting to
// pending when no record exists.
func (s *Store) Status(method Method) Status {
	if record, ok := s.records[method]; ok {
		return record.Status
	}
	return StatusPending
}

// Get returns the stored record for method.
func (s *Store) Get(method Method) (Record, bool) {
	record, ok := s.records[method]
	return record, ok
}

// Set overwrites the record for method and persists the file before
// returning, so the durable state always leads the in-memory state.
func (s *Store) Set(method Method, status Status, outputPath, reason string) error {
	s.records[method] = Record{
		Status:      status,
		LastAttempt: time.Now().UTC().Truncate(time.Second),
		OutputPath:  outputPath,
		Reason:      reason,
	}
	return s.save()
}

// Clear removes all records and the backing file. Used by forced
// re-processing.
func (s *Store) Clear() error {
	s.records = make(map[Method]Record)
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrState, "state", "clear", s.path, err)
	}
	return nil
}

// Methods returns the recorded methods in evaluation order.
func (s *Store) Methods() []Method {
	known := make([]Method, 0, len(s.records))
	for _, method := range EvaluationOrder() {
		if _, ok := s.records[method]; ok {
			known = append(known, method)
		}
	}
	// Defensive: include anything outside the canonical order too.
	if len(known) != len(s.records) {
		extra := make([]string, 0)
		for method := range s.records {
			found := false
			for _, k := range known {
				if k == method {
					found = true
					break
				}
			}
			if !found {
				extra = append(extra, string(method))
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			known = append(known, Method(name))
		}
	}
	return known
}

func (s *Store) save() error {
	schema := fileSchema{Methods: make(map[string]Record, len(s.records))}
	for method, record := range s.records {
		schema.Methods[string(method)] = record
	}

	data, err := toml.Marshal(schema)
	if err != nil {
		return services.Wrap(services.ErrState, "state", "encode", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return services.Wrap(services.ErrState, "state", "write", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return services.Wrap(services.ErrState, "state", "replace", s.path, err)
	}
	return nil
}

// String implements fmt.Stringer for diagnostics.
func (s *Store) String() string {
	return fmt.Sprintf("state(%s, %d records)", s.path, len(s.records))
}
