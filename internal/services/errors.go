package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid configuration. These abort a run before
	// any file is touched.
	ErrConfiguration = errors.New("configuration error")
	// ErrMetadata marks a capture timestamp that could not be read. Recoverable:
	// the entry is demoted to a single.
	ErrMetadata = errors.New("metadata unavailable")
	// ErrFilesystem marks a failed move or copy. Recoverable per file.
	ErrFilesystem = errors.New("filesystem error")
	// ErrEngine marks a failed compositing invocation (non-zero exit, timeout,
	// missing artifact). Recoverable per method.
	ErrEngine = errors.New("engine invocation error")
	// ErrState marks an unreadable or malformed processing state record.
	// Recoverable: the affected pair is treated as pending.
	ErrState = errors.New("state store corruption")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrFilesystem
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error must abort the whole run. Only
// configuration-time validation failures qualify; every other failure is
// isolated per item and surfaced in the end-of-run summary.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
