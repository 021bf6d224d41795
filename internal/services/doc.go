// Package services defines the shared error taxonomy used across fstack
// components.
//
// Sentinel errors classify failures by how the run should react: configuration
// errors abort before any file is touched, while metadata, filesystem, engine,
// and state errors are isolated per item and reported in the end-of-run
// summary. Wrap tags errors with a sentinel plus component context so callers
// can classify with errors.Is without parsing messages.
package services
