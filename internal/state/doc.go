// Package state persists per-method processing outcomes for a stack.
//
// Each stack directory carries its own stacking.toml, so state survives
// process restarts and travels with the stack when the directory is moved.
// Records are written before and after every engine invocation: running is
// written first, so a crash leaves a stale running entry that the next run
// safely retries. A method recorded done is never silently re-run; that is
// the basis of resume.
package state
