// Package engine wraps the external focus-compositing executable behind a
// narrow capability interface.
//
// The CLI implementation writes an input list file, runs the engine
// non-interactively with the method, radius, and smoothing parameters,
// enforces the per-invocation timeout, and verifies that the declared
// artifact exists and is non-empty before reporting success. Tests inject a
// scripted Executor instead of launching a real engine.
package engine
