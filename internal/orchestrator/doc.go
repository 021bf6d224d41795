// Package orchestrator drives the external compositing engine across stacks.
//
// Each (stack, method) pair moves through pending, running, and done or
// failed, persisted in the stack's state store around every engine
// invocation. Done pairs are skipped on resume, the AB combination requires
// both A and B to have reached done, and failures stay confined to their
// method. Stacks are independent units of work processed sequentially because
// the engine cannot run concurrent sessions; a file lock in the processed
// root keeps a second fstack process out.
package orchestrator
