package orchestrator

import "fstack/internal/state"

// MethodOutcome is the per-method result of one stack in one run.
type MethodOutcome struct {
	Method state.Method
	Status state.Status
	// SkippedResume is set when the state store already reported done and
	// the engine was not invoked.
	SkippedResume bool
	OutputPath    string
	Reason        string
}

// StackResult aggregates the method outcomes of one stack. Err is set only
// when the stack could not be examined at all (unreadable directory or state
// file); per-method failures live in Outcomes.
type StackResult struct {
	Dir      string
	Outcomes []MethodOutcome
	Err      error
}

// done counts outcomes that reached done, including resume skips.
func (r StackResult) done() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Status == state.StatusDone {
			n++
		}
	}
	return n
}

// Completed reports whether every attempted method reached done.
func (r StackResult) Completed() bool {
	return r.Err == nil && r.done() == len(r.Outcomes)
}

// Failed reports whether nothing reached done.
func (r StackResult) Failed() bool {
	return r.Err != nil || (len(r.Outcomes) > 0 && r.done() == 0)
}

// Summary is the run-level aggregation returned by ProcessRoot. It is the
// basis for end-of-run reporting: per-method failures surface here instead of
// aborting the run.
type Summary struct {
	StacksCompleted int
	StacksPartial   int
	StacksFailed    int
	ResumeSkips     int
	Stacks          []StackResult
}

func (s *Summary) add(result StackResult) {
	s.Stacks = append(s.Stacks, result)
	for _, outcome := range result.Outcomes {
		if outcome.SkippedResume {
			s.ResumeSkips++
		}
	}
	switch {
	case result.Completed():
		s.StacksCompleted++
	case result.Failed():
		s.StacksFailed++
	default:
		s.StacksPartial++
	}
}

// TotalStacks returns how many stacks the run examined.
func (s Summary) TotalStacks() int {
	return len(s.Stacks)
}
