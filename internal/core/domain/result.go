package domain

import "time"

// NodeResult is the terminal outcome of one build node in a run.
type NodeResult struct {
	Key    string
	Target string
	Label  string
	Status NodeStatus

	// UpToDate is set when the node succeeded without dispatching its
	// toolchain because its recorded state matched.
	UpToDate bool

	// CausedBy names the first failed node in this node's dependency chain
	// when the node is Failed or Skipped.
	CausedBy string

	// Diagnostics is the captured tool output in the order it was produced.
	Diagnostics string

	Duration time.Duration
}

// RunResult is the outcome of a whole run, exposed to CLI and reporting
// collaborators.
type RunResult struct {
	RunID    string
	Success  bool
	WallTime time.Duration

	Executed int
	UpToDate int
	Failed   int
	Skipped  int

	Nodes []NodeResult
}

// Counts recomputes the summary counters from the node results.
func (r *RunResult) Counts() {
	r.Executed, r.UpToDate, r.Failed, r.Skipped = 0, 0, 0, 0
	for i := range r.Nodes {
		n := &r.Nodes[i]
		switch n.Status {
		case StatusSucceeded:
			if n.UpToDate {
				r.UpToDate++
			} else {
				r.Executed++
			}
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
}
