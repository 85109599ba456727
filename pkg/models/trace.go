package models

// TraceEntry is the read-only record of one completed step.
type TraceEntry struct {
	// StepIndex is the 0-based position of the step in its chain.
	StepIndex int
	// Role is the label derived from the step template (or step_<n>).
	Role string
	// Request is the fully resolved request sent to the backend.
	Request string
	// Result is the coerced step result.
	Result Result
	// Tokens is the total token count the backend reported for this step,
	// summed across retry attempts.
	Tokens int64
}

// Trace is the ordered record of one chain run plus a running token total.
type Trace struct {
	Entries     []TraceEntry
	TotalTokens int64
}

// Add appends an entry and folds its tokens into the running total.
func (t *Trace) Add(e TraceEntry) {
	t.Entries = append(t.Entries, e)
	t.TotalTokens += e.Tokens
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int {
	return len(t.Entries)
}
