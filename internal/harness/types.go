package harness

// TraceEvent is the deterministic record of one scenario step. Wall-clock
// fields such as processing time are left out so traces compare equal.
type TraceEvent struct {
	Step              int       `json:"step"`
	Seq               int64     `json:"seq"`
	Prompt            string    `json:"prompt"`
	TokenCount        int       `json:"token_count"`
	Iterations        int       `json:"iterations"`
	Converged         bool      `json:"converged"`
	Passed            bool      `json:"passed"`
	QualityPassed     bool      `json:"quality_passed"`
	Amplified         bool      `json:"amplified"`
	RawCoherence      float64   `json:"raw_coherence"`
	Coherence         float64   `json:"coherence"`
	AdaptiveThreshold float64   `json:"adaptive_threshold"`
	Resonance         float64   `json:"resonance"`
	Entropy           float64   `json:"entropy"`
	OrderParameter    float64   `json:"order_parameter"`
	PhaseVariance     float64   `json:"phase_variance"`
	Phases            []float64 `json:"phases"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Final session state used by the assertions.
	HistoryLen        int     `json:"history_len"`
	AdaptiveThreshold float64 `json:"adaptive_threshold"`
	RunsRecorded      int     `json:"runs_recorded"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// PassedCount returns how many steps passed the gate.
func (r *Result) PassedCount() int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Passed {
			n++
		}
	}
	return n
}
