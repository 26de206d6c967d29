package store

import "time"

// Session kinds.
const (
	KindRequest = "request"
	KindAgents  = "agents"
)

// Session is one engine instance's identity in the log.
type Session struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSummary aggregates a session's runs.
type SessionSummary struct {
	Session
	Runs          int     `json:"runs"`
	Passed        int     `json:"passed"`
	MeanCoherence float64 `json:"mean_coherence"`
}

// Run is one completed request-mode invocation.
type Run struct {
	SessionID    string `json:"session_id"`
	Seq          int64  `json:"seq"`
	PromptDigest string `json:"prompt_digest"`
	TokenCount   int    `json:"token_count"`

	Coupling        float64 `json:"coupling"`
	Threshold       float64 `json:"threshold"`
	Personalization float64 `json:"personalization"`

	RawCoherence      float64 `json:"raw_coherence"`
	Coherence         float64 `json:"coherence"`
	AdaptiveThreshold float64 `json:"adaptive_threshold"`
	Resonance         float64 `json:"resonance"`
	Entropy           float64 `json:"entropy"`
	OrderParameter    float64 `json:"order_parameter"`
	PhaseVariance     float64 `json:"phase_variance"`

	Passed        bool    `json:"passed"`
	QualityPassed bool    `json:"quality_passed"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	ProcessingMs  float64 `json:"processing_ms"`

	Phases []float64 `json:"phases"`
}
