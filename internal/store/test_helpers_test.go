package store

import (
	"path/filepath"
	"testing"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestRun(sessionID string, seq int64, coherence float64, passed bool) Run {
	return Run{
		SessionID:         sessionID,
		Seq:               seq,
		PromptDigest:      PromptDigest("hello world"),
		TokenCount:        2,
		Coupling:          2.0,
		Threshold:         0.618,
		RawCoherence:      coherence,
		Coherence:         coherence,
		AdaptiveThreshold: 0.618,
		Resonance:         coherence / 2,
		OrderParameter:    coherence,
		Passed:            passed,
		QualityPassed:     passed,
		Iterations:        100,
		Phases:            []float64{0.5, 1.25},
	}
}
