package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// WriteSession inserts a session row. Duplicate ids are ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	created := sess.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, kind, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Kind, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteRun appends a run. The session must already exist. Re-writing an
// existing (session_id, seq) is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	phases := run.Phases
	if phases == nil {
		phases = []float64{}
	}
	phasesJSON, err := json.Marshal(phases)
	if err != nil {
		return fmt.Errorf("write run: marshal phases: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (
			session_id, seq, prompt_digest, token_count,
			coupling, threshold, personalization,
			raw_coherence, coherence, adaptive_threshold, resonance,
			entropy, order_parameter, phase_variance,
			passed, quality_passed, iterations, converged, processing_ms,
			phases
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		run.SessionID, run.Seq, run.PromptDigest, run.TokenCount,
		run.Coupling, run.Threshold, run.Personalization,
		run.RawCoherence, run.Coherence, run.AdaptiveThreshold, run.Resonance,
		run.Entropy, run.OrderParameter, run.PhaseVariance,
		run.Passed, run.QualityPassed, run.Iterations, run.Converged, run.ProcessingMs,
		string(phasesJSON),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}
