package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ReadSession returns every run of a session ordered by seq.
// An unknown session yields an empty slice.
func (s *Store) ReadSession(ctx context.Context, sessionID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			session_id, seq, prompt_digest, token_count,
			coupling, threshold, personalization,
			raw_coherence, coherence, adaptive_threshold, resonance,
			entropy, order_parameter, phase_variance,
			passed, quality_passed, iterations, converged, processing_ms,
			phases
		FROM runs
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run        Run
		phasesJSON string
	)
	err := rows.Scan(
		&run.SessionID, &run.Seq, &run.PromptDigest, &run.TokenCount,
		&run.Coupling, &run.Threshold, &run.Personalization,
		&run.RawCoherence, &run.Coherence, &run.AdaptiveThreshold, &run.Resonance,
		&run.Entropy, &run.OrderParameter, &run.PhaseVariance,
		&run.Passed, &run.QualityPassed, &run.Iterations, &run.Converged, &run.ProcessingMs,
		&phasesJSON,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(phasesJSON), &run.Phases); err != nil {
		return Run{}, fmt.Errorf("scan run %s/%d: phases: %w", run.SessionID, run.Seq, err)
	}
	return run, nil
}

// ListSessions summarizes every session, oldest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id, s.kind, s.created_at,
			COUNT(r.seq),
			COALESCE(SUM(r.passed), 0),
			COALESCE(AVG(r.coherence), 0)
		FROM sessions s
		LEFT JOIN runs r ON r.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []SessionSummary{}
	for rows.Next() {
		var (
			sum       SessionSummary
			createdMs int64
		)
		if err := rows.Scan(&sum.ID, &sum.Kind, &createdMs, &sum.Runs, &sum.Passed, &sum.MeanCoherence); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// CountRuns returns the number of runs logged for a session.
func (s *Store) CountRuns(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// LastSeq returns the highest seq logged for a session, or 0.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM runs WHERE session_id = ?`, sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
