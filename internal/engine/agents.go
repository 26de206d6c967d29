package engine

import (
	"context"
	"fmt"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/gate"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

// DefaultAgentCount is the agent ensemble size when none is given.
const DefaultAgentCount = 5

// AgentResult is the outcome of a multi-agent consensus run.
type AgentResult struct {
	SessionID  string           `json:"session_id"`
	Seq        int64            `json:"seq"`
	Agents     int              `json:"agents"`
	Phases     []float64        `json:"phases"`
	Scores     []float64        `json:"scores"`
	Snapshot   metrics.Snapshot `json:"snapshot"`
	Vote       gate.VoteResult  `json:"vote"`
	Iterations int              `json:"iterations"`
	Converged  bool             `json:"converged"`
}

// RunAgents synchronizes n agents from jittered, evenly spaced phases and
// votes on the result: each agent scores the blend of order parameter, its
// own alignment and coherence, and the run passes when DefaultConsensus of
// agents reach the nominal threshold.
//
// Agent runs replace the session ensemble but do not feed the history.
func (e *Engine) RunAgents(ctx context.Context, n int, params Params) AgentResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	if n < 1 {
		n = DefaultAgentCount
	}
	p := params.Clamp()

	ens := oscillator.FromAgents(n, e.jitter, e.rng)
	out := e.integrate(ens, Params{Coupling: p.Coupling}, e.adapter.Profile())
	e.ensemble = ens

	snap := metrics.Measure(ens)
	phases := ens.Phases()
	scores := gate.AgentScores(snap, phases)
	vote := gate.Vote(scores, p.Threshold, gate.DefaultConsensus)

	res := AgentResult{
		SessionID:  e.id,
		Seq:        e.clock.Next(),
		Agents:     n,
		Phases:     phases,
		Scores:     scores,
		Snapshot:   snap,
		Vote:       vote,
		Iterations: out.Steps,
		Converged:  out.Converged,
	}

	e.logger.Debug("agent vote",
		"session", e.id,
		"agents", n,
		"approvals", vote.Approvals,
		"passed", vote.Passed,
	)

	quality := e.gate.Check(snap)
	e.record(ctx, store.KindAgents, fmt.Sprintf("agents/%d", n), p, Result{
		SessionID:        res.SessionID,
		Seq:              res.Seq,
		Coherence:        snap.Coherence,
		RawCoherence:     snap.Coherence,
		Resonance:        vote.PassRate,
		Entropy:          snap.Entropy,
		Phases:           phases,
		OrderParameter:   snap.OrderParameter,
		PhaseVariance:    snap.PhaseVariance,
		TokenCount:       n,
		Iterations:       out.Steps,
		Converged:        out.Converged,
		ProcessingTimeMs: elapsedMs(start, e.now()),
		Decision: gate.Decision{
			Passed:            vote.Passed,
			RawCoherence:      snap.Coherence,
			AdjustedCoherence: snap.Coherence,
			AdaptiveThreshold: p.Threshold,
			QualityPassed:     quality.Passed(),
			Subchecks:         quality,
		},
	})
	return res
}
