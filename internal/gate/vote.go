package gate

import (
	"math"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
)

// DefaultConsensus is the share of approving agents a vote needs.
const DefaultConsensus = 2.0 / 3.0

// VoteResult summarizes a multi-agent vote.
type VoteResult struct {
	Approvals int     `json:"approvals"`
	Total     int     `json:"total"`
	PassRate  float64 `json:"pass_rate"`
	Passed    bool    `json:"passed"`
}

// Vote counts scores at or above threshold and passes when the approving
// share reaches consensus (DefaultConsensus when consensus <= 0).
func Vote(scores []float64, threshold, consensus float64) VoteResult {
	if consensus <= 0 {
		consensus = DefaultConsensus
	}
	res := VoteResult{Total: len(scores)}
	for _, s := range scores {
		if s >= threshold {
			res.Approvals++
		}
	}
	res.PassRate = float64(res.Approvals) / float64(max(1, res.Total))
	res.Passed = res.Total > 0 && res.PassRate >= consensus
	return res
}

// AgentScores scores each agent phase by blending the ensemble order
// parameter, the agent's alignment with the mean phase, and the ensemble
// coherence.
func AgentScores(snap metrics.Snapshot, phases []float64) []float64 {
	scores := make([]float64, len(phases))
	for i, theta := range phases {
		alignment := (1 + math.Cos(theta-snap.MeanPhase)) / 2
		scores[i] = metrics.Blend(snap.OrderParameter, alignment, snap.Coherence)
	}
	return scores
}
