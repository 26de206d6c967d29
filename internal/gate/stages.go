package gate

import (
	"math"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/metrics"
)

// Stage is one pure coherence → coherence amplification step.
type Stage struct {
	Name  string
	Apply func(c float64) float64
}

// Amplification bonuses.
const (
	ClusterBonus    = 0.1
	SyncBonusWeight = 0.15
	fibonacciGain   = 0.1
)

var fibonacci = [...]float64{1, 1, 2, 3, 5, 8, 13, 21, 34, 55}

// DefaultPipeline is golden boost, then Fibonacci resonance, then phase
// amplification over phases.
func DefaultPipeline(phases []float64) []Stage {
	return []Stage{
		{Name: "golden", Apply: GoldenBoost},
		{Name: "fibonacci", Apply: FibonacciResonance},
		{Name: "phase", Apply: PhaseAmplification(phases)},
	}
}

// Run applies stages in order, clamping after each, and returns the final
// value with a trace.
func Run(stages []Stage, c float64) (float64, []StageTrace) {
	c = metrics.Clamp(c, 0, 1)
	trace := make([]StageTrace, 0, len(stages))
	for _, s := range stages {
		next := metrics.Clamp(s.Apply(c), 0, 1)
		trace = append(trace, StageTrace{Name: s.Name, Before: c, After: next})
		c = next
	}
	return c, trace
}

// GoldenBoost pulls c toward φ: c·(1 + (φ − c)/2).
func GoldenBoost(c float64) float64 {
	return c * (1 + (GoldenRatio-c)*0.5)
}

// FibonacciResonance scales c by the consecutive Fibonacci ratio selected by
// ⌊c·9⌋: c·(1 + (F[k]/F[k−1] − 1)·0.1).
func FibonacciResonance(c float64) float64 {
	last := len(fibonacci) - 1
	k := int(math.Floor(metrics.Clamp(c, 0, 1) * float64(last)))
	k = max(0, min(last, k))
	ratio := fibonacci[k] / fibonacci[max(0, k-1)]
	return c * (1 + (ratio-1)*fibonacciGain)
}

// PhaseAmplification returns a stage adding ClusterBonus when phases form at
// least one cluster and SyncBonusWeight times the mean pairwise cosine.
func PhaseAmplification(phases []float64) func(float64) float64 {
	clustered := len(metrics.Clusters(phases)) > 0
	sync := metrics.SyncStrength(phases)
	return func(c float64) float64 {
		if len(phases) == 0 {
			return c
		}
		if clustered {
			c += ClusterBonus
		}
		return c + sync*SyncBonusWeight
	}
}
