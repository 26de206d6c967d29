// Package metrics derives synchronization aggregates from oscillator phases.
//
// Every function here is pure and total: degenerate input (no phases, zero
// amplitudes, a single occupied histogram bin) produces finite values
// clamped into the documented range instead of NaN or Inf.
package metrics

import (
	"math"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/oscillator"
)

// Composite coherence weights. They are heuristic and only need to match
// reference outputs.
const (
	WeightOrder    = 0.6
	WeightVariance = 0.25
	WeightEntropy  = 0.15
)

// EntropyBins is the histogram resolution used for phase entropy.
// Entropy is measured in bits, so it never exceeds log2(EntropyBins).
const EntropyBins = 16

// minCoherence guards the logarithm in Wobble.
const minCoherence = 1e-6

// Snapshot holds every aggregate derived from one phase set.
// A Snapshot is only ever produced by Measure, so its fields are always
// mutually consistent.
type Snapshot struct {
	OrderParameter float64 `json:"order_parameter"` // R in [0, 1]
	MeanPhase      float64 `json:"mean_phase"`      // ψ in (-π, π]
	PhaseVariance  float64 `json:"phase_variance"`  // second moment about the circular mean, [0, π²]
	Entropy        float64 `json:"entropy"`         // bits, [0, log2(EntropyBins)]
	Coherence      float64 `json:"coherence"`       // composite score in [0, 1]
}

// Measure computes a Snapshot from the ensemble's current phases.
func Measure(ens *oscillator.Ensemble) Snapshot {
	return MeasurePhases(ens.Phases(), ens.Amplitudes())
}

// MeasurePhases computes a Snapshot from raw phases and amplitudes.
// A nil amplitudes slice weights every phase by 1.
func MeasurePhases(phases, amplitudes []float64) Snapshot {
	r, psi := OrderParameter(phases, amplitudes)
	variance := CircularVariance(phases)
	entropy := Entropy(phases, EntropyBins)

	return Snapshot{
		OrderParameter: r,
		MeanPhase:      psi,
		PhaseVariance:  variance,
		Entropy:        entropy,
		Coherence:      Coherence(r, variance, entropy),
	}
}

// OrderParameter returns R = |mean(a_i·e^{iθ_i})| and its argument ψ.
func OrderParameter(phases, amplitudes []float64) (r, psi float64) {
	if len(phases) == 0 {
		return 0, 0
	}
	var sx, sy float64
	for i, theta := range phases {
		a := 1.0
		if amplitudes != nil && i < len(amplitudes) {
			a = amplitudes[i]
		}
		sx += a * math.Cos(theta)
		sy += a * math.Sin(theta)
	}
	n := float64(len(phases))
	sx /= n
	sy /= n

	r = Clamp(math.Hypot(sx, sy), 0, 1)
	psi = Finite(math.Atan2(sy, sx), 0)
	return r, psi
}

// CircularMean returns the unweighted circular mean of phases in (-π, π].
func CircularMean(phases []float64) float64 {
	var sx, sy float64
	for _, theta := range phases {
		sx += math.Cos(theta)
		sy += math.Sin(theta)
	}
	return Finite(math.Atan2(sy, sx), 0)
}

// CircularVariance is the mean squared angular distance from the circular
// mean. Distances are taken on the circle, so the result lies in [0, π²].
func CircularVariance(phases []float64) float64 {
	if len(phases) == 0 {
		return 0
	}
	mu := CircularMean(phases)
	var sum float64
	for _, theta := range phases {
		d := oscillator.AngleDiff(theta, mu)
		sum += d * d
	}
	return Clamp(sum/float64(len(phases)), 0, math.Pi*math.Pi)
}

// Entropy is the base-2 Shannon entropy of a fixed-bin phase histogram.
func Entropy(phases []float64, bins int) float64 {
	if len(phases) == 0 || bins < 1 {
		return 0
	}
	width := oscillator.TwoPi / float64(bins)
	hist := make([]int, bins)
	for _, theta := range phases {
		idx := int(oscillator.Wrap(theta)/width) % bins
		hist[idx]++
	}

	total := float64(len(phases))
	var h float64
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		h -= p * math.Log2(p)
	}
	return Clamp(h, 0, math.Log2(float64(bins)))
}

// Coherence blends order, variance and entropy into one score in [0, 1].
func Coherence(r, variance, entropy float64) float64 {
	c := WeightOrder*r +
		WeightVariance*math.Exp(-variance) +
		WeightEntropy*math.Exp(-entropy)
	return Clamp(c, 0, 1)
}

// SyncStrength is the mean of cos(θ_i - θ_j) over all unordered pairs.
// It lies in [-1, 1] and is 0 for fewer than two phases.
func SyncStrength(phases []float64) float64 {
	n := len(phases)
	if n < 2 {
		return 0
	}
	var sum float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += math.Cos(phases[i] - phases[j])
			pairs++
		}
	}
	return Clamp(sum/float64(pairs), -1, 1)
}

// ClusterWidth is the angular radius used by Clusters.
const ClusterWidth = math.Pi / 4

// Clusters groups phase indices greedily: each phase joins the first
// cluster whose circular mean lies within ClusterWidth, otherwise it starts
// a new cluster. Only clusters with two or more members are returned.
func Clusters(phases []float64) [][]int {
	var clusters [][]int
	var members [][]float64

	for i, theta := range phases {
		placed := false
		for c := range clusters {
			center := CircularMean(members[c])
			if math.Abs(oscillator.AngleDiff(theta, center)) < ClusterWidth {
				clusters[c] = append(clusters[c], i)
				members[c] = append(members[c], theta)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []int{i})
			members = append(members, []float64{theta})
		}
	}

	out := clusters[:0]
	for _, c := range clusters {
		if len(c) > 1 {
			out = append(out, c)
		}
	}
	return out
}

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Finite returns v unless it is NaN or ±Inf, in which case it returns fallback.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
