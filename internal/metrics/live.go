package metrics

import "math"

// Resonance is the live-view quantity R = (K·N/2)·C².
func Resonance(coupling float64, n int, c float64) float64 {
	c = Clamp(c, 0, 1)
	return math.Max(0, Finite(coupling*float64(n)/2*c*c, 0))
}

// PhaseSpread estimates the phase standard deviation σθ = √(-2 ln C)
// from a coherence C, with C floored at 1e-6.
func PhaseSpread(c float64) float64 {
	c = math.Max(minCoherence, Clamp(c, 0, 1))
	return math.Sqrt(math.Max(0, -2*math.Log(c)))
}

// Wobble is the live-view instability W = ω0·ρqp·σθ.
func Wobble(omega0, rhoqp, c float64) float64 {
	return Finite(omega0*rhoqp*PhaseSpread(c), 0)
}

// Gate blending weights for callers that combine three already-normalized
// quality signals into one score.
const (
	BlendPrimary   = 0.4
	BlendSecondary = 0.3
	BlendTertiary  = 0.3
)

// Blend combines three [0, 1] signals with the gate blending weights.
func Blend(primary, secondary, tertiary float64) float64 {
	return Clamp(
		BlendPrimary*Clamp(primary, 0, 1)+
			BlendSecondary*Clamp(secondary, 0, 1)+
			BlendTertiary*Clamp(tertiary, 0, 1),
		0, 1)
}
