package oscillator

import "math"

// TwoPi is one full turn.
const TwoPi = 2 * math.Pi

// Wrap maps any finite angle into [0, 2π). Non-finite input maps to 0.
func Wrap(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return 0
	}
	w := math.Mod(theta, TwoPi)
	if w < 0 {
		w += TwoPi
	}
	// math.Mod of a tiny negative value can round back up to exactly 2π.
	if w >= TwoPi {
		w = 0
	}
	return w
}

// AngleDiff returns a-b mapped into (-π, π].
func AngleDiff(a, b float64) float64 {
	d := Wrap(a - b)
	if d > math.Pi {
		d -= TwoPi
	}
	return d
}
