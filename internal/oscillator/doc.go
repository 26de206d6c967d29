// Package oscillator turns text into a pool of phase oscillators.
//
// Every token of the input becomes one Oscillator carrying a phase angle,
// a natural frequency, an amplitude, and a fixed-length embedding derived
// from the token's characters. The embedding is deterministic: the same
// token always produces the same frequency and amplitude. Only the initial
// phase is random, and it is drawn from the caller's *rand.Rand so seeded
// callers get reproducible ensembles.
//
// INVARIANTS:
//   - An Ensemble built by FromText, FromAgents or Uniform always holds at
//     least one oscillator. Empty input is replaced by SentinelToken rather
//     than rejected, so downstream math never divides by zero.
//   - Phases are kept in [0, 2π) by Wrap after every mutation.
//   - Oscillators are never removed one at a time; a reset replaces the
//     whole Ensemble.
package oscillator
