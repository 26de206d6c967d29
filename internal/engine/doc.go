// Package engine owns one session's phase-synchronization state and drives
// it from two scheduling contexts.
//
// Request mode (Engine.Process) tokenizes a prompt, integrates the ensemble
// to convergence or the iteration cap, measures it, runs the coherence gate
// against the session history, and then feeds the outcome back into the
// history and profile. The caller blocks for the whole run.
//
// Tick mode (Live.Tick) advances a preset-driven ensemble by exactly one
// integration step per call and returns a snapshot immediately.
//
// Both modes share the integrator and metric extractor. Neither ever fails on
// numeric input: empty prompts become a sentinel token, non-finite values are
// clamped, and non-convergence is reported rather than raised.
//
// SESSION OWNERSHIP:
//
// An Engine is one session. Its ensemble, history and profile are never
// shared between sessions, and Reset clears all of them together. Methods
// take an internal lock, so concurrent callers are serialized rather than
// interleaved. Live is not locked; it belongs to the single render loop
// that ticks it.
//
// ORDERING:
//
// Every completed request is stamped with a seq from the session Clock.
// Recorded runs are keyed by (session id, seq), never by wall time.
package engine
