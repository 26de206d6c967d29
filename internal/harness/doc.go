// Package harness replays scripted prompt sessions against the engine and
// checks the outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: warmup_lowers_threshold
//	description: "A run of coherent prompts relaxes the adaptive threshold"
//	seed: 7
//	params: {coupling: 2.0, threshold: 0.618, personalization: 0.0}
//	steps:
//	  - prompt: "hello world"
//	    expect: {passed: true, min_coherence: 0.6, token_count: 2}
//	  - prompt: ""
//	    params: {coupling: 0.0, threshold: 0.9, personalization: 0.0}
//	    expect: {token_count: 1}
//	assertions:
//	  - type: history_length
//	    count: 2
//	  - type: threshold_at_most
//	    value: 0.618
//	  - type: bounded
//
// # Assertion Types
//
//   - bounded: every step reports coherence, raw coherence and resonance in
//     [0, 1], entropy in [0, 4] and phases in [0, 2π)
//   - history_length: the session history holds exactly count entries
//   - threshold_at_most: the final adaptive threshold for the scenario's τ is
//     at most value
//   - passed_count: exactly count steps passed the gate
//   - runs_recorded: the run log holds exactly count runs for the session
//
// # Deterministic Testing
//
// Every scenario runs with its own seed, a fixed session id, a frozen wall
// clock and a fresh in-memory run log, so two runs of the same scenario
// produce identical traces. RunWithGolden compares that trace against a
// goldie fixture.
package harness
