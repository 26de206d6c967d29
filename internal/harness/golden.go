package harness

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// DefaultGoldenDir is the fixture directory used when RunWithGolden is
// given an empty dir.
const DefaultGoldenDir = "testdata/golden"

// goldenPrecision is the number of decimals kept in golden traces. Floating
// point results can differ in the last bits across architectures.
const goldenPrecision = 9

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Seed         uint64       `json:"seed"`
	Trace        []TraceEvent `json:"trace"`
}

// Snapshot builds the golden form of result with every float rounded.
func Snapshot(scenario *Scenario, result *Result) TraceSnapshot {
	trace := make([]TraceEvent, len(result.Trace))
	for i, ev := range result.Trace {
		ev.RawCoherence = round(ev.RawCoherence)
		ev.Coherence = round(ev.Coherence)
		ev.AdaptiveThreshold = round(ev.AdaptiveThreshold)
		ev.Resonance = round(ev.Resonance)
		ev.Entropy = round(ev.Entropy)
		ev.OrderParameter = round(ev.OrderParameter)
		ev.PhaseVariance = round(ev.PhaseVariance)
		phases := make([]float64, len(ev.Phases))
		for j, theta := range ev.Phases {
			phases[j] = round(theta)
		}
		ev.Phases = phases
		trace[i] = ev
	}
	return TraceSnapshot{
		ScenarioName: scenario.Name,
		Seed:         scenario.Seed,
		Trace:        trace,
	}
}

// MarshalSnapshot encodes a snapshot as indented JSON with a trailing newline.
func MarshalSnapshot(s TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its trace against
// {dir}/{scenario.Name}.golden. An empty dir uses DefaultGoldenDir.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, dir string) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	data, err := MarshalSnapshot(Snapshot(scenario, result))
	if err != nil {
		return nil, err
	}

	newGoldie(t, dir).Assert(t, scenario.Name, data)
	return result, nil
}

func newGoldie(t *testing.T, dir string) *goldie.Goldie {
	if dir == "" {
		dir = DefaultGoldenDir
	}
	return goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
}

func round(v float64) float64 {
	scale := math.Pow(10, goldenPrecision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0 // no -0 in fixtures
	}
	return r
}
