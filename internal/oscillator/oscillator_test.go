package oscillator

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestTokenize_LowercasesAndSplitsOnPunctuation(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, Tokenize("Hello, World!"))
	assert.Equal(t, []string{"snake_case", "42"}, Tokenize("snake_case -- 42"))
}

func TestTokenize_EmptyInputYieldsSentinel(t *testing.T) {
	for _, in := range []string{"", "   ", "!!! ... ???"} {
		assert.Equal(t, []string{SentinelToken}, Tokenize(in), "input %q", in)
	}
}

func TestTokenize_CapsTokenCount(t *testing.T) {
	text := strings.Repeat("word ", MaxTokens*2)
	assert.Len(t, Tokenize(text), MaxTokens)
}

func TestTokenize_NormalizesComposedForms(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	assert.Equal(t, Tokenize(composed), Tokenize(decomposed))
}

func TestEmbed_Deterministic(t *testing.T) {
	a := Embed("oscillator")
	b := Embed("oscillator")
	require.Len(t, a, EmbeddingDim)
	assert.Equal(t, a, b)

	c := 97.0 / 127 * math.Pi
	e := Embed("a")
	assert.InDelta(t, 0.5*math.Sin(c), e[0], 1e-12)
	assert.InDelta(t, 0.5*math.Cos(c), e[32], 1e-12)
	assert.Zero(t, e[1])
}

func TestSimilarity(t *testing.T) {
	a := Embed("token")
	assert.InDelta(t, 1.0, Similarity(a, a), 1e-12)
	assert.Zero(t, Similarity(a, nil))
	assert.Zero(t, Similarity(make([]float64, 4), make([]float64, 4)))
}

func TestAmplitude(t *testing.T) {
	assert.InDelta(t, 0.5, Amplitude("hello"), 1e-12)
	assert.InDelta(t, 1.0, Amplitude("extraordinarily"), 1e-12)
	assert.InDelta(t, 0.1, Amplitude(SentinelToken), 1e-12)
}

func TestFromText_SentinelForEmptyInput(t *testing.T) {
	ens := FromText("", seeded(1), 0)
	require.Equal(t, 1, ens.Len())
	assert.Equal(t, []string{SentinelToken}, ens.Tokens)
	assert.False(t, math.IsNaN(ens.Oscillators[0].Frequency))
}

func TestFromText_FrequenciesIndependentOfSeed(t *testing.T) {
	a := FromText("the quick brown fox", seeded(1), 0)
	b := FromText("the quick brown fox", seeded(99), 0)

	assert.Equal(t, a.Frequencies(), b.Frequencies())
	assert.Equal(t, a.Amplitudes(), b.Amplitudes())
	assert.NotEqual(t, a.Phases(), b.Phases())
}

func TestFromText_SameSeedSamePhases(t *testing.T) {
	a := FromText("hello world", seeded(7), 0)
	b := FromText("hello world", seeded(7), 0)
	assert.Equal(t, a.Phases(), b.Phases())

	for _, p := range a.Phases() {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, TwoPi)
	}
}

func TestFromText_FrequencyAdjustIsAdditive(t *testing.T) {
	base := FromText("hello", seeded(1), 0)
	shifted := FromText("hello", seeded(1), 0.25)
	assert.InDelta(t, base.Oscillators[0].Frequency+0.25, shifted.Oscillators[0].Frequency, 1e-12)
}

func TestAgentPhases_EvenlySpacedWithoutJitter(t *testing.T) {
	phases := AgentPhases(4, 0, seeded(1))
	require.Len(t, phases, 4)
	for i, p := range phases {
		assert.InDelta(t, float64(i)*math.Pi/2, p, 1e-12)
	}
	assert.Len(t, AgentPhases(0, 0, seeded(1)), 1)
}

func TestAgentPhases_JitterBounded(t *testing.T) {
	phases := AgentPhases(8, DefaultAgentJitter, seeded(3))
	for i, p := range phases {
		base := float64(i) / 8 * TwoPi
		assert.LessOrEqual(t, math.Abs(AngleDiff(p, base)), DefaultAgentJitter+1e-12)
	}
}

func TestEnsemble_SimilarityUniformWithoutEmbeddings(t *testing.T) {
	ens := FromAgents(3, 0, seeded(1))
	assert.True(t, ens.Uniform())
	assert.Equal(t, 1.0, ens.Similarity(0, 2))

	txt := FromText("alpha beta", seeded(1), 0)
	assert.False(t, txt.Uniform())
	assert.InDelta(t, 1.0, txt.Similarity(0, 0), 1e-12)
	assert.InDelta(t, txt.Similarity(0, 1), txt.Similarity(1, 0), 1e-12)
}

func TestEnsemble_ResizeKeepsPrefix(t *testing.T) {
	ens := Uniform(4, 1.0, 0.1, seeded(2))
	before := ens.Phases()

	ens.Resize(6, 1.0, 0.1, seeded(5))
	require.Equal(t, 6, ens.Len())
	assert.Equal(t, before, ens.Phases()[:4])

	ens.Resize(2, 1.0, 0.1, seeded(5))
	assert.Equal(t, before[:2], ens.Phases())
}

func TestEnsemble_CloneIsDeep(t *testing.T) {
	ens := FromText("deep copy", seeded(1), 0)
	c := ens.Clone()
	c.Oscillators[0].Phase = 1.234
	c.Oscillators[0].Embedding[0] = 42

	assert.NotEqual(t, 1.234, ens.Oscillators[0].Phase)
	assert.NotEqual(t, 42.0, ens.Oscillators[0].Embedding[0])
}

func TestWrap(t *testing.T) {
	assert.InDelta(t, TwoPi-0.1, Wrap(-0.1), 1e-12)
	assert.Equal(t, 0.0, Wrap(TwoPi))
	assert.InDelta(t, 1.0, Wrap(1.0+3*TwoPi), 1e-9)
	assert.Equal(t, 0.0, Wrap(math.NaN()))
	assert.Equal(t, 0.0, Wrap(math.Inf(1)))
}

func TestAngleDiff(t *testing.T) {
	assert.InDelta(t, 0.2, AngleDiff(0.1, TwoPi-0.1), 1e-12)
	assert.InDelta(t, -0.2, AngleDiff(TwoPi-0.1, 0.1), 1e-12)
	assert.InDelta(t, math.Pi, AngleDiff(math.Pi, 0), 1e-12)
}
