package oscillator

import (
	"math"
	"unicode/utf8"
)

// EmbeddingDim is the length of every token embedding.
const EmbeddingDim = 64

// Embed maps a token to a deterministic pseudo-embedding.
//
// Rune i (for i < EmbeddingDim) contributes 0.5·sin(cπ) at position i and
// 0.5·cos(cπ) at position (i+32) mod EmbeddingDim, where c = rune/127.
// Later runes overwrite earlier cosine slots for tokens longer than 32 runes.
func Embed(token string) []float64 {
	e := make([]float64, EmbeddingDim)

	i := 0
	for _, r := range token {
		if i >= EmbeddingDim {
			break
		}
		c := float64(r) / 127 * math.Pi
		e[i] = math.Sin(c) * 0.5
		e[(i+32)%EmbeddingDim] = math.Cos(c) * 0.5
		i++
	}

	return e
}

// BaseFrequency derives a natural frequency from a token and its embedding.
// adjust is an additive term supplied by the caller (the user profile).
func BaseFrequency(token string, embedding []float64, adjust float64) float64 {
	if len(embedding) == 0 {
		return 1.0 + adjust
	}
	var sum float64
	for _, v := range embedding {
		sum += math.Abs(v)
	}
	semanticWeight := sum / float64(len(embedding))
	lengthFactor := math.Log(float64(utf8.RuneCountInString(token))+1) / 3

	return 1.0 + semanticWeight*lengthFactor + adjust
}

// Amplitude grows with token length and saturates at 1 for ten or more runes.
func Amplitude(token string) float64 {
	return math.Min(1.0, float64(utf8.RuneCountInString(token))/10)
}

// Similarity is the cosine similarity of two embeddings.
// Embeddings of different length, or with zero magnitude, have similarity 0.
func Similarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	denom := math.Sqrt(magA) * math.Sqrt(magB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
