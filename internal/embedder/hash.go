package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// HashEmbedder derives a deterministic pseudo-embedding from a SHA-256
// seeded PRNG over the input text. It requires no network access and no
// API key, which makes it the default for tests and a documented
// degraded-mode fallback: the core only requires that embedding be
// deterministic for a given input, a property this implementation
// satisfies exactly.
type HashEmbedder struct {
	dimension int
}

// NewHash constructs a HashEmbedder producing vectors of the given
// dimension; dimension defaults to 384 if zero.
func NewHash(dimension int) *HashEmbedder {
	if dimension == 0 {
		dimension = defaultDimension
	}
	return &HashEmbedder{dimension: dimension}
}

func (h *HashEmbedder) Dimension() int { return h.dimension }

func (h *HashEmbedder) Fingerprint() string { return fingerprint("hash", "sha256-prng", h.dimension) }

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return h.embedOne(text), nil
}

func (h *HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embedOne(t)
	}
	return out, nil
}

// embedOne expands a SHA-256 digest of text into a unit-normalized vector
// of the configured dimension, eight 32-bit lanes per digest, re-hashing a
// running state for each further block of eight lanes.
func (h *HashEmbedder) embedOne(text string) []float32 {
	seed := sha256.Sum256([]byte(text))
	vec := make([]float32, h.dimension)

	state := seed
	for i := 0; i < h.dimension; i++ {
		lane := i % 8
		if lane == 0 && i > 0 {
			state = sha256.Sum256(state[:])
		}
		bits := binary.LittleEndian.Uint32(state[lane*4 : lane*4+4])
		// Map to [-1, 1].
		vec[i] = float32(int32(bits))/float32(math.MaxInt32) - 0
	}

	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
}
