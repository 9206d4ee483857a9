package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultHashDims matches the vector width of the small sentence-embedding
// models the ollama backend typically serves, so switching backends does not
// invalidate an index built with the other one's dimensionality checks.
const DefaultHashDims = 384

// HashEmbedder is a deterministic, offline embedding backend: a hashed
// bag-of-words. Each lowercased word is hashed into one of dims buckets with
// a hash-derived sign, and the resulting vector is L2-normalized. Texts that
// share words land near each other, which is enough for tests and for
// air-gapped setups where no model server exists. The same text always
// yields the same vector.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of dims width.
// dims below 1 falls back to DefaultHashDims.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims < 1 {
		dims = DefaultHashDims
	}
	return &HashEmbedder{dims: dims}
}

// Embed implements Embedder. It never fails and ignores ctx; the signature
// matches the HTTP-backed client so the two are interchangeable.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word)) //nolint:errcheck // fnv never fails
		sum := h.Sum32()

		bucket := int(sum % uint32(e.dims))
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	return normalize(vec), nil
}

// normalize scales vec to unit length. The zero vector (empty input) is
// returned unchanged.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
