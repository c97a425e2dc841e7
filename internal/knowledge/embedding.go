package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// localEmbeddingDim is the vector size of the offline embedder.
const localEmbeddingDim = 64

// localEmbedding is a deterministic, dependency-free embedding function
// used when no real embedder is configured. It hashes tokens into a fixed
// bag-of-words vector — good enough to rank a small curated catalog, and it
// keeps tests and air-gapped deployments off the network. Swap in a real
// chromem.EmbeddingFunc for semantic quality.
func localEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, localEmbeddingDim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%localEmbeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
