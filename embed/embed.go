// Package embed provides the Embedder interface used to turn chunk and
// query text into fixed-dimension vectors, plus a deterministic mock
// implementation for tests and a real HTTP-backed implementation for
// production use.
package embed

import (
	"context"
	"math"
)

// Document and query prefixes for asymmetric retrieval: most modern
// embedding models are trained to distinguish the two roles.
const (
	DocumentPrefix = "search_document: "
	QueryPrefix    = "search_query: "
)

// Embedder turns text into embedding vectors. Implementations must be
// safe for concurrent use.
type Embedder interface {
	// EmbedDocuments embeds a batch of chunk texts, applying DocumentPrefix.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query text, applying QueryPrefix.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// CountTokens estimates the token count of text.
	CountTokens(text string) int

	// Dimension reports the fixed length of vectors this Embedder produces.
	Dimension() int

	// MaxTokens reports the maximum input length this Embedder accepts.
	MaxTokens() int
}

// normalizeL2 scales v in place to unit length. A zero vector is left
// unchanged.
func normalizeL2(v []float32) {
	var sumSq float32
	for _, x := range v {
		sumSq += x * x
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	for i := range v {
		v[i] /= norm
	}
}
