package embed

import "context"

// MockEmbedder produces deterministic embeddings from a byte-fold hash of
// the input text, with no model or network dependency. It exists for
// tests and for running the engine without a configured embedding
// backend.
type MockEmbedder struct {
	dim       int
	maxTokens int
}

// NewMockEmbedder returns a MockEmbedder with the default 768-dimension,
// 8192-max-token configuration.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dim: 768, maxTokens: 8192}
}

// NewMockEmbedderWithConfig returns a MockEmbedder with a custom
// dimension and max token count, for exercising non-default shapes.
func NewMockEmbedderWithConfig(dim, maxTokens int) *MockEmbedder {
	return &MockEmbedder{dim: dim, maxTokens: maxTokens}
}

func (m *MockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.embedOne(text)
	}
	return out, nil
}

func (m *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return m.embedOne(text), nil
}

// embedOne folds the text's bytes into a 64-bit hash, expands it into a
// dim-length vector via a per-index multiplicative mix, then L2-normalizes
// the result. Deterministic: the same text always yields the same vector.
func (m *MockEmbedder) embedOne(text string) []float32 {
	var hash uint64
	for i := 0; i < len(text); i++ {
		hash += uint64(text[i])
	}

	v := make([]float32, m.dim)
	for i := range v {
		v[i] = float32((hash*uint64(i+1))%1000)/1000.0 - 0.5
	}
	normalizeL2(v)
	return v
}

func (m *MockEmbedder) CountTokens(text string) int {
	n := len(text)/4 + 1
	return n
}

func (m *MockEmbedder) Dimension() int  { return m.dim }
func (m *MockEmbedder) MaxTokens() int  { return m.maxTokens }

var _ Embedder = (*MockEmbedder)(nil)
