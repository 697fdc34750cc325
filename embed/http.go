package embed

import (
	"context"
	"sync"

	"github.com/ragkit/ragkit/llm"
)

// HTTPEmbedder embeds text via an HTTP-backed llm.Provider (ollama,
// openai-compatible, etc.), applying the asymmetric document/query
// prefixes and L2-normalizing the provider's raw output. Embedding calls
// are serialized by mu.
type HTTPEmbedder struct {
	mu        sync.Mutex
	provider  llm.Provider
	dim       int
	maxTokens int
}

// NewHTTPEmbedder wraps provider as an Embedder with the given dimension
// and max token count (the provider itself has no notion of either).
func NewHTTPEmbedder(provider llm.Provider, dim, maxTokens int) *HTTPEmbedder {
	return &HTTPEmbedder{provider: provider, dim: dim, maxTokens: maxTokens}
}

func (h *HTTPEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = DocumentPrefix + t
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	vecs, err := h.provider.Embed(ctx, prefixed)
	if err != nil {
		return nil, err
	}
	for _, v := range vecs {
		normalizeL2(v)
	}
	return vecs, nil
}

func (h *HTTPEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	vecs, err := h.provider.Embed(ctx, []string{QueryPrefix + text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	normalizeL2(vecs[0])
	return vecs[0], nil
}

func (h *HTTPEmbedder) CountTokens(text string) int {
	return len(text)/4 + 1
}

func (h *HTTPEmbedder) Dimension() int { return h.dim }
func (h *HTTPEmbedder) MaxTokens() int { return h.maxTokens }

var _ Embedder = (*HTTPEmbedder)(nil)
