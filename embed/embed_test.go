package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDimensions(t *testing.T) {
	e := NewMockEmbedder()
	require.Equal(t, 768, e.Dimension())
	require.Equal(t, 8192, e.MaxTokens())
}

func TestMockEmbedderIsL2Normalized(t *testing.T) {
	e := NewMockEmbedder()
	vecs, err := e.EmbedDocuments(context.Background(), []string{"Hello world", "Rust is great"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	for _, v := range vecs {
		require.Len(t, v, 768)
		var sumSq float64
		for _, x := range v {
			sumSq += float64(x) * float64(x)
		}
		require.InDelta(t, 1.0, math.Sqrt(sumSq), 0.01)
	}
}

func TestMockEmbedderIsDeterministic(t *testing.T) {
	e := NewMockEmbedder()
	a, err := e.EmbedQuery(context.Background(), "repeat me")
	require.NoError(t, err)
	b, err := e.EmbedQuery(context.Background(), "repeat me")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestMockEmbedderDistinguishesText(t *testing.T) {
	e := NewMockEmbedder()
	a, _ := e.EmbedQuery(context.Background(), "alpha")
	b, _ := e.EmbedQuery(context.Background(), "beta")
	require.NotEqual(t, a, b)
}

func TestMockEmbedderCustomConfig(t *testing.T) {
	e := NewMockEmbedderWithConfig(384, 512)
	vecs, err := e.EmbedDocuments(context.Background(), []string{"x"})
	require.NoError(t, err)
	require.Len(t, vecs[0], 384)
	require.Equal(t, 512, e.MaxTokens())
}

func TestMockEmbedderEmptyBatch(t *testing.T) {
	e := NewMockEmbedder()
	vecs, err := e.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vecs)
}

func TestCountTokensApproximation(t *testing.T) {
	e := NewMockEmbedder()
	require.Equal(t, len("abcd")/4+1, e.CountTokens("abcd"))
}
