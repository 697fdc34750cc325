//go:build cgo

package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/embed"
	"github.com/ragkit/ragkit/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	cfg := ragkit.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.EmbeddingDim = 8
	s, err := store.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := embed.NewMockEmbedderWithConfig(8, 512)
	return New(s, e), s
}

func ingestOne(t *testing.T, s *store.Store, collection, content string) ragkit.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := s.InsertDocument(ctx, ragkit.Document{
		ID: ragkit.NewULID(), Collection: collection, SourceURI: "file:///x.txt", RawContent: content,
	})
	require.NoError(t, err)
	require.NoError(t, s.InsertChunks(ctx, []ragkit.Chunk{
		{ID: ragkit.NewULID(), DocID: doc.ID, ChunkIndex: 0, Content: content, TokenCount: 4, StartLine: 1, EndLine: 1},
	}))
	return doc
}

func TestSearchFindsKeywordMatch(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	ingestOne(t, s, "code", "the quick brown fox jumps")

	results, err := eng.Search(ctx, "quick brown", Config{TopK: 5, ExpandContext: false})
	require.NoError(t, err)
	require.NotEmpty(t, results.Results)
	require.Contains(t, results.Results[0].Chunk.Content, "quick brown")
	require.Equal(t, 1, results.Results[0].Rank)
}

func TestSearchRanksAreContiguous(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	ingestOne(t, s, "code", "alpha beta gamma")
	ingestOne(t, s, "code", "beta gamma delta")

	results, err := eng.Search(ctx, "beta gamma", Config{TopK: 10, ExpandContext: false})
	require.NoError(t, err)
	for i, r := range results.Results {
		require.Equal(t, i+1, r.Rank)
	}
}

func TestKeywordOnlySearchSkipsEmbedding(t *testing.T) {
	eng, s := newTestEngine(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	ingestOne(t, s, "code", "ship it friday")

	results, err := eng.KeywordOnlySearch(ctx, "friday", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results.Results)
}

func TestSearchNoResultsForUnmatchedQuery(t *testing.T) {
	eng, s := newTestEngine(t)
	if s.VecEnabled() {
		t.Skip("vector search would still surface the lone chunk by similarity; this checks the keyword-only no-match path")
	}
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	ingestOne(t, s, "code", "hello world")

	results, err := eng.Search(ctx, "zzz_no_such_term_exists", Config{TopK: 5, ExpandContext: false})
	require.NoError(t, err)
	require.Empty(t, results.Results)
}
