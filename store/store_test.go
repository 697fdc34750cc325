//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkit/ragkit"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := ragkit.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.EmbeddingDim = 4
	cfg.NodeID = 1
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesParentDir(t *testing.T) {
	cfg := ragkit.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	cfg.EmbeddingDim = 4
	s, err := Open(cfg)
	require.NoError(t, err)
	s.Close()
}

func TestCreateAndGetCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.CreateCollection(ctx, "code", "source code snippets")
	require.NoError(t, err)
	require.Equal(t, "code", c.Name)
	require.NotZero(t, c.HLC.Wall)

	got, err := s.GetCollection(ctx, "code")
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestCreateCollectionDuplicateFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCollection(ctx, "dup", "")
	require.NoError(t, err)

	_, err = s.CreateCollection(ctx, "dup", "")
	require.Error(t, err)
	require.Equal(t, ragkit.CodeCollectionExists, ragkit.CodeOf(err))
}

func TestGetCollectionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCollection(context.Background(), "missing")
	require.Equal(t, ragkit.CodeCollectionNotFound, ragkit.CodeOf(err))
}

func TestInsertDocumentRequiresExistingCollection(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertDocument(context.Background(), ragkit.Document{
		ID: ragkit.NewULID(), Collection: "nope", SourceURI: "file:///a.txt",
	})
	require.Equal(t, ragkit.CodeCollectionNotFound, ragkit.CodeOf(err))
}

func TestDocumentAndChunkRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateCollection(ctx, "code", "")
	require.NoError(t, err)

	doc := ragkit.Document{
		ID:          ragkit.NewULID(),
		Collection:  "code",
		SourceURI:   "file:///main.rs",
		RawContent:  `fn main(){println!("Hello, world!")}`,
		ContentType: ragkit.SourceCode,
		Metadata:    map[string]any{"lang": "rust", "lines": float64(1)},
	}
	stored, err := s.InsertDocument(ctx, doc)
	require.NoError(t, err)
	require.NotZero(t, stored.HLC.Wall)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.RawContent, got.RawContent)
	require.Equal(t, "rust", got.Metadata["lang"])
	require.Equal(t, float64(1), got.Metadata["lines"])

	chunks := []ragkit.Chunk{
		{ID: ragkit.NewULID(), DocID: doc.ID, ChunkIndex: 0, Content: doc.RawContent, TokenCount: 10, StartLine: 1, EndLine: 1},
	}
	require.NoError(t, s.InsertChunks(ctx, chunks))

	fetched, err := s.GetChunksForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	require.Equal(t, doc.RawContent, fetched[0].Content)
}

func TestChunkIndexesAreStrictlyIncreasing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "c", "")
	require.NoError(t, err)
	doc, err := s.InsertDocument(ctx, ragkit.Document{ID: ragkit.NewULID(), Collection: "c", SourceURI: "x"})
	require.NoError(t, err)

	chunks := make([]ragkit.Chunk, 3)
	for i := range chunks {
		chunks[i] = ragkit.Chunk{ID: ragkit.NewULID(), DocID: doc.ID, ChunkIndex: i, Content: "x", TokenCount: 1, StartLine: 1, EndLine: 1}
	}
	require.NoError(t, s.InsertChunks(ctx, chunks))

	fetched, err := s.GetChunksForDocument(ctx, doc.ID)
	require.NoError(t, err)
	for i, c := range fetched {
		require.Equal(t, i, c.ChunkIndex)
	}
}

func TestKeywordSearchFindsIngestedContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "code", "")
	require.NoError(t, err)

	doc, err := s.InsertDocument(ctx, ragkit.Document{
		ID: ragkit.NewULID(), Collection: "code", SourceURI: "file:///main.rs",
	})
	require.NoError(t, err)

	require.NoError(t, s.InsertChunks(ctx, []ragkit.Chunk{
		{ID: ragkit.NewULID(), DocID: doc.ID, ChunkIndex: 0,
			Content: `fn main(){println!("Hello, world!")}`, TokenCount: 10, StartLine: 1, EndLine: 1},
	}))

	results, err := s.KeywordSearch(ctx, "hello", 10, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Contains(t, results[0].Chunk.Content, "Hello, world!")
}

func TestVectorSearchRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if !s.VecEnabled() {
		t.Skip("vector extension unavailable in this environment")
	}
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	doc, err := s.InsertDocument(ctx, ragkit.Document{ID: ragkit.NewULID(), Collection: "code", SourceURI: "x"})
	require.NoError(t, err)

	chunkID := ragkit.NewULID()
	require.NoError(t, s.InsertChunks(ctx, []ragkit.Chunk{
		{ID: chunkID, DocID: doc.ID, ChunkIndex: 0, Content: "vector me", TokenCount: 2, StartLine: 1, EndLine: 1},
	}))
	require.NoError(t, s.InsertEmbeddings(ctx, []ragkit.Embedding{
		{ChunkID: chunkID, Vector: []float32{1, 0, 0, 0}},
	}))

	results, err := s.VectorSearch(ctx, []float32{1, 0, 0, 0}, 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, chunkID, results[0].Chunk.ID)
	require.InDelta(t, 1.0, results[0].Score, 0.01)
}

func TestDeleteCollectionCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "c", "")
	require.NoError(t, err)
	doc, err := s.InsertDocument(ctx, ragkit.Document{ID: ragkit.NewULID(), Collection: "c", SourceURI: "x"})
	require.NoError(t, err)
	require.NoError(t, s.InsertChunks(ctx, []ragkit.Chunk{
		{ID: ragkit.NewULID(), DocID: doc.ID, ChunkIndex: 0, Content: "x", TokenCount: 1, StartLine: 1, EndLine: 1},
	}))

	require.NoError(t, s.DeleteCollection(ctx, "c"))

	_, err = s.GetCollection(ctx, "c")
	require.Equal(t, ragkit.CodeCollectionNotFound, ragkit.CodeOf(err))

	_, err = s.GetDocument(ctx, doc.ID)
	require.Equal(t, ragkit.CodeDocumentNotFound, ragkit.CodeOf(err))
}

func TestDeleteDocumentCascadesToChunksAndEmbeddings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "c", "")
	require.NoError(t, err)
	doc, err := s.InsertDocument(ctx, ragkit.Document{ID: ragkit.NewULID(), Collection: "c", SourceURI: "x"})
	require.NoError(t, err)

	chunkID := ragkit.NewULID()
	require.NoError(t, s.InsertChunks(ctx, []ragkit.Chunk{
		{ID: chunkID, DocID: doc.ID, ChunkIndex: 0, Content: "x", TokenCount: 1, StartLine: 1, EndLine: 1},
	}))
	if s.VecEnabled() {
		require.NoError(t, s.InsertEmbeddings(ctx, []ragkit.Embedding{
			{ChunkID: chunkID, Vector: []float32{1, 0, 0, 0}},
		}))
	}

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	_, err = s.GetDocument(ctx, doc.ID)
	require.Equal(t, ragkit.CodeDocumentNotFound, ragkit.CodeOf(err))

	chunks, err := s.GetChunksForDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestDeleteDocumentNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteDocument(context.Background(), ragkit.NewULID())
	require.Equal(t, ragkit.CodeDocumentNotFound, ragkit.CodeOf(err))
}

func TestWatermarkAdvancesWithWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	before, err := s.Watermark(ctx)
	require.NoError(t, err)

	_, err = s.CreateCollection(ctx, "c", "")
	require.NoError(t, err)
	doc, err := s.InsertDocument(ctx, ragkit.Document{ID: ragkit.NewULID(), Collection: "c", SourceURI: "x"})
	require.NoError(t, err)

	after, err := s.Watermark(ctx)
	require.NoError(t, err)
	require.True(t, before.Wall == 0 || before.Less(after))
	require.Equal(t, doc.HLC, after)
}

func TestStatsCountsAcrossCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, "a", "")
	require.NoError(t, err)
	_, err = s.CreateCollection(ctx, "b", "")
	require.NoError(t, err)
	_, err = s.InsertDocument(ctx, ragkit.Document{ID: ragkit.NewULID(), Collection: "a", SourceURI: "x"})
	require.NoError(t, err)

	stats, err := s.Stats(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, stats.Collections)
	require.Equal(t, 1, stats.Documents)

	scoped, err := s.Stats(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 1, scoped.Documents)
	require.Equal(t, 1, scoped.Collections)
}
