//go:build cgo

package ragkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkit/ragkit/embed"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.EmbeddingDim = 8
	cfg.MinTokens = 1

	e, err := New(cfg, embed.NewMockEmbedderWithConfig(8, 512))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestIngestRequiresExistingCollection(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Ingest(context.Background(), IngestInput{
		Collection: "missing", SourceURI: "file:///a.txt", Content: "hello",
	})
	require.Equal(t, CodeCollectionNotFound, CodeOf(err))
}

func TestIngestAndSearchRoundtrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.CreateCollection(ctx, "code", "source snippets")
	require.NoError(t, err)

	n, err := e.Ingest(ctx, IngestInput{
		Collection:  "code",
		SourceURI:   "file:///main.rs",
		Content:     `fn main(){println!("Hello, world!")}`,
		ContentType: SourceCode,
	})
	require.NoError(t, err)
	require.Greater(t, n, 0)

	results, err := e.Search(ctx, "hello", DefaultSearchConfig())
	require.NoError(t, err)
	require.NotEmpty(t, results.Results)
	require.Contains(t, results.Results[0].Chunk.Content, "Hello, world!")
}

func TestIngestInfersContentTypeFromURI(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)

	n, err := e.Ingest(ctx, IngestInput{
		Collection: "docs",
		SourceURI:  "file:///notes.md",
		Content:    "# Title\n\nSome body text here that is long enough to survive chunking.",
	})
	require.NoError(t, err)
	require.Greater(t, n, 0)

	doc, err := e.store.ListDocuments(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, doc, 1)
	require.Equal(t, Markdown, doc[0].ContentType)
}

func TestStatsReflectIngestedData(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	_, err = e.Ingest(ctx, IngestInput{
		Collection: "code", SourceURI: "x.txt", Content: "some reasonably long content for chunking purposes",
	})
	require.NoError(t, err)

	stats, err := e.Stats(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, stats.Collections)
	require.Equal(t, 1, stats.Documents)
	require.Greater(t, stats.Chunks, 0)
}

func TestDeleteCollectionRemovesIngestedData(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.CreateCollection(ctx, "tmp", "")
	require.NoError(t, err)
	_, err = e.Ingest(ctx, IngestInput{Collection: "tmp", SourceURI: "x.txt", Content: "disposable content for this test"})
	require.NoError(t, err)

	require.NoError(t, e.DeleteCollection(ctx, "tmp"))

	stats, err := e.Stats(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 0, stats.Collections)
	require.Equal(t, 0, stats.Documents)
}
