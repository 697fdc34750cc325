//go:build cgo

package sync

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/store"
)

func newStore(t *testing.T, nodeID uint16) *store.Store {
	t.Helper()
	cfg := ragkit.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.EmbeddingDim = 4
	cfg.NodeID = nodeID
	s, err := store.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPullReplicatesNewDocuments(t *testing.T) {
	ctx := context.Background()
	a := newStore(t, 1)
	b := newStore(t, 2)

	_, err := a.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	doc, err := a.InsertDocument(ctx, ragkit.Document{ID: ragkit.NewULID(), Collection: "code", SourceURI: "x"})
	require.NoError(t, err)

	_, err = b.CreateCollection(ctx, "code", "")
	require.NoError(t, err)

	n, err := Pull(ctx, b, a)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	got, err := b.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.SourceURI, got.SourceURI)
}

func TestPullIsNoOpWhenUpToDate(t *testing.T) {
	ctx := context.Background()
	a := newStore(t, 1)
	b := newStore(t, 2)

	_, err := a.CreateCollection(ctx, "code", "")
	require.NoError(t, err)
	_, err = b.CreateCollection(ctx, "code", "")
	require.NoError(t, err)

	n, err := Pull(ctx, b, a)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
