//go:build cgo

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/embed"
	"github.com/ragkit/ragkit/mcp"
)

func newTestHandler(t *testing.T) *handler {
	t.Helper()
	cfg := ragkit.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	cfg.EmbeddingDim = 8
	cfg.MinTokens = 1

	e, err := ragkit.New(cfg, embed.NewMockEmbedderWithConfig(8, 512))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return newHandler(mcp.New(e))
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.handleHealth(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleToolCreateCollection(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/{name}", h.handleTool)

	body, _ := json.Marshal(mcp.CollectionParams{Name: "docs"})
	req := httptest.NewRequest(http.MethodPost, "/tools/rag_create_collection", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result mcp.ToolResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.True(t, result.Success)
}

func TestHandleToolUnknownNameReturnsBadRequest(t *testing.T) {
	h := newTestHandler(t)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/{name}", h.handleTool)

	req := httptest.NewRequest(http.MethodPost, "/tools/rag_bogus", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
