// Package mcp exposes the knowledge base as six named tools behind a
// single dispatcher, shared by the HTTP and stdio JSON-RPC transports in
// cmd/ragkit-server.
package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragkit/ragkit"
)

// ToolResult is the uniform response shape for every tool: success plus
// a human-readable message. Structured data (search hits, stats) is
// rendered into the message rather than returned as a second field, so
// every tool has one response shape regardless of what it does.
type ToolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(format string, args ...any) ToolResult {
	return ToolResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// ToolInfo describes one tool for discovery/listing.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerInfo identifies this server to a connecting client.
type ServerInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Server dispatches tool calls against an *ragkit.Engine.
type Server struct {
	engine *ragkit.Engine
}

// New wraps an already-open engine in a tool dispatcher.
func New(engine *ragkit.Engine) *Server {
	return &Server{engine: engine}
}

// Info returns this server's identity.
func (s *Server) Info() ServerInfo {
	return ServerInfo{
		Name:        "ragkit-mcp",
		Version:     "0.1.0",
		Description: "Local RAG server with vector and keyword search",
	}
}

// Tools lists the six tools this server exposes.
func (s *Server) Tools() []ToolInfo {
	return []ToolInfo{
		{Name: "rag_search", Description: "Search the knowledge base for relevant documents"},
		{Name: "rag_ingest", Description: "Ingest a document into the knowledge base"},
		{Name: "rag_list_collections", Description: "List all collections"},
		{Name: "rag_create_collection", Description: "Create a new collection"},
		{Name: "rag_delete_collection", Description: "Delete a collection"},
		{Name: "rag_stats", Description: "Get statistics about the knowledge base"},
	}
}

// SearchParams is rag_search's input.
type SearchParams struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
	Collection string `json:"collection,omitempty"`
}

// IngestParams is rag_ingest's input.
type IngestParams struct {
	Collection  string `json:"collection"`
	SourceURI   string `json:"source_uri"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

// CollectionParams is the input to rag_create_collection and (name only)
// rag_delete_collection.
type CollectionParams struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// StatsParams is rag_stats's input.
type StatsParams struct {
	Collection string `json:"collection,omitempty"`
}

// Call dispatches one tool invocation by name, unmarshaling params into
// the tool's expected shape via the supplied decode function. decode
// should json.Unmarshal raw params into v; it is injected so the caller
// (HTTP body, JSON-RPC params) controls the wire format.
func (s *Server) Call(ctx context.Context, name string, decode func(v any) error) ToolResult {
	switch name {
	case "rag_search":
		var p SearchParams
		if err := decode(&p); err != nil {
			return fail("invalid parameters: %v", err)
		}
		return s.search(ctx, p)
	case "rag_ingest":
		var p IngestParams
		if err := decode(&p); err != nil {
			return fail("invalid parameters: %v", err)
		}
		return s.ingest(ctx, p)
	case "rag_list_collections":
		return s.listCollections(ctx)
	case "rag_create_collection":
		var p CollectionParams
		if err := decode(&p); err != nil {
			return fail("invalid parameters: %v", err)
		}
		return s.createCollection(ctx, p)
	case "rag_delete_collection":
		var p CollectionParams
		if err := decode(&p); err != nil {
			return fail("invalid parameters: %v", err)
		}
		return s.deleteCollection(ctx, p)
	case "rag_stats":
		var p StatsParams
		if err := decode(&p); err != nil {
			return fail("invalid parameters: %v", err)
		}
		return s.stats(ctx, p)
	default:
		return fail("unknown tool: %s", name)
	}
}

func (s *Server) search(ctx context.Context, p SearchParams) ToolResult {
	topK := p.TopK
	if topK <= 0 {
		topK = 10
	}

	var results ragkit.SearchResults
	var err error
	if s.engine.Store().VecEnabled() {
		cfg := ragkit.DefaultSearchConfig()
		cfg.TopK = topK
		cfg.Collection = p.Collection
		results, err = s.engine.Search(ctx, p.Query, cfg)
	} else {
		results, err = s.engine.KeywordOnlySearch(ctx, p.Query, topK, p.Collection)
	}
	if err != nil {
		return fail("search failed: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results in %dms:\n\n", results.TotalResults, results.LatencyMs)
	for _, r := range results.Results {
		fmt.Fprintf(&b, "---\n[%d] %s (score: %.3f)\n", r.Rank, r.SourceURI, r.Score)
		fmt.Fprintf(&b, "Lines %d-%d:\n```\n%s\n```\n\n", r.Chunk.StartLine, r.Chunk.EndLine, r.Chunk.Content)
	}
	return ok("%s", b.String())
}

func (s *Server) ingest(ctx context.Context, p IngestParams) ToolResult {
	contentType := ragkit.Unknown
	if p.ContentType != "" {
		contentType = ragkit.DetectContentType("x." + p.ContentType)
	}

	n, err := s.engine.Ingest(ctx, ragkit.IngestInput{
		Collection:  p.Collection,
		SourceURI:   p.SourceURI,
		Content:     p.Content,
		ContentType: contentType,
	})
	if err != nil {
		return fail("%v", err)
	}
	return ok("Successfully ingested '%s' with %d chunks.", p.SourceURI, n)
}

func (s *Server) listCollections(ctx context.Context) ToolResult {
	cols, err := s.engine.ListCollections(ctx)
	if err != nil {
		return fail("failed to list collections: %v", err)
	}
	if len(cols) == 0 {
		return ok("No collections found.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d collections:\n\n", len(cols))
	for _, c := range cols {
		desc := c.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, desc)
	}
	return ok("%s", b.String())
}

func (s *Server) createCollection(ctx context.Context, p CollectionParams) ToolResult {
	if _, err := s.engine.CreateCollection(ctx, p.Name, p.Description); err != nil {
		return fail("failed to create collection: %v", err)
	}
	return ok("Collection '%s' created.", p.Name)
}

func (s *Server) deleteCollection(ctx context.Context, p CollectionParams) ToolResult {
	if err := s.engine.DeleteCollection(ctx, p.Name); err != nil {
		return fail("failed to delete collection: %v", err)
	}
	return ok("Collection '%s' deleted.", p.Name)
}

func (s *Server) stats(ctx context.Context, p StatsParams) ToolResult {
	stats, err := s.engine.Stats(ctx, p.Collection)
	if err != nil {
		return fail("failed to get stats: %v", err)
	}

	var b strings.Builder
	if p.Collection != "" {
		fmt.Fprintf(&b, "Statistics for collection '%s':\n\n", p.Collection)
	} else {
		b.WriteString("Overall statistics:\n\n")
	}
	fmt.Fprintf(&b, "- Collections: %d\n", stats.Collections)
	fmt.Fprintf(&b, "- Documents: %d\n", stats.Documents)
	fmt.Fprintf(&b, "- Chunks: %d\n", stats.Chunks)
	fmt.Fprintf(&b, "- Embeddings: %d\n", stats.Embeddings)
	fmt.Fprintf(&b, "- Storage: %.2f MB\n", float64(stats.StorageBytes)/1024/1024)
	return ok("%s", b.String())
}
