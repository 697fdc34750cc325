package ragkit

import (
	"context"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/ragkit/ragkit/chunker"
	"github.com/ragkit/ragkit/embed"
	"github.com/ragkit/ragkit/query"
	"github.com/ragkit/ragkit/store"
)

// Engine is the top-level facade: it owns the storage engine, the
// chunker, the embedder, and the search engine, and exposes the ingest
// and search pipelines described by the storage and query packages.
type Engine struct {
	cfg      Config
	store    *store.Store
	chunkr   *chunker.Chunker
	embedder embed.Embedder
	searcher *query.Engine
}

// New opens the store at cfg's resolved path and wires the chunker,
// embedder, and search engine around it.
func New(cfg Config, embedder embed.Embedder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	chunkr := chunker.New(chunker.Config{
		MaxTokens: cfg.MaxTokens,
		MinTokens: cfg.MinTokens,
		Overlap:   cfg.OverlapTokens,
	})

	return &Engine{
		cfg:      cfg,
		store:    s,
		chunkr:   chunkr,
		embedder: embedder,
		searcher: query.New(s, embedder),
	}, nil
}

// Close releases the underlying storage connection.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying storage engine for diagnostic access.
func (e *Engine) Store() *store.Store {
	return e.store
}

// IngestInput is the input to Ingest.
type IngestInput struct {
	Collection  string
	SourceURI   string
	Content     string
	ContentType ContentType // zero value (Unknown) triggers inference from SourceURI
	Metadata    map[string]any
}

// Ingest runs the full ingest pipeline: verify the collection exists,
// infer content type, persist the document, chunk its content, persist
// the chunks transactionally, embed them, and persist the embeddings.
// It returns the number of chunks produced.
func (e *Engine) Ingest(ctx context.Context, in IngestInput) (int, error) {
	if _, err := e.store.GetCollection(ctx, in.Collection); err != nil {
		return 0, err
	}

	contentType := in.ContentType
	if contentType == Unknown {
		contentType = DetectContentType(in.SourceURI)
	}

	hash := blake3.Sum256([]byte(in.Content))
	doc := Document{
		ID:          NewULID(),
		Collection:  in.Collection,
		SourceURI:   in.SourceURI,
		ContentHash: hash[:],
		RawContent:  in.Content,
		ContentType: contentType,
		Metadata:    in.Metadata,
	}
	doc, err := e.store.InsertDocument(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	pieces := e.chunkr.Chunk(in.Content, contentType)
	if len(pieces) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pieces))
	for i := range pieces {
		pieces[i].ID = NewULID()
		pieces[i].DocID = doc.ID
		h := blake3.Sum256([]byte(pieces[i].Content))
		pieces[i].ContentHash = h[:]
		texts[i] = pieces[i].Content
	}

	if err := e.store.InsertChunks(ctx, pieces); err != nil {
		return 0, fmt.Errorf("inserting chunks: %w", err)
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) > 0 && e.store.VecEnabled() {
		embeddings := make([]Embedding, len(vectors))
		for i, v := range vectors {
			embeddings[i] = Embedding{ChunkID: pieces[i].ID, Vector: v}
		}
		if err := e.store.InsertEmbeddings(ctx, embeddings); err != nil {
			return 0, fmt.Errorf("embedding chunks: %w", err)
		}
	}

	return len(pieces), nil
}

// SearchConfig configures a single search call.
type SearchConfig = query.Config

// DefaultSearchConfig returns the engine's default search configuration.
func DefaultSearchConfig() SearchConfig {
	return query.DefaultConfig()
}

// Search runs a hybrid vector+keyword search and returns a fused,
// ranked result list.
func (e *Engine) Search(ctx context.Context, q string, cfg SearchConfig) (SearchResults, error) {
	return e.searcher.Search(ctx, q, cfg)
}

// KeywordOnlySearch skips embedding, fusion, and context expansion.
func (e *Engine) KeywordOnlySearch(ctx context.Context, q string, topK int, collection string) (SearchResults, error) {
	return e.searcher.KeywordOnlySearch(ctx, q, topK, collection)
}

// CreateCollection creates a new named collection.
func (e *Engine) CreateCollection(ctx context.Context, name, description string) (Collection, error) {
	return e.store.CreateCollection(ctx, name, description)
}

// ListCollections returns every collection known to the store.
func (e *Engine) ListCollections(ctx context.Context) ([]Collection, error) {
	return e.store.ListCollections(ctx)
}

// DeleteCollection removes a collection and cascades to its documents,
// chunks, and embeddings.
func (e *Engine) DeleteCollection(ctx context.Context, name string) error {
	return e.store.DeleteCollection(ctx, name)
}

// DeleteDocument removes a document and cascades to its chunks and
// embeddings.
func (e *Engine) DeleteDocument(ctx context.Context, id string) error {
	return e.store.DeleteDocument(ctx, id)
}

// Stats reports derived counts, optionally scoped to one collection.
func (e *Engine) Stats(ctx context.Context, collection string) (Stats, error) {
	return e.store.Stats(ctx, collection)
}
