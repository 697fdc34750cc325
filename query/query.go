package query

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/embed"
	"github.com/ragkit/ragkit/store"
)

// minFetchK is the floor on how many candidates each retrieval method is
// asked for before fusion, regardless of how small top_k is.
const minFetchK = 20

// Config configures a single hybrid search.
type Config struct {
	TopK           int
	VectorWeight   float64 // currently informational; fusion itself is unweighted RRF
	KeywordWeight  float64
	ExpandContext  bool
	ContextChunks  int
	Collection     string // "" searches all collections
}

// DefaultConfig returns the engine's default search configuration.
func DefaultConfig() Config {
	return Config{
		TopK:          10,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		ExpandContext: true,
		ContextChunks: 1,
	}
}

// Engine performs hybrid retrieval: concurrent dense vector and lexical
// search, fused by Reciprocal Rank Fusion, optionally hydrated with
// neighboring chunks for extra context.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
}

// New creates a hybrid search engine over s, embedding queries with e.
func New(s *store.Store, e embed.Embedder) *Engine {
	return &Engine{store: s, embedder: e}
}

// Search embeds query, retrieves candidates from both the vector and
// keyword indexes concurrently, fuses them via RRF, and hydrates the
// fused ids into full SearchResults. See KeywordOnlySearch for a path
// that skips embedding and fusion entirely.
func (e *Engine) Search(ctx context.Context, query string, cfg Config) (ragkit.SearchResults, error) {
	start := time.Now()
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}

	slog.Debug("query: searching", "query", query, "top_k", cfg.TopK)

	queryEmbedding, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return ragkit.SearchResults{}, err
	}

	fetchK := cfg.TopK * 2
	if fetchK < minFetchK {
		fetchK = minFetchK
	}

	var vecResults, kwResults []store.ScoredChunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vecResults, err = e.vectorSearch(gctx, queryEmbedding, fetchK, cfg.Collection)
		return err
	})
	g.Go(func() error {
		var err error
		kwResults, err = e.keywordSearch(gctx, query, fetchK, cfg.Collection)
		return err
	})
	if err := g.Wait(); err != nil {
		return ragkit.SearchResults{}, err
	}

	slog.Debug("query: retrieval complete",
		"vector_results", len(vecResults), "keyword_results", len(kwResults))

	lists := [][]string{chunkIDs(vecResults), chunkIDs(kwResults)}
	byID := indexScored(vecResults, kwResults)

	fused := reciprocalRankFusion(lists, cfg.TopK)

	results := make([]ragkit.SearchResult, 0, len(fused))
	seen := make(map[string]bool, len(fused))
	for i, f := range fused {
		if seen[f.id] {
			continue
		}
		seen[f.id] = true

		sc, ok := byID[f.id]
		if !ok {
			continue // stale fusion: index drifted between retrieval and hydration
		}
		doc, err := e.store.GetDocument(ctx, sc.DocID)
		if err != nil {
			continue
		}

		results = append(results, ragkit.SearchResult{
			Rank:       i + 1,
			Score:      f.score,
			Chunk:      sc.Chunk,
			SourceURI:  doc.SourceURI,
			Collection: doc.Collection,
		})
	}

	if cfg.ExpandContext && cfg.ContextChunks > 0 {
		var err error
		results, err = e.expandContext(ctx, results, cfg.ContextChunks, seen)
		if err != nil {
			return ragkit.SearchResults{}, err
		}
	}

	latency := time.Since(start).Milliseconds()
	slog.Info("query: search complete", "query", query, "latency_ms", latency, "results", len(results))

	return ragkit.SearchResults{
		Query:        query,
		TotalResults: len(results),
		LatencyMs:    latency,
		Results:      results,
	}, nil
}

// KeywordOnlySearch performs lexical search only, skipping embedding,
// fusion, and context expansion entirely.
func (e *Engine) KeywordOnlySearch(ctx context.Context, query string, topK int, collection string) (ragkit.SearchResults, error) {
	start := time.Now()
	if topK <= 0 {
		topK = DefaultConfig().TopK
	}

	scored, err := e.keywordSearch(ctx, query, topK, collection)
	if err != nil {
		return ragkit.SearchResults{}, err
	}

	results := make([]ragkit.SearchResult, 0, len(scored))
	for i, sc := range scored {
		doc, err := e.store.GetDocument(ctx, sc.DocID)
		if err != nil {
			continue
		}
		results = append(results, ragkit.SearchResult{
			Rank:       i + 1,
			Score:      sc.Score,
			Chunk:      sc.Chunk,
			SourceURI:  doc.SourceURI,
			Collection: doc.Collection,
		})
	}

	return ragkit.SearchResults{
		Query:        query,
		TotalResults: len(results),
		LatencyMs:    time.Since(start).Milliseconds(),
		Results:      results,
	}, nil
}

func (e *Engine) vectorSearch(ctx context.Context, embedding []float32, k int, collection string) ([]store.ScoredChunk, error) {
	return e.store.VectorSearch(ctx, embedding, k, collection)
}

func (e *Engine) keywordSearch(ctx context.Context, query string, k int, collection string) ([]store.ScoredChunk, error) {
	return e.store.KeywordSearch(ctx, query, k, collection)
}

// sortResultsByScoreDesc sorts results by score descending, stably.
func sortResultsByScoreDesc(results []ragkit.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func chunkIDs(scored []store.ScoredChunk) []string {
	ids := make([]string, len(scored))
	for i, sc := range scored {
		ids[i] = sc.Chunk.ID
	}
	return ids
}

func indexScored(lists ...[]store.ScoredChunk) map[string]store.ScoredChunk {
	byID := make(map[string]store.ScoredChunk)
	for _, list := range lists {
		for _, sc := range list {
			byID[sc.Chunk.ID] = sc
		}
	}
	return byID
}

// expandContext fetches every chunk of each result's parent document,
// locates the hit within it, and appends up to contextChunks preceding
// and following neighbor chunks not already in seen. Neighbors score
// half the originating hit's score. The combined list is then re-sorted
// by score descending and ranks reassigned from 1.
func (e *Engine) expandContext(ctx context.Context, results []ragkit.SearchResult, contextChunks int, seen map[string]bool) ([]ragkit.SearchResult, error) {
	expanded := make([]ragkit.SearchResult, 0, len(results)*2)

	for _, result := range results {
		docChunks, err := e.store.GetChunksForDocument(ctx, result.Chunk.DocID)
		if err != nil {
			return nil, err
		}

		currentIdx := 0
		for i, c := range docChunks {
			if c.ID == result.Chunk.ID {
				currentIdx = i
				break
			}
		}

		for i := 1; i <= contextChunks; i++ {
			if currentIdx-i < 0 {
				break
			}
			prev := docChunks[currentIdx-i]
			if seen[prev.ID] {
				continue
			}
			seen[prev.ID] = true
			expanded = append(expanded, ragkit.SearchResult{
				Score:      result.Score * 0.5,
				Chunk:      prev,
				SourceURI:  result.SourceURI,
				Collection: result.Collection,
			})
		}

		expanded = append(expanded, result)

		for i := 1; i <= contextChunks; i++ {
			if currentIdx+i >= len(docChunks) {
				break
			}
			next := docChunks[currentIdx+i]
			if seen[next.ID] {
				continue
			}
			seen[next.ID] = true
			expanded = append(expanded, ragkit.SearchResult{
				Score:      result.Score * 0.5,
				Chunk:      next,
				SourceURI:  result.SourceURI,
				Collection: result.Collection,
			})
		}
	}

	sortResultsByScoreDesc(expanded)
	for i := range expanded {
		expanded[i].Rank = i + 1
	}
	return expanded, nil
}
