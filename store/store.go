// Package store is the embedded relational storage engine: a single
// SQLite connection exposing collections, documents, and chunks, with a
// synchronous FTS5 mirror for lexical search and an optional vec0
// virtual table for dense-vector search.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/hlc"
)

func init() {
	sqlite_vec.Auto()
}

// ScoredChunk is a chunk returned by vector or keyword search, carrying
// its retrieval score and owning document id.
type ScoredChunk struct {
	Chunk ragkit.Chunk
	DocID string
	Score float64
}

// Change is one row's worth of replication payload: a HLC-stamped
// mutation to a document or chunk, used by GetChangesSince/ApplyChanges.
type Change struct {
	Kind string // "document" or "chunk"
	Doc  *ragkit.Document
	Chnk *ragkit.Chunk
	HLC  hlc.Clock
}

// Store wraps a single, non-reentrant SQLite connection. Per the
// storage engine's concurrency model, every exported method runs under
// mu: the connection and the process-wide HLC are both serialized
// resources, not a pool of interchangeable ones.
type Store struct {
	mu           sync.Mutex
	db           *sql.DB
	embeddingDim int
	vecEnabled   bool
	clock        hlc.Clock
}

// Open creates or opens the database at cfg.ResolveDBPath, applies the
// required pragmas, creates the base schema, and attempts to create the
// vector extension's virtual table. If the extension cannot be loaded,
// the store degrades to lexical-only search rather than failing to
// open — InsertEmbeddings will subsequently fail with DATABASE_ERROR.
func Open(cfg ragkit.Config) (*Store, error) {
	dbPath := cfg.ResolveDBPath()
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ragkit.Wrap(ragkit.CodeIOError, err, "creating database directory %s", dir)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d",
		dbPath, cfg.BusyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "opening database %s", dbPath)
	}

	// Single connection by design: the spec models the DB as one
	// exclusively-locked resource, not a pool (the teacher's own store
	// instead sizes a 4-connection pool; we deliberately pin it to 1).
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "pinging database %s", dbPath)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = %d", cfg.CacheSizeKB),
		fmt.Sprintf("PRAGMA mmap_size = %d", cfg.MmapSizeBytes),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "applying pragma %q", p)
		}
	}

	if _, err := db.Exec(baseSchemaSQL); err != nil {
		db.Close()
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "creating base schema")
	}

	vecEnabled := true
	if _, err := db.Exec(vecSchemaSQL(cfg.EmbeddingDim)); err != nil {
		slog.Warn("vector extension unavailable, degrading to lexical-only search", "error", err)
		vecEnabled = false
	}

	s := &Store{db: db, embeddingDim: cfg.EmbeddingDim, vecEnabled: vecEnabled}

	watermark, err := s.watermarkLocked(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	if watermark.Wall == 0 {
		s.clock = hlc.New(cfg.NodeID)
	} else {
		s.clock = watermark
	}

	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// VecEnabled reports whether the vector extension loaded successfully.
func (s *Store) VecEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vecEnabled
}

// tick advances and returns the process-wide HLC. Callers must hold mu.
func (s *Store) tick() hlc.Clock {
	s.clock = s.clock.Tick()
	return s.clock
}

func hlcBytes(c hlc.Clock) []byte {
	b := c.Bytes()
	return b[:]
}

func hlcFromBytes(b []byte) hlc.Clock {
	var arr [hlc.Size]byte
	copy(arr[:], b)
	return hlc.FromBytes(arr)
}

// --- Collection operations ---

// CreateCollection inserts a new, empty collection.
func (s *Store) CreateCollection(ctx context.Context, name, description string) (ragkit.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE name = ?`, name).Scan(&exists)
	if err == nil {
		return ragkit.Collection{}, ragkit.NewError(ragkit.CodeCollectionExists,
			fmt.Sprintf("collection %q already exists", name))
	}
	if err != sql.ErrNoRows {
		return ragkit.Collection{}, ragkit.Wrap(ragkit.CodeDatabaseError, err, "checking collection existence")
	}

	now := time.Now().UnixMilli()
	clock := s.tick()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (name, description, created_at, hlc) VALUES (?, ?, ?, ?)`,
		name, description, now, hlcBytes(clock))
	if err != nil {
		return ragkit.Collection{}, ragkit.Wrap(ragkit.CodeDatabaseError, err, "creating collection %q", name)
	}

	return ragkit.Collection{Name: name, Description: description, CreatedAtMs: now, HLC: clock}, nil
}

// GetCollection looks up a collection by name.
func (s *Store) GetCollection(ctx context.Context, name string) (ragkit.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCollectionLocked(ctx, name)
}

func (s *Store) getCollectionLocked(ctx context.Context, name string) (ragkit.Collection, error) {
	var c ragkit.Collection
	var desc sql.NullString
	var hlcBlob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT name, description, created_at, hlc FROM collections WHERE name = ?`, name,
	).Scan(&c.Name, &desc, &c.CreatedAtMs, &hlcBlob)
	if err == sql.ErrNoRows {
		return ragkit.Collection{}, ragkit.NewError(ragkit.CodeCollectionNotFound,
			fmt.Sprintf("collection %q not found", name))
	}
	if err != nil {
		return ragkit.Collection{}, ragkit.Wrap(ragkit.CodeDatabaseError, err, "loading collection %q", name)
	}
	c.Description = desc.String
	c.HLC = hlcFromBytes(hlcBlob)
	return c, nil
}

// ListCollections returns every collection, ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]ragkit.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, created_at, hlc FROM collections ORDER BY name`)
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "listing collections")
	}
	defer rows.Close()

	var out []ragkit.Collection
	for rows.Next() {
		var c ragkit.Collection
		var desc sql.NullString
		var hlcBlob []byte
		if err := rows.Scan(&c.Name, &desc, &c.CreatedAtMs, &hlcBlob); err != nil {
			return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "scanning collection row")
		}
		c.Description = desc.String
		c.HLC = hlcFromBytes(hlcBlob)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCollection removes a collection and, via ON DELETE CASCADE,
// every document, chunk, and embedding it owns.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getCollectionLocked(ctx, name); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if s.vecEnabled {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM vec_chunks WHERE chunk_id IN (
					SELECT c.id FROM chunks c JOIN documents d ON d.id = c.doc_id
					WHERE d.collection = ?
				)`, name); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
		return err
	})
}

// --- Document operations ---

// InsertDocument persists doc, stamping it with a fresh HLC tick.
func (s *Store) InsertDocument(ctx context.Context, doc ragkit.Document) (ragkit.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getCollectionLocked(ctx, doc.Collection); err != nil {
		return ragkit.Document{}, err
	}

	now := time.Now().UnixMilli()
	clock := s.tick()
	doc.CreatedAtMs, doc.UpdatedAtMs, doc.HLC = now, now, clock

	metaJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return ragkit.Document{}, ragkit.Wrap(ragkit.CodeSerializationError, err, "marshaling document metadata")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, collection, source_uri, content_hash, raw_content,
			content_type, metadata, created_at, updated_at, hlc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Collection, doc.SourceURI, nullableBytes(doc.ContentHash), doc.RawContent,
		int(doc.ContentType), metaJSON, doc.CreatedAtMs, doc.UpdatedAtMs, hlcBytes(clock))
	if err != nil {
		return ragkit.Document{}, ragkit.Wrap(ragkit.CodeDatabaseError, err, "inserting document %s", doc.ID)
	}
	return doc, nil
}

// GetDocument looks up a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (ragkit.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, collection, source_uri, content_hash, raw_content, content_type,
			metadata, created_at, updated_at, hlc
		FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return ragkit.Document{}, ragkit.NewError(ragkit.CodeDocumentNotFound, fmt.Sprintf("document %s not found", id))
	}
	if err != nil {
		return ragkit.Document{}, ragkit.Wrap(ragkit.CodeDatabaseError, err, "loading document %s", id)
	}
	return doc, nil
}

// ListDocuments returns every document in a collection, most recent first.
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]ragkit.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, source_uri, content_hash, raw_content, content_type,
			metadata, created_at, updated_at, hlc
		FROM documents WHERE collection = ? ORDER BY created_at DESC
	`, collection)
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "listing documents in %s", collection)
	}
	defer rows.Close()

	var out []ragkit.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "scanning document row")
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document, cascading to its chunks via
// ON DELETE CASCADE. Embeddings are deleted first: vec_chunks is not
// FK-linked to chunks, so the cascade would otherwise orphan its rows.
// The full-text index is kept in sync by the trigger on chunk deletion.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ragkit.NewError(ragkit.CodeDocumentNotFound, fmt.Sprintf("document %s not found", id))
	}
	if err != nil {
		return ragkit.Wrap(ragkit.CodeDatabaseError, err, "checking document %s", id)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if s.vecEnabled {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM vec_chunks WHERE chunk_id IN (
					SELECT id FROM chunks WHERE doc_id = ?)
			`, id); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (ragkit.Document, error) {
	var d ragkit.Document
	var contentHash, hlcBlob []byte
	var rawContent sql.NullString
	var contentType int
	var metaJSON string

	if err := row.Scan(&d.ID, &d.Collection, &d.SourceURI, &contentHash, &rawContent,
		&contentType, &metaJSON, &d.CreatedAtMs, &d.UpdatedAtMs, &hlcBlob); err != nil {
		return ragkit.Document{}, err
	}
	d.ContentHash = contentHash
	d.RawContent = rawContent.String
	d.ContentType = ragkit.ContentType(contentType)
	d.HLC = hlcFromBytes(hlcBlob)
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &d.Metadata); err != nil {
			return ragkit.Document{}, err
		}
	}
	return d, nil
}

// --- Chunk operations ---

// InsertChunks persists chunks transactionally, stamping each with the
// same HLC tick (they are written as one logical unit).
func (s *Store) InsertChunks(ctx context.Context, chunks []ragkit.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clock := s.tick()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, doc_id, chunk_index, content, token_count,
				start_line, end_line, content_hash, hlc)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range chunks {
			chunks[i].HLC = clock
			c := chunks[i]
			if _, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.ChunkIndex, c.Content,
				c.TokenCount, c.StartLine, c.EndLine, nullableBytes(c.ContentHash), hlcBytes(clock)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetChunksForDocument returns every chunk of doc_id, ordered by
// chunk_index ascending.
func (s *Store) GetChunksForDocument(ctx context.Context, docID string) ([]ragkit.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getChunksForDocumentLocked(ctx, docID)
}

func (s *Store) getChunksForDocumentLocked(ctx context.Context, docID string) ([]ragkit.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, chunk_index, content, token_count, start_line, end_line, content_hash, hlc
		FROM chunks WHERE doc_id = ? ORDER BY chunk_index ASC
	`, docID)
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "listing chunks for document %s", docID)
	}
	defer rows.Close()

	var out []ragkit.Chunk
	for rows.Next() {
		var c ragkit.Chunk
		var contentHash, hlcBlob []byte
		if err := rows.Scan(&c.ID, &c.DocID, &c.ChunkIndex, &c.Content, &c.TokenCount,
			&c.StartLine, &c.EndLine, &contentHash, &hlcBlob); err != nil {
			return nil, err
		}
		c.ContentHash = contentHash
		c.HLC = hlcFromBytes(hlcBlob)
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Embedding operations ---

// InsertEmbeddings stores one vector per chunk id. Fails with
// DATABASE_ERROR if the vector extension did not load.
func (s *Store) InsertEmbeddings(ctx context.Context, embeddings []ragkit.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.vecEnabled {
		return ragkit.NewError(ragkit.CodeDatabaseError, "vector extension not available; cannot insert embeddings")
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range embeddings {
			if _, err := stmt.ExecContext(ctx, e.ChunkID, serializeFloat32(e.Vector)); err != nil {
				return err
			}
		}
		return nil
	})
}

// VectorSearch returns the k nearest chunks to queryEmbedding by cosine
// similarity. It returns an empty slice (not an error) when the vector
// extension is unavailable, per the documented lexical-only degradation.
func (s *Store) VectorSearch(ctx context.Context, queryEmbedding []float32, k int, collection string) ([]ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.vecEnabled {
		return nil, nil
	}

	query := `
		SELECT v.chunk_id, v.distance, c.doc_id, c.chunk_index, c.content,
			c.token_count, c.start_line, c.end_line, c.hlc
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.doc_id
		WHERE v.embedding MATCH ? AND k = ?`
	args := []any{serializeFloat32(queryEmbedding), k}
	if collection != "" {
		query += ` AND d.collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY v.distance`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "vector search")
	}
	defer rows.Close()

	var out []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		var distance float64
		var hlcBlob []byte
		if err := rows.Scan(&sc.Chunk.ID, &distance, &sc.DocID, &sc.Chunk.ChunkIndex,
			&sc.Chunk.Content, &sc.Chunk.TokenCount, &sc.Chunk.StartLine, &sc.Chunk.EndLine, &hlcBlob); err != nil {
			return nil, err
		}
		sc.Chunk.DocID = sc.DocID
		sc.Chunk.HLC = hlcFromBytes(hlcBlob)
		sc.Score = 1.0 - distance // cosine distance -> similarity
		out = append(out, sc)
	}
	return out, rows.Err()
}

// KeywordSearch performs an FTS5 BM25 search over chunk content. The
// query is escaped by quoting each term, so arbitrary user input cannot
// break FTS5's query syntax.
func (s *Store) KeywordSearch(ctx context.Context, query string, limit int, collection string) ([]ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	escaped := escapeFTSQuery(query)
	if escaped == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT c.id, f.rank, c.doc_id, c.chunk_index, c.content,
			c.token_count, c.start_line, c.end_line, c.hlc
		FROM chunks_fts f
		JOIN chunks c ON c.rowid = f.rowid
		JOIN documents d ON d.id = c.doc_id
		WHERE chunks_fts MATCH ?`
	args := []any{escaped}
	if collection != "" {
		sqlQuery += ` AND d.collection = ?`
		args = append(args, collection)
	}
	sqlQuery += ` ORDER BY f.rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeDatabaseError, err, "keyword search")
	}
	defer rows.Close()

	var out []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		var rank float64
		var hlcBlob []byte
		if err := rows.Scan(&sc.Chunk.ID, &rank, &sc.DocID, &sc.Chunk.ChunkIndex,
			&sc.Chunk.Content, &sc.Chunk.TokenCount, &sc.Chunk.StartLine, &sc.Chunk.EndLine, &hlcBlob); err != nil {
			return nil, err
		}
		sc.Chunk.DocID = sc.DocID
		sc.Chunk.HLC = hlcFromBytes(hlcBlob)
		sc.Score = -rank // FTS5 rank is negative (lower = better); flip sign
		out = append(out, sc)
	}
	return out, rows.Err()
}

// escapeFTSQuery quotes every whitespace-separated term so it is matched
// literally, preventing FTS5 operator injection from raw query text.
func escapeFTSQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// --- Stats & watermark ---

// Stats computes aggregate counts, optionally scoped to one collection.
func (s *Store) Stats(ctx context.Context, collection string) (ragkit.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats ragkit.Stats
	stats.Filter = collection

	collWhere, args := "", []any{}
	if collection != "" {
		collWhere = "WHERE collection = ?"
		args = append(args, collection)
	}

	if collection == "" {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections`).Scan(&stats.Collections); err != nil {
			return stats, ragkit.Wrap(ragkit.CodeDatabaseError, err, "counting collections")
		}
	} else {
		stats.Collections = 1
	}

	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM documents %s`, collWhere), args...,
	).Scan(&stats.Documents); err != nil {
		return stats, ragkit.Wrap(ragkit.CodeDatabaseError, err, "counting documents")
	}

	chunkQuery := `SELECT COUNT(*) FROM chunks c JOIN documents d ON d.id = c.doc_id`
	if collection != "" {
		chunkQuery += ` WHERE d.collection = ?`
	}
	if err := s.db.QueryRowContext(ctx, chunkQuery, args...).Scan(&stats.Chunks); err != nil {
		return stats, ragkit.Wrap(ragkit.CodeDatabaseError, err, "counting chunks")
	}

	if s.vecEnabled {
		embedQuery := `SELECT COUNT(*) FROM vec_chunks v JOIN chunks c ON c.id = v.chunk_id JOIN documents d ON d.id = c.doc_id`
		if collection != "" {
			embedQuery += ` WHERE d.collection = ?`
		}
		if err := s.db.QueryRowContext(ctx, embedQuery, args...).Scan(&stats.Embeddings); err != nil {
			return stats, ragkit.Wrap(ragkit.CodeDatabaseError, err, "counting embeddings")
		}
	}

	if dbPath := s.dbFilePath(); dbPath != "" {
		if fi, err := os.Stat(dbPath); err == nil {
			stats.StorageBytes = fi.Size()
		}
	}

	return stats, nil
}

func (s *Store) dbFilePath() string {
	var seq, name, file string
	rows, err := s.db.Query(`PRAGMA database_list`)
	if err != nil {
		return ""
	}
	defer rows.Close()
	if rows.Next() {
		if rows.Scan(&seq, &name, &file) == nil {
			return file
		}
	}
	return ""
}

// Watermark returns the maximum HLC observed across documents and
// chunks — the basis for incremental replication cursors.
func (s *Store) Watermark(ctx context.Context) (hlc.Clock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermarkLocked(ctx)
}

func (s *Store) watermarkLocked(ctx context.Context) (hlc.Clock, error) {
	var max hlc.Clock
	for _, table := range []string{"documents", "chunks"} {
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT hlc FROM %s`, table))
		if err != nil {
			// Tables may not exist yet on first-ever open; ignore.
			continue
		}
		for rows.Next() {
			var blob []byte
			if err := rows.Scan(&blob); err != nil {
				rows.Close()
				return hlc.Clock{}, err
			}
			if c := hlcFromBytes(blob); c.Compare(max) > 0 {
				max = c
			}
		}
		rows.Close()
	}
	return max, nil
}

// --- Replication (supplemental; not part of the verified core) ---

// GetChangesSince returns every document and chunk whose HLC sorts
// strictly after since, ordered by HLC ascending.
func (s *Store) GetChangesSince(ctx context.Context, since hlc.Clock) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []Change

	docRows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, source_uri, content_hash, raw_content, content_type,
			metadata, created_at, updated_at, hlc
		FROM documents WHERE hlc > ? ORDER BY hlc ASC
	`, hlcBytes(since))
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeSyncError, err, "querying changed documents")
	}
	for docRows.Next() {
		d, err := scanDocument(docRows)
		if err != nil {
			docRows.Close()
			return nil, ragkit.Wrap(ragkit.CodeSyncError, err, "scanning changed document")
		}
		doc := d
		changes = append(changes, Change{Kind: "document", Doc: &doc, HLC: d.HLC})
	}
	docRows.Close()

	chunkRows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, chunk_index, content, token_count, start_line, end_line, content_hash, hlc
		FROM chunks WHERE hlc > ? ORDER BY hlc ASC
	`, hlcBytes(since))
	if err != nil {
		return nil, ragkit.Wrap(ragkit.CodeSyncError, err, "querying changed chunks")
	}
	defer chunkRows.Close()
	for chunkRows.Next() {
		var c ragkit.Chunk
		var contentHash, hlcBlob []byte
		if err := chunkRows.Scan(&c.ID, &c.DocID, &c.ChunkIndex, &c.Content, &c.TokenCount,
			&c.StartLine, &c.EndLine, &contentHash, &hlcBlob); err != nil {
			return nil, ragkit.Wrap(ragkit.CodeSyncError, err, "scanning changed chunk")
		}
		c.ContentHash = contentHash
		c.HLC = hlcFromBytes(hlcBlob)
		chnk := c
		changes = append(changes, Change{Kind: "chunk", Chnk: &chnk, HLC: c.HLC})
	}

	return changes, nil
}

// ApplyChanges merges a peer's changes into the local store, using
// last-writer-wins by HLC comparison (a row is overwritten only if the
// incoming HLC sorts after the stored one) and merging the local clock
// forward past every incoming timestamp.
func (s *Store) ApplyChanges(ctx context.Context, changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, ch := range changes {
			switch ch.Kind {
			case "document":
				if ch.Doc == nil {
					continue
				}
				metaJSON, err := marshalMetadata(ch.Doc.Metadata)
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO documents (id, collection, source_uri, content_hash, raw_content,
						content_type, metadata, created_at, updated_at, hlc)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT(id) DO UPDATE SET
						source_uri = excluded.source_uri,
						content_hash = excluded.content_hash,
						raw_content = excluded.raw_content,
						content_type = excluded.content_type,
						metadata = excluded.metadata,
						updated_at = excluded.updated_at,
						hlc = excluded.hlc
					WHERE excluded.hlc > documents.hlc
				`, ch.Doc.ID, ch.Doc.Collection, ch.Doc.SourceURI, nullableBytes(ch.Doc.ContentHash),
					ch.Doc.RawContent, int(ch.Doc.ContentType), metaJSON,
					ch.Doc.CreatedAtMs, ch.Doc.UpdatedAtMs, hlcBytes(ch.HLC)); err != nil {
					return err
				}
			case "chunk":
				if ch.Chnk == nil {
					continue
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO chunks (id, doc_id, chunk_index, content, token_count,
						start_line, end_line, content_hash, hlc)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT(id) DO UPDATE SET
						content = excluded.content,
						token_count = excluded.token_count,
						start_line = excluded.start_line,
						end_line = excluded.end_line,
						content_hash = excluded.content_hash,
						hlc = excluded.hlc
					WHERE excluded.hlc > chunks.hlc
				`, ch.Chnk.ID, ch.Chnk.DocID, ch.Chnk.ChunkIndex, ch.Chnk.Content, ch.Chnk.TokenCount,
					ch.Chnk.StartLine, ch.Chnk.EndLine, nullableBytes(ch.Chnk.ContentHash), hlcBytes(ch.HLC)); err != nil {
					return err
				}
			}
			if ch.HLC.Compare(s.clock) > 0 {
				s.clock = s.clock.Merge(ch.HLC)
			}
		}
		return nil
	})
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragkit.Wrap(ragkit.CodeDatabaseError, err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return ragkit.Wrap(ragkit.CodeDatabaseError, err, "transaction failed")
	}
	if err := tx.Commit(); err != nil {
		return ragkit.Wrap(ragkit.CodeDatabaseError, err, "committing transaction")
	}
	return nil
}

// serializeFloat32 converts a float32 slice to little-endian bytes, the
// wire format sqlite-vec expects for a vec0 embedding column.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
