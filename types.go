// Package ragkit is a local, embeddable retrieval-augmented knowledge
// base: documents are chunked, embedded, and indexed into named
// collections; queries are answered by fusing dense vector and lexical
// (BM25) retrieval via Reciprocal Rank Fusion.
package ragkit

import (
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/ragkit/ragkit/hlc"
)

// ContentType classifies a document's content for chunking purposes.
// The zero value is Unknown.
type ContentType int

const (
	Unknown ContentType = iota
	PlainText
	Markdown
	SourceCode
	Structured
)

// String returns the canonical lowercase name of the content type.
func (ct ContentType) String() string {
	switch ct {
	case PlainText:
		return "plaintext"
	case Markdown:
		return "markdown"
	case SourceCode:
		return "source_code"
	case Structured:
		return "structured"
	default:
		return "unknown"
	}
}

// sourceCodeExtensions lists extensions recognized as source code for
// chunking purposes. Matches the separator cascade's supported languages.
var sourceCodeExtensions = map[string]bool{
	".rs": true, ".py": true, ".ts": true, ".tsx": true, ".js": true,
	".jsx": true, ".go": true, ".java": true, ".c": true, ".h": true,
	".cc": true, ".cpp": true, ".hpp": true,
}

var structuredExtensions = map[string]bool{
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
}

var markdownExtensions = map[string]bool{
	".md": true, ".markdown": true,
}

// DetectContentType infers a ContentType from a source URI's file
// extension. Unrecognized or missing extensions yield Unknown.
func DetectContentType(sourceURI string) ContentType {
	ext := strings.ToLower(filepath.Ext(sourceURI))
	switch {
	case markdownExtensions[ext]:
		return Markdown
	case sourceCodeExtensions[ext]:
		return SourceCode
	case structuredExtensions[ext]:
		return Structured
	case ext == ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// binaryDocumentExtensions lists formats the parser package can extract
// text from that DetectContentType alone would not classify.
var binaryDocumentExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".xlsx": true, ".pptx": true,
}

// IsSupportedFile reports whether path has an extension recognized for
// content-type inference or binary document parsing, mirroring
// original_source's is_supported_file used to filter a recursive ingest
// walk.
func IsSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if binaryDocumentExtensions[ext] {
		return true
	}
	return DetectContentType(path) != Unknown
}

// NewULID generates a fresh, time-ordered ULID using the monotonic
// entropy source recommended by the ulid package.
func NewULID() string {
	return ulid.Make().String()
}

// Collection is a named namespace grouping documents.
type Collection struct {
	Name        string
	Description string
	CreatedAtMs int64
	HLC         hlc.Clock
}

// Document is an ingested source, owned by exactly one Collection.
type Document struct {
	ID          string // ULID
	Collection  string // FK -> Collection.Name
	SourceURI   string
	ContentHash []byte // 32 bytes, BLAKE3 of raw content; optional
	RawContent  string
	ContentType ContentType
	Metadata    map[string]any
	CreatedAtMs int64
	UpdatedAtMs int64
	HLC         hlc.Clock
}

// Chunk is a contiguous, independently embedded and indexed region of one
// Document.
type Chunk struct {
	ID          string // ULID
	DocID       string // FK -> Document.ID
	ChunkIndex  int    // 0-based, dense, unique within a document
	Content     string
	TokenCount  int
	StartLine   int
	EndLine     int
	ContentHash []byte // 32 bytes, BLAKE3; optional
	HLC         hlc.Clock
}

// Embedding is a fixed-dimension float vector associated with one Chunk.
type Embedding struct {
	ChunkID string
	Vector  []float32
}

// Stats holds derived counts over the store, optionally scoped to a
// single collection.
type Stats struct {
	Collections  int
	Documents    int
	Chunks       int
	Embeddings   int
	StorageBytes int64
	Filter       string // collection name, or "" for all collections
}

// SearchResult is one ranked hit from a search, hydrated with its chunk
// and the source document's identifying metadata.
type SearchResult struct {
	Rank       int // 1-based
	Score      float64
	Chunk      Chunk
	SourceURI  string
	Collection string
}

// SearchResults is the full response to a search query.
type SearchResults struct {
	Query        string
	TotalResults int
	LatencyMs    int64
	Results      []SearchResult
}
