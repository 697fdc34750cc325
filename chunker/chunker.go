// Package chunker splits document content into token-bounded chunks
// using a recursive separator cascade: progressively finer separators
// are tried until every piece fits within the configured token budget.
package chunker

import (
	"strings"

	"github.com/ragkit/ragkit"
)

// Config controls chunking behaviour.
type Config struct {
	MaxTokens int // upper bound on estimated tokens per chunk
	MinTokens int // chunks smaller than this are dropped from the final result
	Overlap   int // reserved for future sliding-window support; currently unused
}

// DefaultConfig mirrors ragkit.DefaultConfig's chunking fields.
func DefaultConfig() Config {
	return Config{MaxTokens: 512, MinTokens: 50}
}

// Chunker recursively splits content into Chunks according to cfg.
type Chunker struct {
	cfg Config
}

// New returns a Chunker. Zero-value fields fall back to DefaultConfig.
func New(cfg Config) *Chunker {
	d := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = d.MinTokens
	}
	return &Chunker{cfg: cfg}
}

// piece is an intermediate chunk before final min-token filtering.
type piece struct {
	content   string
	tokens    int
	startLine int
	endLine   int
}

// Chunk splits content according to the separator cascade appropriate to
// contentType, then drops any final piece with fewer than cfg.MinTokens
// tokens. Line numbers are 1-based and inclusive.
func (c *Chunker) Chunk(content string, contentType ragkit.ContentType) []ragkit.Chunk {
	if content == "" {
		return nil
	}

	seps := separators(contentType)
	pieces := c.chunkRecursive(content, seps, 1)

	out := make([]ragkit.Chunk, 0, len(pieces))
	for _, p := range pieces {
		if p.tokens < c.cfg.MinTokens {
			continue
		}
		out = append(out, ragkit.Chunk{
			Content:    p.content,
			TokenCount: p.tokens,
			StartLine:  p.startLine,
			EndLine:    p.endLine,
		})
	}
	for i := range out {
		out[i].ChunkIndex = i
	}
	return out
}

// separators returns the ordered separator cascade for a content type:
// each candidate is tried in turn, from coarsest to finest, until one
// yields more than one part.
func separators(ct ragkit.ContentType) []string {
	switch ct {
	case ragkit.Markdown:
		return []string{"\n## ", "\n### ", "\n\n", "\n", ". ", " "}
	case ragkit.SourceCode:
		return []string{"\n\n", "\nfn ", "\ndef ", "\nfunc ", "\nclass ", "\nimpl ", "\n", " "}
	case ragkit.Structured:
		return []string{"\n\n", "\n", ", ", " "}
	default:
		return []string{"\n\n", "\n", ". ", " "}
	}
}

// estimateTokens approximates a token count from character length: the
// ~4 chars/token heuristic used throughout the cascade when no exact
// tokenizer is plugged in.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// chunkRecursive is the core of the cascade: if text already fits within
// MaxTokens it is returned whole; otherwise each separator is tried in
// order, accumulating split parts into token-bounded pieces and
// recursing into the remaining (finer) separators for any part that
// alone exceeds MaxTokens.
func (c *Chunker) chunkRecursive(text string, seps []string, startLine int) []piece {
	tokens := estimateTokens(text)
	if tokens <= c.cfg.MaxTokens {
		return []piece{{
			content:   text,
			tokens:    tokens,
			startLine: startLine,
			endLine:   startLine + countLines(text) - 1,
		}}
	}

	for sepIdx, sep := range seps {
		parts := splitBySeparator(text, sep)
		if len(parts) <= 1 {
			continue
		}

		var pieces []piece
		var current strings.Builder
		chunkStartLine := startLine
		currentLine := startLine

		flush := func(endLine int) {
			if current.Len() == 0 {
				return
			}
			content := current.String()
			pieces = append(pieces, piece{
				content:   content,
				tokens:    estimateTokens(content),
				startLine: chunkStartLine,
				endLine:   endLine,
			})
			current.Reset()
		}

		for _, part := range parts {
			var combined string
			if current.Len() == 0 {
				combined = part
			} else {
				combined = current.String() + sep + part
			}

			if estimateTokens(combined) <= c.cfg.MaxTokens {
				current.Reset()
				current.WriteString(combined)
				currentLine += countLines(part)
				continue
			}

			if current.Len() == 0 {
				// The part alone exceeds MaxTokens: recurse into finer
				// separators, or fall back to size-splitting if this was
				// the last separator in the cascade.
				remaining := seps[sepIdx+1:]
				if len(remaining) == 0 {
					pieces = append(pieces, c.splitBySize(part, currentLine)...)
				} else {
					pieces = append(pieces, c.chunkRecursive(part, remaining, currentLine)...)
				}
				currentLine += countLines(part)
				chunkStartLine = currentLine
				continue
			}

			// Flush the accumulated chunk, then start over with part.
			flush(currentLine - 1)

			if estimateTokens(part) <= c.cfg.MaxTokens {
				current.WriteString(part)
				chunkStartLine = currentLine
			} else {
				remaining := seps[sepIdx+1:]
				if len(remaining) == 0 {
					pieces = append(pieces, c.splitBySize(part, currentLine)...)
				} else {
					pieces = append(pieces, c.chunkRecursive(part, remaining, currentLine)...)
				}
				chunkStartLine = currentLine + countLines(part)
			}
			currentLine += countLines(part)
		}
		flush(currentLine - 1)

		if len(pieces) > 0 {
			return pieces
		}
	}

	// No separator produced more than one part: split by raw size.
	return c.splitBySize(text, startLine)
}

// splitBySeparator splits text on sep, dropping empty parts. An empty
// separator performs a rune-level split, the cascade's last resort
// before size-splitting kicks in.
func splitBySeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		parts := make([]string, 0, len(runes))
		for _, r := range runes {
			parts = append(parts, string(r))
		}
		return parts
	}
	raw := strings.Split(text, sep)
	parts := raw[:0:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// splitBySize is the final fallback: it breaks text into fixed-size
// windows (approximated from MaxTokens at ~4 chars/token), preferring to
// break on a word or line boundary when one is nearby.
func (c *Chunker) splitBySize(text string, startLine int) []piece {
	var pieces []piece
	runes := []rune(text)
	targetChars := c.cfg.MaxTokens * 4
	if targetChars < 1 {
		targetChars = 1
	}

	start := 0
	currentLine := startLine
	for start < len(runes) {
		end := start + targetChars
		if end > len(runes) {
			end = len(runes)
		}
		actualEnd := end
		if end < len(runes) {
			for i := end - 1; i > start; i-- {
				if runes[i] == ' ' || runes[i] == '\n' {
					actualEnd = i + 1
					break
				}
			}
		}

		chunkText := string(runes[start:actualEnd])
		tokens := estimateTokens(chunkText)
		linesInChunk := countLines(chunkText)

		if tokens > 0 {
			pieces = append(pieces, piece{
				content:   chunkText,
				tokens:    tokens,
				startLine: currentLine,
				endLine:   currentLine + linesInChunk - 1,
			})
		}

		currentLine += linesInChunk
		start = actualEnd
	}

	return pieces
}
