package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ragkit/ragkit"
)

func TestChunkSimpleFitsInOneChunk(t *testing.T) {
	c := New(Config{MaxTokens: 100, MinTokens: 1})
	text := "Hello world. This is a test."

	chunks := c.Chunk(text, ragkit.PlainText)

	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0].Content)
	require.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestChunkParagraphSplit(t *testing.T) {
	c := New(Config{MaxTokens: 5, MinTokens: 1})
	text := "First paragraph with several words here.\n\n" +
		"Second paragraph also with words.\n\n" +
		"Third paragraph too."

	chunks := c.Chunk(text, ragkit.PlainText)

	require.GreaterOrEqual(t, len(chunks), 2, "low MaxTokens should force a paragraph split")
	for i, ch := range chunks {
		require.Equal(t, i, ch.ChunkIndex)
	}
}

func TestChunkLineNumbersStartAtOne(t *testing.T) {
	c := New(Config{MaxTokens: 20, MinTokens: 1})
	text := "Line 1\nLine 2\nLine 3\n\nLine 5\nLine 6"

	chunks := c.Chunk(text, ragkit.PlainText)

	require.NotEmpty(t, chunks)
	require.Equal(t, 1, chunks[0].StartLine)
}

func TestChunkEmptyContentYieldsNoChunks(t *testing.T) {
	c := New(DefaultConfig())
	require.Empty(t, c.Chunk("", ragkit.PlainText))
}

func TestChunkMinTokensFiltersTinyFragments(t *testing.T) {
	c := New(Config{MaxTokens: 5, MinTokens: 1000})
	text := "First paragraph with several words here.\n\nSecond paragraph also with words."

	chunks := c.Chunk(text, ragkit.PlainText)
	require.Empty(t, chunks, "every fragment is below MinTokens so none should survive")
}

func TestChunkMarkdownHeadingSeparators(t *testing.T) {
	c := New(Config{MaxTokens: 3, MinTokens: 1})
	text := "intro text\n## Section One\nbody one\n## Section Two\nbody two"

	chunks := c.Chunk(text, ragkit.Markdown)
	require.NotEmpty(t, chunks)

	var joined strings.Builder
	for _, ch := range chunks {
		joined.WriteString(ch.Content)
	}
	require.Contains(t, joined.String(), "Section One")
	require.Contains(t, joined.String(), "Section Two")
}

func TestChunkSourceCodeFunctionSeparators(t *testing.T) {
	c := New(Config{MaxTokens: 4, MinTokens: 1})
	text := "package main\nfunc a() {}\nfunc b() {}\nfunc c() {}"

	chunks := c.Chunk(text, ragkit.SourceCode)
	require.NotEmpty(t, chunks)
}

func TestChunkOversizedWordFallsBackToSizeSplit(t *testing.T) {
	c := New(Config{MaxTokens: 2, MinTokens: 1})
	text := strings.Repeat("x", 400) // one giant unsplittable token

	chunks := c.Chunk(text, ragkit.PlainText)
	require.Greater(t, len(chunks), 1, "an oversized unbreakable run must be split by size")

	var total int
	for _, ch := range chunks {
		total += len(ch.Content)
	}
	require.Equal(t, len(text), total, "size-split fallback must not drop any characters")
}

func TestChunkIndexesAreDenseAfterFiltering(t *testing.T) {
	c := New(Config{MaxTokens: 5, MinTokens: 3})
	text := "alpha beta gamma delta.\n\nx.\n\nepsilon zeta eta theta iota kappa."

	chunks := c.Chunk(text, ragkit.PlainText)
	for i, ch := range chunks {
		require.Equal(t, i, ch.ChunkIndex)
	}
}
