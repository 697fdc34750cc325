package parser

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Loader resolves a source URI (file://, https://, data:) into flat
// ingestable text, dispatching binary formats to the registered Parser
// for their extension and falling back to a raw read for everything
// else.
type Loader struct {
	registry *Registry
	client   *http.Client
}

// NewLoader returns a Loader backed by the default parser registry.
func NewLoader() *Loader {
	return &Loader{registry: NewRegistry(), client: &http.Client{}}
}

// Load resolves uri by scheme (file://, https:///http://, data:, or a
// bare filesystem path treated as file://) and returns its content as
// text. Binary formats recognized by the registry (pdf, docx, pptx,
// xlsx) are parsed and their sections flattened into one string;
// everything else is returned as-is.
func (l *Loader) Load(ctx context.Context, uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		return decodeDataURI(uri)
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		return l.loadHTTP(ctx, uri)
	case strings.HasPrefix(uri, "file://"):
		return l.loadFile(ctx, strings.TrimPrefix(uri, "file://"))
	default:
		return l.loadFile(ctx, uri)
	}
}

func (l *Loader) loadFile(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if p, err := l.registry.Get(ext); err == nil {
		result, err := p.Parse(ctx, path)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", path, err)
		}
		return flatten(result), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func (l *Loader) loadHTTP(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", uri, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response from %s: %w", uri, err)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(uri), "."))
	if _, err := l.registry.Get(ext); err != nil {
		return string(body), nil
	}

	// Binary formats need a local file for the zip/xlsx readers that
	// operate on paths rather than streams.
	tmp, err := os.CreateTemp("", "ragkit-fetch-*."+ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := tmp.Write(body); err != nil {
		return "", err
	}
	tmp.Close()

	return l.loadFile(ctx, tmp.Name())
}

// decodeDataURI decodes a data: URI of the form
// "data:[<mediatype>][;base64],<data>" into its content.
func decodeDataURI(uri string) (string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", fmt.Errorf("malformed data URI: missing comma")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", fmt.Errorf("decoding base64 data URI: %w", err)
		}
		return string(decoded), nil
	}
	return payload, nil
}

// flatten joins a ParseResult's sections into one plain-text document:
// each section's heading (if any) followed by its content.
func flatten(result *ParseResult) string {
	var b strings.Builder
	for _, s := range result.Sections {
		if s.Heading != "" {
			b.WriteString(s.Heading)
			b.WriteString("\n")
		}
		b.WriteString(s.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
