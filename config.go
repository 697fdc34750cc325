package ragkit

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the ragkit engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.rag/<DBName>.db
	DBPath string `toml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `toml:"db_name"`

	// StorageDir controls where the database is created when DBPath is
	// not set explicitly. "home" (default) uses ~/.rag/, "local" uses cwd.
	StorageDir string `toml:"storage_dir"`

	// Embedding provider configuration (the HTTPEmbedder's backend).
	Embedding EmbeddingConfig `toml:"embedding"`

	// Chunking
	MaxTokens     int `toml:"max_tokens"`
	MinTokens     int `toml:"min_tokens"`
	OverlapTokens int `toml:"overlap_tokens"`

	// Retrieval
	DefaultTopK  int     `toml:"default_top_k"`
	MaxTopK      int     `toml:"max_top_k"`
	HybridAlpha  float64 `toml:"hybrid_alpha"` // vector weight; keyword weight is 1-alpha
	RRFK         int     `toml:"rrf_k"`
	ContextChunks int    `toml:"context_chunks"`

	// Storage engine
	BusyTimeoutMs int   `toml:"busy_timeout_ms"`
	CacheSizeKB   int   `toml:"cache_size"` // negative = KB, per SQLite convention
	MmapSizeBytes int64 `toml:"mmap_size"`
	EmbeddingDim  int   `toml:"embedding_dim"`

	// NodeID identifies this process to the HLC and to replication peers.
	NodeID uint16 `toml:"node_id"`
}

// EmbeddingConfig configures the HTTP-backed embedding provider.
type EmbeddingConfig struct {
	Provider string `toml:"provider"` // ollama, openai, openrouter, custom
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

// DefaultConfig returns a Config with the defaults specified by the
// upstream design: max_tokens=512, min_tokens=50, default_top_k=10,
// max_top_k=100, hybrid_alpha=0.5, rrf_k=60, busy_timeout_ms=30000,
// cache_size=-64000 (64 MB), embedding_dim=768.
func DefaultConfig() Config {
	return Config{
		DBName:     "ragkit",
		StorageDir: "home",
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		MaxTokens:     512,
		MinTokens:     50,
		OverlapTokens: 0,
		DefaultTopK:   10,
		MaxTopK:       100,
		HybridAlpha:   0.5,
		RRFK:          60,
		ContextChunks: 1,
		BusyTimeoutMs: 30000,
		CacheSizeKB:   -64000,
		MmapSizeBytes: 256 * 1024 * 1024,
		EmbeddingDim:  768,
		NodeID:        1,
	}
}

// LoadConfig reads and decodes a TOML configuration file, starting from
// DefaultConfig and overlaying any fields present in the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, Wrap(CodeConfigError, err, "reading config file %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, Wrap(CodeConfigError, err, "parsing config file %s", path)
	}
	return cfg, nil
}

// ResolveDBPath computes the final database path from config fields.
func (c *Config) ResolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "ragkit"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		dir := filepath.Join(home, ".rag")
		return filepath.Join(dir, name+".db")
	}
}

// Validate reports a CONFIG_ERROR if the configuration has inconsistent
// or out-of-range values.
func (c *Config) Validate() error {
	if c.MinTokens <= 0 || c.MaxTokens <= 0 || c.MinTokens > c.MaxTokens {
		return NewError(CodeConfigError, fmt.Sprintf(
			"invalid token bounds: min_tokens=%d max_tokens=%d", c.MinTokens, c.MaxTokens))
	}
	if c.DefaultTopK <= 0 || c.MaxTopK <= 0 || c.DefaultTopK > c.MaxTopK {
		return NewError(CodeConfigError, fmt.Sprintf(
			"invalid top_k bounds: default_top_k=%d max_top_k=%d", c.DefaultTopK, c.MaxTopK))
	}
	if c.EmbeddingDim <= 0 {
		return NewError(CodeConfigError, "embedding_dim must be positive")
	}
	return nil
}
