// Command ragkit is a command-line client for the local retrieval-
// augmented knowledge base: create collections, ingest documents, and
// run hybrid searches against the on-disk store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/embed"
	"github.com/ragkit/ragkit/llm"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "init":
		err = runInit(args)
	case "ingest":
		err = runIngest(args)
	case "search":
		err = runSearch(args)
	case "collection":
		err = runCollection(args)
	case "stats":
		err = runStats(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "ragkit: unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ragkit: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ragkit - local retrieval-augmented knowledge base

Usage:
  ragkit init [--db path]
  ragkit collection create <name> [--description text] [--db path]
  ragkit collection list [--db path]
  ragkit collection delete <name> [--db path]
  ragkit ingest <path_or_uri> --collection <name> [--recursive] [--db path]
  ragkit search <query> [--collection name] [-k n] [--db path]
  ragkit stats [--collection name] [--db path]

Every subcommand accepts --db to override the database path. Default
path is $HOME/.rag/ragkit.db, overridable also via RAGKIT_DB_PATH.`)
}

// openEngine loads config (defaulting if config.toml is absent), applies
// a --db override, and opens the engine with a mock or HTTP embedder
// depending on configured embedding provider.
func openEngine(dbPath string) (*ragkit.Engine, error) {
	cfg, err := ragkit.LoadConfig(configPath())
	if err != nil {
		cfg = ragkit.DefaultConfig()
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	} else if v := os.Getenv("RAGKIT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring embedder: %w", err)
	}

	return ragkit.New(cfg, embedder)
}

func configPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.rag/config.toml"
}

func buildEmbedder(cfg ragkit.Config) (embed.Embedder, error) {
	if cfg.Embedding.Provider == "" || cfg.Embedding.Provider == "mock" {
		return embed.NewMockEmbedderWithConfig(cfg.EmbeddingDim, 8192), nil
	}

	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return embed.NewHTTPEmbedder(provider, cfg.EmbeddingDim, 8192), nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func background() context.Context {
	return context.Background()
}
