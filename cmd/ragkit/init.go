package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/ragkit/ragkit"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	dbPath := fs.String("db", "", "override the database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := ragkit.DefaultConfig()
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	} else if v := os.Getenv("RAGKIT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	resolved := cfg.ResolveDBPath()
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("configuring embedder: %w", err)
	}

	e, err := ragkit.New(cfg, embedder)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer e.Close()

	confDir := filepath.Dir(configPath())
	if confDir != "." && confDir != "" {
		if err := os.MkdirAll(confDir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if _, err := os.Stat(configPath()); os.IsNotExist(err) {
			data, err := toml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding default config: %w", err)
			}
			if err := os.WriteFile(configPath(), data, 0o644); err != nil {
				return fmt.Errorf("writing default config: %w", err)
			}
		}
	}

	fmt.Printf("initialized database at %s\n", resolved)
	return nil
}
