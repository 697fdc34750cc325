package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/ragkit/ragkit"
)

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	collection := fs.String("collection", "", "restrict the search to one collection")
	topK := fs.Int("k", 0, "number of results to return (default: 10)")
	dbPath := fs.String("db", "", "override the database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: ragkit search <query> [--collection name] [-k n]")
	}
	query := strings.Join(fs.Args(), " ")

	e, err := openEngine(*dbPath)
	if err != nil {
		return err
	}
	defer e.Close()

	cfg := ragkit.DefaultSearchConfig()
	cfg.Collection = *collection
	if *topK > 0 {
		cfg.TopK = *topK
	}

	results, err := e.Search(background(), query, cfg)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	printJSON(results)
	return nil
}
