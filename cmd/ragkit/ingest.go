package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/ragkit/ragkit"
	"github.com/ragkit/ragkit/parser"
)

func runIngest(args []string) error {
	fsFlags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	collection := fsFlags.String("collection", "", "collection to ingest into (required)")
	recursive := fsFlags.Bool("recursive", false, "walk the given path and ingest every supported file")
	dbPath := fsFlags.String("db", "", "override the database path")
	if err := fsFlags.Parse(args); err != nil {
		return err
	}
	if fsFlags.NArg() < 1 || *collection == "" {
		return fmt.Errorf("usage: ragkit ingest <path_or_uri> --collection <name> [--recursive]")
	}
	target := fsFlags.Arg(0)

	e, err := openEngine(*dbPath)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := background()
	loader := parser.NewLoader()

	if !*recursive {
		return ingestOne(ctx, e, loader, *collection, target)
	}
	return filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !ragkit.IsSupportedFile(path) {
			return nil
		}
		return ingestOne(ctx, e, loader, *collection, path)
	})
}

func ingestOne(ctx context.Context, e *ragkit.Engine, loader *parser.Loader, collection, uri string) error {
	content, err := loader.Load(ctx, uri)
	if err != nil {
		return fmt.Errorf("loading %s: %w", uri, err)
	}

	n, err := e.Ingest(ctx, ragkit.IngestInput{
		Collection: collection,
		SourceURI:  uri,
		Content:    content,
	})
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", uri, err)
	}

	fmt.Printf("ingested %s into %q (%d chunks)\n", uri, collection, n)
	return nil
}
