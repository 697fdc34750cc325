package main

import (
	"flag"
	"fmt"
)

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	collection := fs.String("collection", "", "restrict stats to one collection")
	dbPath := fs.String("db", "", "override the database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := openEngine(*dbPath)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := e.Stats(background(), *collection)
	if err != nil {
		return fmt.Errorf("fetching stats: %w", err)
	}

	printJSON(s)
	return nil
}
