package main

import (
	"flag"
	"fmt"
)

func runCollection(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ragkit collection {create|list|delete} ...")
	}
	sub := args[0]
	rest := args[1:]

	fs := flag.NewFlagSet("collection "+sub, flag.ContinueOnError)
	dbPath := fs.String("db", "", "override the database path")
	description := fs.String("description", "", "collection description (create only)")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	e, err := openEngine(*dbPath)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := background()

	switch sub {
	case "create":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: ragkit collection create <name> [--description text]")
		}
		c, err := e.CreateCollection(ctx, fs.Arg(0), *description)
		if err != nil {
			return fmt.Errorf("creating collection: %w", err)
		}
		fmt.Printf("created collection %q\n", c.Name)
		return nil

	case "list":
		cols, err := e.ListCollections(ctx)
		if err != nil {
			return fmt.Errorf("listing collections: %w", err)
		}
		if len(cols) == 0 {
			fmt.Println("no collections")
			return nil
		}
		for _, c := range cols {
			fmt.Printf("%s\t%s\n", c.Name, c.Description)
		}
		return nil

	case "delete":
		if fs.NArg() < 1 {
			return fmt.Errorf("usage: ragkit collection delete <name>")
		}
		if err := e.DeleteCollection(ctx, fs.Arg(0)); err != nil {
			return fmt.Errorf("deleting collection: %w", err)
		}
		fmt.Printf("deleted collection %q\n", fs.Arg(0))
		return nil

	default:
		return fmt.Errorf("unknown collection subcommand %q", sub)
	}
}
