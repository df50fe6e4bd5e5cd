package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cosmicworks/ragchat/internal/app"
	"github.com/cosmicworks/ragchat/internal/source"
)

// runIngest embeds and stores documents from a file, one document per line.
// Catalog exports are JSON lines, but any non-empty line is accepted.
func runIngest(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: ragchat ingest <collection> <file>")
	}

	collection, err := source.ParseCollection(args[0])
	if err != nil {
		return err
	}

	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("opening %s: %w", args[1], err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := a.Knowledge.Add(ctx, collection, line); err != nil {
			return fmt.Errorf("ingesting line %d: %w", count+1, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}

	fmt.Printf("ingested %d documents into %s\n", count, collection)
	return nil
}
