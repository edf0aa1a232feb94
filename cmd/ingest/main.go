// Command ingest converts EPUB and PDF files into library documents
// without starting the server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/inkwellapp/inkwell-server/internal/library"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ingest <storage-path> <source-file> [source-file...]")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	store, err := library.NewStore(os.Args[1], logger)
	if err != nil {
		logger.Error("cannot open library", "path", os.Args[1], "error", err)
		os.Exit(1)
	}
	ingestor := library.NewIngestor(store, logger)

	failures := 0
	for _, src := range os.Args[2:] {
		id, doc, err := ingestor.Ingest(src)
		if err != nil {
			logger.Error("ingest failed", "source", src, "error", err)
			failures++
			continue
		}
		fmt.Printf("%s  %q (%d chapters)\n", id, doc.Metadata.Title, len(doc.Spine))
	}

	if failures > 0 {
		os.Exit(1)
	}
}
