// Package app provides the bookrag ingestion command.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/bookrag/cmd/bookrag-ingest/app/options"
	bookrag "github.com/kart-io/bookrag/internal/bookrag"
	"github.com/kart-io/bookrag/pkg/infra/app"
)

const commandDesc = `bookrag-ingest indexes the book chapters into the vector database.

Every .md, .mdx, .txt and .pdf file under --docs-dir is split into fixed-size
chunks, embedded and upserted with stable IDs, so re-running the command
overwrites instead of duplicating. Chunks that fail are listed in the report;
the command exits non-zero only when it is misconfigured.`

// NewApp creates the ingestion command.
func NewApp() *app.App {
	opts := options.NewIngestOptions()
	return app.NewApp(
		app.WithName(bookrag.IngestName),
		app.WithShortDescription("Index the book into the vector database"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.IngestOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cfg.Ingest(ctx)
	}
}
