// Package app provides the bookrag verification command.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/bookrag/cmd/bookrag-verify/app/options"
	bookrag "github.com/kart-io/bookrag/internal/bookrag"
	"github.com/kart-io/bookrag/pkg/infra/app"
)

const commandDesc = `bookrag-verify checks that the configured credentials work.

It asks the generative model to answer a short prompt and lists the
collections of the vector database, printing one PASS or FAIL line per check.`

// NewApp creates the verification command.
func NewApp() *app.App {
	opts := options.NewVerifyOptions()
	return app.NewApp(
		app.WithName(bookrag.VerifyName),
		app.WithShortDescription("Check generative model and vector database credentials"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.VerifyOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cfg.Verify(ctx)
	}
}
