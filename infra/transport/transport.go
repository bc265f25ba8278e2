// Package transport runs the message sources that feed the input bridge.
package transport

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Source reads messages from an external system and hands each one to a
// bridge.MessageHandler until its context is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// RunAll runs every source concurrently and blocks until they have all
// returned. The first source failing cancels the others; its error is
// returned. Cancellation of ctx is not reported as an error.
func RunAll(ctx context.Context, logger *slog.Logger, sources ...Source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			log := logger.With("source", src.Name())
			log.Info("🚀 Source started")
			err := src.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("source stopped", "error", err)
				return err
			}
			log.Info("Source stopped")
			return nil
		})
	}
	return g.Wait()
}
