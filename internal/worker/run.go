package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"ildang/internal/amqp"
	"ildang/internal/log"
)

// ChangeConsumer delivers change messages until ctx is done.
type ChangeConsumer interface {
	ConsumeChanges(ctx context.Context, handler func(*amqp.ChangeMessage) error) error
}

// Run performs a startup export, then consumes change messages and re-exports
// everything every interval until ctx is done. A nil consumer leaves only the
// periodic export running.
func (w *ExportWorker) Run(ctx context.Context, consumer ChangeConsumer, interval time.Duration) error {
	w.logger.InfoContext(ctx, "Performing startup export...")
	if err := w.ExportAll(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup export failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeChanges(gctx, func(msg *amqp.ChangeMessage) error {
				return w.HandleChangeMessage(gctx, msg)
			})
		})
	} else {
		w.logger.InfoContext(ctx, "Skipping AMQP message consumption - no consumer configured")
	}

	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := w.ExportAll(gctx); err != nil {
						w.logger.ErrorContext(gctx, "Periodic export failed", log.FieldError, err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
