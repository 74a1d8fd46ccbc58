// Package store holds the three persisted state containers: the auth
// session, the onboarding profile and the waste entry log. Each store owns
// its slice of state, persists a full snapshot after every mutation and is
// safe for concurrent use.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Lifecycle is implemented by every store.
type Lifecycle interface {
	Name() string
	Load(ctx context.Context) error
	Flush(ctx context.Context) error
}

// Hydrate loads all stores concurrently. Unreadable snapshots are logged and
// the store keeps its defaults; only context cancellation is returned.
func Hydrate(ctx context.Context, logger *zap.Logger, stores ...Lifecycle) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range stores {
		s := s
		g.Go(func() error {
			err := s.Load(gctx)
			var readErr *domain.ErrPersistenceRead
			switch {
			case err == nil:
				logger.Debug("store hydrated", zap.String("store", s.Name()))
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return fmt.Errorf("hydrate %s: %w", s.Name(), err)
			case errors.As(err, &readErr):
				logger.Warn("snapshot unreadable, starting from defaults",
					zap.String("store", s.Name()),
					zap.String("key", readErr.Key),
					zap.Error(readErr.Err),
				)
				return nil
			default:
				return fmt.Errorf("hydrate %s: %w", s.Name(), err)
			}
		})
	}
	return g.Wait()
}

// FlushAll re-persists every store, returning the joined errors.
func FlushAll(ctx context.Context, stores ...Lifecycle) error {
	var errs []error
	for _, s := range stores {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
