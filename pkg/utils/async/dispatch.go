package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// Group runs handlers in background goroutines detached from the request context
// and lets the owner wait for all of them on shutdown.
type Group struct {
	wg sync.WaitGroup
}

// Dispatch executes handler in a new goroutine with a background context that keeps
// the caller's logger. Errors and panics are logged, never propagated.
func (g *Group) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logger := logging.From(bgCtx)
			if ge := goerr.Unwrap(err); ge != nil {
				logger.Error("async handler failed", "error", err.Error(), "values", ge.Values())
			} else {
				logger.Error("async handler failed", "error", err.Error())
			}
		}
	}()
}

// Wait blocks until every dispatched handler has returned or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "async handlers still running")
	}
}

var defaultGroup Group

// Dispatch runs handler on the package-level group
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	defaultGroup.Dispatch(ctx, handler)
}
