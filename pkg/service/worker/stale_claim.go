package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// StaleClaimWorker re-dispatches analysis for claims left in submitted or
// ai_review longer than the threshold, e.g. after a restart dropped an
// in-process job.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Analysis runs are idempotent, so a duplicate dispatch only repeats work
type StaleClaimWorker struct {
	claims     interfaces.ClaimRepository
	dispatcher interfaces.AnalysisDispatcher
	interval   time.Duration
	threshold  time.Duration
	now        func() time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
}

type Option func(*StaleClaimWorker)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(w *StaleClaimWorker) {
		w.now = now
	}
}

func NewStaleClaimWorker(claims interfaces.ClaimRepository, dispatcher interfaces.AnalysisDispatcher, interval, threshold time.Duration, opts ...Option) *StaleClaimWorker {
	w := &StaleClaimWorker{
		claims:     claims,
		dispatcher: dispatcher,
		interval:   interval,
		threshold:  threshold,
		now:        time.Now,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the sweep loop in the background
func (w *StaleClaimWorker) Start(ctx context.Context) {
	logging.Default().Info("stale claim worker starting",
		"interval", w.interval.String(),
		"threshold", w.threshold.String())

	go w.run(ctx)
}

// Stop signals the worker to stop and waits for completion
func (w *StaleClaimWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("stale claim worker stopped")
}

func (w *StaleClaimWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				// Log error but continue worker
				logging.Default().Error("stale claim sweep failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

// Sweep performs a single pass and returns how many claims were re-dispatched
func (w *StaleClaimWorker) Sweep(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.threshold)
	count := 0

	for _, status := range []types.ClaimStatus{types.ClaimStatusSubmitted, types.ClaimStatusAIReview} {
		claims, err := w.claims.List(ctx, interfaces.WithStatus(status))
		if err != nil {
			return count, goerr.Wrap(err, "failed to list claims", goerr.V("status", status))
		}

		for _, c := range claims {
			if c.UpdatedAt.After(cutoff) {
				continue
			}
			if err := w.dispatcher.Dispatch(ctx, c.ID); err != nil {
				return count, goerr.Wrap(err, "failed to dispatch analysis", goerr.V("claim_id", c.ID))
			}
			logging.Default().Info("re-dispatched stale claim",
				"claim_id", c.ID,
				"status", c.Status,
				"updated_at", c.UpdatedAt)
			count++
		}
	}

	return count, nil
}
