package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

const (
	defaultMaxRetry    = 3
	defaultTaskTimeout = 5 * time.Minute
)

// Asynq enqueues analysis jobs to Redis for the worker command
type Asynq struct {
	client *asynq.Client
}

var _ interfaces.AnalysisDispatcher = (*Asynq)(nil)

func NewAsynq(opt asynq.RedisConnOpt) *Asynq {
	return &Asynq{client: asynq.NewClient(opt)}
}

func (x *Asynq) Dispatch(ctx context.Context, claimID model.ClaimID) error {
	data, err := encodePayload(claimID)
	if err != nil {
		return err
	}
	info, err := x.client.EnqueueContext(ctx, asynq.NewTask(TaskAnalyzeClaim, data),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Timeout(defaultTaskTimeout),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to enqueue analyze task", goerr.V("claim_id", claimID))
	}
	logging.From(ctx).Info("analyze task enqueued", "claim_id", claimID, "task_id", info.ID)
	return nil
}

func (x *Asynq) Close() error {
	if err := x.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close asynq client")
	}
	return nil
}

// NewServeMux routes TaskAnalyzeClaim to handler
func NewServeMux(handler Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAnalyzeClaim, func(ctx context.Context, task *asynq.Task) error {
		claimID, err := decodePayload(task)
		if err != nil {
			logging.From(ctx).Warn("dropping analyze task", "error", err.Error())
			return err
		}
		return handler(ctx, claimID)
	})
	return mux
}

// Worker consumes analysis jobs from Redis
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(opt asynq.RedisConnOpt, concurrency int, handler Handler) *Worker {
	if concurrency <= 0 {
		concurrency = 4
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Logger:      newLogger(),
	})
	return &Worker{server: server, mux: NewServeMux(handler)}
}

// Run processes tasks until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return goerr.Wrap(err, "failed to start asynq server")
	}
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}
