package config

import (
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	QueueInline = "inline"
	QueueAsynq  = "asynq"
)

// Queue holds CLI flags selecting where analysis jobs run
type Queue struct {
	backend       string
	redisAddr     string
	redisPassword string
	redisDB       int
	concurrency   int
}

func (x *Queue) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "queue-backend",
			Usage:       "Analysis job queue (inline runs jobs in the server process, asynq uses Redis)",
			Category:    "Queue",
			Value:       QueueInline,
			Sources:     cli.EnvVars("CLAIMDESK_QUEUE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address for the asynq queue",
			Category:    "Queue",
			Value:       "localhost:6379",
			Sources:     cli.EnvVars("CLAIMDESK_REDIS_ADDR"),
			Destination: &x.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Category:    "Queue",
			Sources:     cli.EnvVars("CLAIMDESK_REDIS_PASSWORD"),
			Destination: &x.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Category:    "Queue",
			Sources:     cli.EnvVars("CLAIMDESK_REDIS_DB"),
			Destination: &x.redisDB,
		},
		&cli.IntFlag{
			Name:        "worker-concurrency",
			Usage:       "Number of analysis jobs processed in parallel by the worker",
			Category:    "Queue",
			Value:       4,
			Sources:     cli.EnvVars("CLAIMDESK_WORKER_CONCURRENCY"),
			Destination: &x.concurrency,
		},
	}
}

func (x Queue) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("redis_addr", x.redisAddr),
		slog.Int("concurrency", x.concurrency),
	)
}

// Validate checks the backend name
func (x *Queue) Validate() error {
	switch x.backend {
	case QueueInline, QueueAsynq:
		return nil
	default:
		return goerr.Wrap(ErrInvalidConfig, "invalid queue backend", goerr.V(BackendKey, x.backend))
	}
}

// Backend returns the configured queue backend
func (x *Queue) Backend() string {
	return x.backend
}

// IsAsynq reports whether jobs go through Redis
func (x *Queue) IsAsynq() bool {
	return x.backend == QueueAsynq
}

// Concurrency returns the worker concurrency
func (x *Queue) Concurrency() int {
	return x.concurrency
}

// RedisOpt returns the asynq connection options
func (x *Queue) RedisOpt() asynq.RedisConnOpt {
	return asynq.RedisClientOpt{
		Addr:     x.redisAddr,
		Password: x.redisPassword,
		DB:       x.redisDB,
	}
}
