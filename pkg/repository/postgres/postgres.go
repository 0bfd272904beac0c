package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
)

// ErrNotFound is returned for missing rows
var ErrNotFound = interfaces.ErrNotFound

// Postgres stores claims in a relational schema through a pgx pool
type Postgres struct {
	pool    *pgxpool.Pool
	claims  *claimRepository
	images  *imageRepository
	history *historyRepository
	users   *userRepository
}

var _ interfaces.Repository = &Postgres{}

type Option func(*pgxpool.Config)

// WithMaxConns caps the pool size
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = n
	}
}

// New opens a connection pool for dsn
func New(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres dsn")
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool", goerr.V("host", cfg.ConnConfig.Host))
	}

	return &Postgres{
		pool:    pool,
		claims:  &claimRepository{pool: pool},
		images:  &imageRepository{pool: pool},
		history: &historyRepository{pool: pool},
		users:   &userRepository{pool: pool},
	}, nil
}

func (p *Postgres) Claim() interfaces.ClaimRepository {
	return p.claims
}

func (p *Postgres) Image() interfaces.ImageRepository {
	return p.images
}

func (p *Postgres) History() interfaces.HistoryRepository {
	return p.history
}

func (p *Postgres) User() interfaces.UserRepository {
	return p.users
}

// Ping checks connectivity
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return goerr.Wrap(err, "failed to ping postgres")
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// marshalJSON returns nil for nil values so the column stays NULL
func marshalJSON[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal json column")
	}
	return data, nil
}

func unmarshalJSON[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal json column")
	}
	return &v, nil
}
