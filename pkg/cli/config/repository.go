package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/repository/firestore"
	"github.com/secmon-lab/claimdesk/pkg/repository/memory"
	"github.com/secmon-lab/claimdesk/pkg/repository/postgres"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collectionPrefix string
	postgresDSN      string
	postgresMaxConns int
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (firestore, postgres or memory)",
			Category:    "Repository",
			Value:       BackendFirestore,
			Sources:     cli.EnvVars("CLAIMDESK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("CLAIMDESK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("CLAIMDESK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix added to every Firestore collection name",
			Category:    "Repository",
			Sources:     cli.EnvVars("CLAIMDESK_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string (required when using postgres backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("CLAIMDESK_POSTGRES_DSN"),
			Destination: &r.postgresDSN,
		},
		&cli.IntFlag{
			Name:        "postgres-max-conns",
			Usage:       "Maximum PostgreSQL pool connections",
			Category:    "Repository",
			Value:       10,
			Sources:     cli.EnvVars("CLAIMDESK_POSTGRES_MAX_CONNS"),
			Destination: &r.postgresMaxConns,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.Int("postgres_dsn.len", len(r.postgresDSN)),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// OpenPostgres connects to the configured PostgreSQL database.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) OpenPostgres(ctx context.Context) (*postgres.Postgres, error) {
	if r.postgresDSN == "" {
		return nil, goerr.Wrap(ErrMissingOption, "postgres-dsn is required when using postgres backend",
			goerr.V(OptionKey, "postgres-dsn"))
	}
	var opts []postgres.Option
	if r.postgresMaxConns > 0 {
		opts = append(opts, postgres.WithMaxConns(int32(min(r.postgresMaxConns, 1<<15)))) // #nosec G115
	}
	repo, err := postgres.New(ctx, r.postgresDSN, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize postgres repository")
	}
	return repo, nil
}

// Configure initializes and returns a repository based on the configured backend,
// along with a function releasing its connections.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, func(), error) {
	logger := logging.Default()

	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, nil, goerr.Wrap(ErrMissingOption, "firestore-project-id is required when using firestore backend",
				goerr.V(OptionKey, "firestore-project-id"))
		}
		var opts []firestore.Option
		if r.collectionPrefix != "" {
			opts = append(opts, firestore.WithCollectionPrefix(r.collectionPrefix))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logger.Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("failed to close firestore repository", "error", err.Error())
			}
		}, nil

	case BackendPostgres:
		repo, err := r.OpenPostgres(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			return nil, nil, goerr.Wrap(err, "failed to ensure postgres schema")
		}
		logger.Info("Using PostgreSQL repository")
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("failed to close postgres repository", "error", err.Error())
			}
		}, nil

	case BackendMemory:
		logger.Info("Using in-memory repository (development mode)")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "invalid repository backend", goerr.V(BackendKey, r.backend))
	}
}
