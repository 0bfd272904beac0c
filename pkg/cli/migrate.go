package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	"github.com/secmon-lab/claimdesk/pkg/repository/firestore"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := repoCfg.Flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Preview Firestore index changes without applying",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes or the PostgreSQL schema",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, &repoCfg, dryRun)
			case config.BackendPostgres:
				return migratePostgres(ctx, &repoCfg, dryRun)
			default:
				logging.Default().Info("Nothing to migrate", "backend", repoCfg.Backend())
				return nil
			}
		},
	}
}

func migrateFirestore(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()

	if repoCfg.ProjectID() == "" {
		return goerr.Wrap(config.ErrMissingOption, "firestore-project-id is required",
			goerr.V(config.OptionKey, "firestore-project-id"))
	}

	logger.Info("Migrate configuration",
		"projectID", repoCfg.ProjectID(),
		"databaseID", repoCfg.DatabaseID(),
		"dryRun", dryRun)

	indexConfig := getIndexConfig(repoCfg.CollectionPrefix())

	client, err := fireconf.NewClient(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID())
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

func migratePostgres(ctx context.Context, repoCfg *config.Repository, dryRun bool) error {
	logger := logging.Default()

	repo, err := repoCfg.OpenPostgres(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close postgres repository", "error", err.Error())
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return err
	}
	if dryRun {
		logger.Info("Dry run mode - PostgreSQL is reachable, schema not applied")
		return nil
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	logger.Info("PostgreSQL schema is up to date")
	return nil
}

// getIndexConfig returns the composite indexes behind the repository queries
func getIndexConfig(prefix string) *fireconf.Config {
	byCreated := func(fields ...string) fireconf.Index {
		idx := fireconf.Index{}
		for _, f := range fields {
			idx.Fields = append(idx.Fields, fireconf.IndexField{Path: f, Order: fireconf.OrderAscending})
		}
		idx.Fields = append(idx.Fields, fireconf.IndexField{Path: "created_at", Order: fireconf.OrderDescending})
		return idx
	}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.CollectionName(prefix, firestore.CollectionClaims),
				Indexes: []fireconf.Index{
					// List filtered by status, newest first
					byCreated("status"),
					// Claimant's own claims
					byCreated("claimant_id"),
					byCreated("claimant_id", "status"),
				},
			},
			{
				Name: firestore.CollectionName(prefix, firestore.CollectionImages),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "claim_id", Order: fireconf.OrderAscending},
							{Path: "uploaded_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: firestore.CollectionName(prefix, firestore.CollectionHistory),
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "claim_id", Order: fireconf.OrderAscending},
							{Path: "created_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
