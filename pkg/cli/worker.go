package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	"github.com/secmon-lab/claimdesk/pkg/service/queue"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdWorker() *cli.Command {
	var baseURL string
	var policyCfg config.Policy
	var repoCfg config.Repository
	var storageCfg config.Storage
	var analyzerCfg config.Analyzer
	var queueCfg config.Queue
	var slackCfg config.Slack
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL of the application, used in notification links",
			Sources:     cli.EnvVars("CLAIMDESK_BASE_URL"),
			Destination: &baseURL,
		},
	}
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, analyzerCfg.Flags()...)
	flags = append(flags, queueCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "worker",
		Aliases: []string{"w"},
		Usage:   "Process queued claim analysis jobs from Redis",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if !queueCfg.IsAsynq() {
				return goerr.Wrap(config.ErrInvalidConfig, "worker requires --queue-backend=asynq",
					goerr.V(config.BackendKey, queueCfg.Backend()))
			}
			if storageCfg.IsMemory() {
				return goerr.Wrap(config.ErrInvalidConfig, "worker cannot read images from in-memory storage",
					goerr.V(config.OptionKey, "storage-backend"))
			}

			policy, err := policyCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load claim policy")
			}

			repo, closeRepo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer closeRepo()

			blobs, closeBlobs, err := storageCfg.Configure(ctx, baseURL)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize image storage")
			}
			defer closeBlobs()

			analyzerClient, err := analyzerCfg.Configure()
			if err != nil {
				return err
			}
			if analyzerClient == nil {
				return goerr.Wrap(config.ErrMissingOption, "worker requires --analyzer-url",
					goerr.V(config.OptionKey, "analyzer-url"))
			}

			slackCfg.SetAppURL(baseURL)
			notifier, err := slackCfg.Configure(policy.CurrencySymbol)
			if err != nil {
				return goerr.Wrap(err, "failed to configure notifications")
			}

			ucOpts := []usecase.Option{
				usecase.WithPolicy(policy),
				usecase.WithBlobStore(blobs),
				usecase.WithAnalyzer(analyzerClient),
				usecase.WithNotifier(notifier),
			}
			briefSvc, err := geminiCfg.Configure(ctx, policy.CurrencySymbol)
			if err != nil {
				return err
			}
			if briefSvc != nil {
				ucOpts = append(ucOpts, usecase.WithBrief(briefSvc))
				logger.LogAttrs(ctx, slog.LevelInfo, "Assessor brief enabled", geminiCfg.LogAttrs()...)
			}

			uc := usecase.New(repo, ucOpts...)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := queue.NewWorker(queueCfg.RedisOpt(), queueCfg.Concurrency(), uc.Analysis.Run)
			logger.Info("Starting analysis worker", "queue", queueCfg, "repository", repoCfg, "analyzer", analyzerCfg)
			if err := w.Run(ctx); err != nil {
				return err
			}
			logger.Info("Analysis worker stopped")
			return nil
		},
	}
}
