package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	httpctrl "github.com/secmon-lab/claimdesk/pkg/controller/http"
	"github.com/secmon-lab/claimdesk/pkg/service/event"
	"github.com/secmon-lab/claimdesk/pkg/service/queue"
	"github.com/secmon-lab/claimdesk/pkg/service/worker"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var baseURL string
	var staleInterval time.Duration
	var staleThreshold time.Duration
	var policyCfg config.Policy
	var repoCfg config.Repository
	var storageCfg config.Storage
	var analyzerCfg config.Analyzer
	var authCfg config.Auth
	var queueCfg config.Queue
	var slackCfg config.Slack
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CLAIMDESK_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL for the application (e.g., https://claims.example.com)",
			Value:       "http://localhost:8080",
			Sources:     cli.EnvVars("CLAIMDESK_BASE_URL"),
			Destination: &baseURL,
		},
		&cli.DurationFlag{
			Name:        "stale-interval",
			Usage:       "How often claims stuck before assessor review are re-dispatched",
			Value:       time.Minute,
			Sources:     cli.EnvVars("CLAIMDESK_STALE_INTERVAL"),
			Destination: &staleInterval,
		},
		&cli.DurationFlag{
			Name:        "stale-threshold",
			Usage:       "Age after which a submitted or ai_review claim is considered stuck",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("CLAIMDESK_STALE_THRESHOLD"),
			Destination: &staleThreshold,
		},
	}

	// Add shared config flags
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, analyzerCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, queueCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			policy, err := policyCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load claim policy")
			}
			if err := queueCfg.Validate(); err != nil {
				return err
			}

			// Initialize repository based on backend type
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

			authUC, err := authCfg.Configure(ctx, repo, policy.SessionTTL)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logger.Warn("Running in no-auth mode (development only)", "auth", authCfg)
			}

			slackCfg.SetAppURL(baseURL)
			notifier, err := slackCfg.Configure(policy.CurrencySymbol)
			if err != nil {
				return goerr.Wrap(err, "failed to configure notifications")
			}

			broker := event.NewBroker()
			ucOpts := []usecase.Option{
				usecase.WithPolicy(policy),
				usecase.WithAuth(authUC),
				usecase.WithBlobStore(blobs),
				usecase.WithEventPublisher(broker),
				usecase.WithNotifier(notifier),
			}

			analyzerClient, err := analyzerCfg.Configure()
			if err != nil {
				return err
			}
			if analyzerClient != nil {
				ucOpts = append(ucOpts, usecase.WithAnalyzer(analyzerClient))
				logger.Info("AI analysis enabled", "analyzer", analyzerCfg)
			} else {
				logger.Warn("Analyzer URL not configured, claims go straight to assessor review")
			}

			briefSvc, err := geminiCfg.Configure(ctx, policy.CurrencySymbol)
			if err != nil {
				return err
			}
			if briefSvc != nil {
				ucOpts = append(ucOpts, usecase.WithBrief(briefSvc))
				logger.LogAttrs(ctx, slog.LevelInfo, "Assessor brief enabled", geminiCfg.LogAttrs()...)
			}

			if queueCfg.IsAsynq() {
				dispatcher := queue.NewAsynq(queueCfg.RedisOpt())
				defer func() {
					if err := dispatcher.Close(); err != nil {
						logger.Error("failed to close asynq client", "error", err.Error())
					}
				}()
				ucOpts = append(ucOpts, usecase.WithDispatcher(dispatcher))
				logger.Info("Analysis jobs are queued to Redis", "queue", queueCfg)
			}

			uc := usecase.New(repo, ucOpts...)

			staleWorker := worker.NewStaleClaimWorker(repo.Claim(), uc.Dispatcher(), staleInterval, staleThreshold)
			staleWorker.Start(ctx)

			httpOpts := []httpctrl.Options{
				httpctrl.WithEventSource(broker),
			}
			if opener, ok := blobs.(httpctrl.BlobOpener); ok && storageCfg.IsMemory() {
				httpOpts = append(httpOpts, httpctrl.WithBlobServer(opener))
			}

			handler := httpctrl.New(uc, httpOpts...)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}
			server.RegisterOnShutdown(handler.CloseStreams)

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server",
					"addr", addr,
					"repository", repoCfg,
					"storage", storageCfg,
					"policy", policyCfg,
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				staleWorker.Stop()
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				staleWorker.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				var shutdownErr error
				if err := server.Shutdown(shutdownCtx); err != nil {
					shutdownErr = goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// Let in-process analysis runs finish within the same deadline
				if inline, ok := uc.Dispatcher().(*queue.Inline); ok {
					if err := inline.Wait(shutdownCtx); err != nil {
						logger.Warn("analysis jobs still running at shutdown", "error", err.Error())
					}
				}

				if shutdownErr != nil {
					return shutdownErr
				}
				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
