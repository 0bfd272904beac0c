package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/service/analyzer"
	"github.com/urfave/cli/v3"
)

// Analyzer holds CLI flags for the AI analysis service client
type Analyzer struct {
	baseURL        string
	explainTimeout time.Duration
	checkTimeout   time.Duration
	adminTimeout   time.Duration
}

func (x *Analyzer) Flags() []cli.Flag {
	def := analyzer.DefaultConfig("")
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "analyzer-url",
			Usage:       "Base URL of the AI analysis service. Analysis is skipped when empty",
			Category:    "Analyzer",
			Sources:     cli.EnvVars("CLAIMDESK_ANALYZER_URL"),
			Destination: &x.baseURL,
		},
		&cli.DurationFlag{
			Name:        "analyzer-explain-timeout",
			Usage:       "Timeout of per image explain and comprehensive calls",
			Category:    "Analyzer",
			Value:       def.ExplainTimeout,
			Sources:     cli.EnvVars("CLAIMDESK_ANALYZER_EXPLAIN_TIMEOUT"),
			Destination: &x.explainTimeout,
		},
		&cli.DurationFlag{
			Name:        "analyzer-check-timeout",
			Usage:       "Timeout of the damage estimate call",
			Category:    "Analyzer",
			Value:       def.CheckTimeout,
			Sources:     cli.EnvVars("CLAIMDESK_ANALYZER_CHECK_TIMEOUT"),
			Destination: &x.checkTimeout,
		},
		&cli.DurationFlag{
			Name:        "analyzer-admin-timeout",
			Usage:       "Timeout of admin tooling calls",
			Category:    "Analyzer",
			Value:       def.AdminTimeout,
			Sources:     cli.EnvVars("CLAIMDESK_ANALYZER_ADMIN_TIMEOUT"),
			Destination: &x.adminTimeout,
		},
	}
}

func (x Analyzer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", x.baseURL),
		slog.Duration("explain_timeout", x.explainTimeout),
		slog.Duration("check_timeout", x.checkTimeout),
	)
}

// IsEnabled reports whether an analysis service URL is configured
func (x *Analyzer) IsEnabled() bool {
	return x.baseURL != ""
}

// Configure returns nil when no URL is configured (analysis is disabled)
func (x *Analyzer) Configure() (*analyzer.Client, error) {
	if x.baseURL == "" {
		return nil, nil
	}

	cfg := analyzer.DefaultConfig(x.baseURL)
	cfg.ExplainTimeout = x.explainTimeout
	cfg.CheckTimeout = x.checkTimeout
	cfg.AdminTimeout = x.adminTimeout

	client, err := analyzer.New(cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create analyzer client")
	}
	return client, nil
}
