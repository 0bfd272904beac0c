package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	"github.com/urfave/cli/v3"
)

// ErrCheckFailed is returned when at least one check fails
var ErrCheckFailed = goerr.New("configuration check failed")

type checkItem struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// runChecks prints one line per item and fails if any item failed
func runChecks(ctx context.Context, w io.Writer, items []checkItem) error {
	ok := color.New(color.FgGreen, color.Bold)
	ng := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)

	failed := 0
	for _, item := range items {
		detail, err := item.run(ctx)
		if err != nil {
			failed++
			_, _ = ng.Fprint(w, "✘ ")
			_, _ = fmt.Fprintf(w, "%-12s %s\n", item.name, err.Error())
			continue
		}
		_, _ = ok.Fprint(w, "✔ ")
		_, _ = fmt.Fprintf(w, "%-12s ", item.name)
		_, _ = dim.Fprintln(w, detail)
	}

	if failed > 0 {
		return goerr.Wrap(ErrCheckFailed, "some checks failed", goerr.V("failed", failed), goerr.V("total", len(items)))
	}
	return nil
}

func cmdCheck() *cli.Command {
	var timeout time.Duration
	var policyCfg config.Policy
	var repoCfg config.Repository
	var storageCfg config.Storage
	var analyzerCfg config.Analyzer
	var authCfg config.Auth
	var queueCfg config.Queue

	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Timeout of each check",
			Value:       10 * time.Second,
			Destination: &timeout,
		},
	}
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, analyzerCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, queueCfg.Flags()...)

	return &cli.Command{
		Name:  "check",
		Usage: "Verify configuration and connectivity of backing services",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			withTimeout := func(fn func(ctx context.Context) (string, error)) func(ctx context.Context) (string, error) {
				return func(ctx context.Context) (string, error) {
					ctx, cancel := context.WithTimeout(ctx, timeout)
					defer cancel()
					return fn(ctx)
				}
			}

			items := []checkItem{
				{name: "policy", run: func(ctx context.Context) (string, error) {
					p, err := policyCfg.Configure()
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("max %d images of %d bytes, types %v", p.MaxImagesPerClaim, p.MaxImageBytes, p.AllowedImageTypes), nil
				}},
				{name: "repository", run: withTimeout(func(ctx context.Context) (string, error) {
					repo, closer, err := repoCfg.Configure(ctx)
					if err != nil {
						return "", err
					}
					defer closer()
					if _, err := repo.User().List(ctx); err != nil {
						return "", goerr.Wrap(err, "failed to query users")
					}
					return repoCfg.Backend(), nil
				})},
				{name: "storage", run: withTimeout(func(ctx context.Context) (string, error) {
					_, closer, err := storageCfg.Configure(ctx, "")
					if err != nil {
						return "", err
					}
					closer()
					return storageCfg.LogValue().String(), nil
				})},
				{name: "analyzer", run: withTimeout(func(ctx context.Context) (string, error) {
					client, err := analyzerCfg.Configure()
					if err != nil {
						return "", err
					}
					if client == nil {
						return "disabled", nil
					}
					if err := client.Ping(ctx); err != nil {
						return "", err
					}
					return "reachable", nil
				})},
				{name: "auth", run: func(ctx context.Context) (string, error) {
					if authCfg.IsNoAuthMode() {
						return "no-auth (development only)", nil
					}
					if !authCfg.IsConfigured() {
						return "", goerr.Wrap(config.ErrMissingOption, "set --oidc-issuer and --oidc-client-id, or --no-auth")
					}
					return "oidc", nil
				}},
				{name: "queue", run: func(ctx context.Context) (string, error) {
					if err := queueCfg.Validate(); err != nil {
						return "", err
					}
					return queueCfg.Backend(), nil
				}},
			}

			return runChecks(ctx, c.Root().Writer, items)
		},
	}
}
