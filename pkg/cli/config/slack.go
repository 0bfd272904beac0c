package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/service/notify"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for claim notifications
type Slack struct {
	botToken string
	channel  string
	appURL   string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token used to post claim notifications",
			Category:    "Slack",
			Sources:     cli.EnvVars("CLAIMDESK_SLACK_BOT_TOKEN"),
			Destination: &x.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID receiving claim notifications",
			Category:    "Slack",
			Sources:     cli.EnvVars("CLAIMDESK_SLACK_CHANNEL"),
			Destination: &x.channel,
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channel),
	)
}

// SetAppURL sets the frontend URL linked from notifications
func (x *Slack) SetAppURL(url string) {
	x.appURL = url
}

// IsConfigured checks if Slack configuration is complete
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channel != ""
}

// Configure returns notify.Nop when Slack is not configured
func (x *Slack) Configure(currencySymbol string) (notify.Service, error) {
	if x.botToken == "" && x.channel == "" {
		return notify.Nop{}, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrMissingOption, "both --slack-bot-token and --slack-channel are required",
			goerr.V(OptionKey, "slack-channel"))
	}

	opts := []notify.Option{notify.WithCurrencySymbol(currencySymbol)}
	if x.appURL != "" {
		opts = append(opts, notify.WithAppURL(x.appURL))
	}
	svc, err := notify.NewSlack(x.botToken, x.channel, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Slack notifier")
	}
	return svc, nil
}
