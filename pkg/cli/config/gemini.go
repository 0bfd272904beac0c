package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/secmon-lab/claimdesk/pkg/service/brief"
	"github.com/urfave/cli/v3"
)

// Gemini configures the assessor brief writer. Briefs are off unless a
// Google Cloud project is given.
type Gemini struct {
	projectID   string
	location    string
	model       string
	temperature float64
}

// Flags returns CLI flags for the assessor brief writer
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API. Assessor briefs are disabled when empty",
			Category:    "Brief",
			Sources:     cli.EnvVars("CLAIMDESK_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Category:    "Brief",
			Value:       "us-central1",
			Sources:     cli.EnvVars("CLAIMDESK_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model writing the brief. Empty uses the client default",
			Category:    "Brief",
			Sources:     cli.EnvVars("CLAIMDESK_GEMINI_MODEL"),
			Destination: &g.model,
		},
		&cli.FloatFlag{
			Name:        "brief-temperature",
			Usage:       "Sampling temperature for assessor briefs (0.0 - 2.0)",
			Category:    "Brief",
			Value:       0.2,
			Sources:     cli.EnvVars("CLAIMDESK_BRIEF_TEMPERATURE"),
			Destination: &g.temperature,
		},
	}
}

// Enabled reports whether a project is configured
func (g *Gemini) Enabled() bool {
	return g.projectID != ""
}

// LogAttrs returns log attributes for the brief configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.String("model", g.model),
		slog.Float64("temperature", g.temperature),
	}
}

// Configure builds the assessor brief writer, rendering amounts with
// currencySymbol. It returns a nil service when no project is set.
func (g *Gemini) Configure(ctx context.Context, currencySymbol string) (brief.Service, error) {
	if !g.Enabled() {
		return nil, nil
	}
	if g.temperature < 0 || g.temperature > 2 {
		return nil, goerr.Wrap(ErrInvalidConfig, "brief temperature out of range",
			goerr.V(OptionKey, "brief-temperature"),
			goerr.V("temperature", g.temperature),
		)
	}

	opts := []gemini.Option{gemini.WithTemperature(float32(g.temperature))}
	if g.model != "" {
		opts = append(opts, gemini.WithModel(g.model))
	}

	llm, err := gemini.New(ctx, g.projectID, g.location, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client",
			goerr.V("project_id", g.projectID),
			goerr.V("location", g.location),
		)
	}

	svc, err := brief.New(llm, brief.WithCurrencySymbol(currencySymbol))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create brief service")
	}
	return svc, nil
}
