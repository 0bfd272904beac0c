package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth holds CLI flags for the OpenID Connect identity provider
type Auth struct {
	issuer   string
	clientID string
	jwksURL  string
	noAuth   string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "oidc-issuer",
			Usage:       "OpenID Connect issuer URL of the identity provider",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMDESK_OIDC_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "oidc-client-id",
			Usage:       "OpenID Connect client ID (expected ID token audience)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMDESK_OIDC_CLIENT_ID"),
			Destination: &x.clientID,
		},
		&cli.StringFlag{
			Name:        "oidc-jwks-url",
			Usage:       "JWKS URL. Discovered from the issuer when empty",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMDESK_OIDC_JWKS_URL"),
			Destination: &x.jwksURL,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and run as <user>:<role> (development only). Example: --no-auth=dev@example.com:assessor",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMDESK_NO_AUTH"),
			Destination: &x.noAuth,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer", x.issuer),
		slog.String("client_id", x.clientID),
		slog.Bool("no_auth", x.noAuth != ""),
	)
}

// SetNoAuth sets the no-auth user spec
func (x *Auth) SetNoAuth(spec string) {
	x.noAuth = spec
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuth != ""
}

// IsConfigured checks if the identity provider configuration is complete
func (x *Auth) IsConfigured() bool {
	return x.issuer != "" && x.clientID != ""
}

// Configure creates the authentication use case. In no-auth mode the fixed user is
// provisioned in repo before returning.
func (x *Auth) Configure(ctx context.Context, repo interfaces.Repository, sessionTTL time.Duration) (usecase.AuthUseCaseInterface, error) {
	if x.noAuth != "" {
		if x.IsConfigured() {
			logging.Default().Warn("--no-auth is set, ignoring --oidc-issuer/--oidc-client-id")
		}

		user, role, err := usecase.ParseNoAuthnUser(x.noAuth)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid --no-auth value")
		}

		uc := usecase.NewNoAuthnUseCase(repo, user, user, user, role)
		if err := uc.Provision(ctx); err != nil {
			return nil, goerr.Wrap(err, "failed to provision no-auth user", goerr.V("user", user))
		}
		return uc, nil
	}

	if !x.IsConfigured() {
		return nil, goerr.Wrap(ErrMissingOption,
			"identity provider configuration is required: set --oidc-issuer and --oidc-client-id, or use --no-auth",
			goerr.V(OptionKey, "oidc-issuer"))
	}

	opts := []usecase.AuthOption{usecase.WithSessionTTL(sessionTTL)}
	if x.jwksURL != "" {
		opts = append(opts, usecase.WithJWKSURL(x.jwksURL))
	}
	return usecase.NewAuthUseCase(repo, x.issuer, x.clientID, opts...), nil
}
