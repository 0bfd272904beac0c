package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/secmon-lab/claimdesk/pkg/domain/model/config"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the claim policy file
type AppConfig struct {
	Images  ImagePolicy   `toml:"images"`
	Display DisplayPolicy `toml:"display"`
	Session SessionPolicy `toml:"session"`
}

// ImagePolicy limits damage photo uploads
type ImagePolicy struct {
	AllowedTypes []string `toml:"allowed_types"`
	MaxBytes     int64    `toml:"max_bytes"`
	MaxPerClaim  int      `toml:"max_per_claim"`
}

// Validate checks if the ImagePolicy is valid
func (p *ImagePolicy) Validate() error {
	seen := make(map[string]bool)
	for i, t := range p.AllowedTypes {
		mt := strings.ToLower(strings.TrimSpace(t))
		if !strings.HasPrefix(mt, "image/") || len(mt) == len("image/") {
			return goerr.Wrap(ErrInvalidImageType, "allowed type must be an image media type",
				goerr.V("type", t), goerr.V("index", i))
		}
		if seen[mt] {
			return goerr.Wrap(ErrDuplicateImageType, "allowed type is listed twice", goerr.V("type", t))
		}
		seen[mt] = true
	}
	if p.MaxBytes < 0 {
		return goerr.Wrap(ErrInvalidConfig, "max_bytes must not be negative", goerr.V("max_bytes", p.MaxBytes))
	}
	if p.MaxPerClaim < 0 {
		return goerr.Wrap(ErrInvalidConfig, "max_per_claim must not be negative", goerr.V("max_per_claim", p.MaxPerClaim))
	}
	return nil
}

// DisplayPolicy controls how amounts are rendered
type DisplayPolicy struct {
	CurrencySymbol string `toml:"currency_symbol"`
}

// SessionPolicy controls signed in sessions
type SessionPolicy struct {
	TTL string `toml:"ttl"`
}

func (p *SessionPolicy) duration() (time.Duration, error) {
	if p.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(p.TTL)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidConfig, "invalid session ttl", goerr.V("ttl", p.TTL), goerr.V("cause", err.Error()))
	}
	if d <= 0 {
		return 0, goerr.Wrap(ErrInvalidConfig, "session ttl must be positive", goerr.V("ttl", p.TTL))
	}
	return d, nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if err := a.Images.Validate(); err != nil {
		return goerr.Wrap(err, "invalid images policy")
	}
	if _, err := a.Session.duration(); err != nil {
		return goerr.Wrap(err, "invalid session policy")
	}
	return nil
}

// LoadAppConfiguration loads the claim policy from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// ToDomainClaimPolicy overlays the file's settings on the default policy
func (a *AppConfig) ToDomainClaimPolicy() *domainConfig.ClaimPolicy {
	policy := domainConfig.DefaultClaimPolicy()

	if len(a.Images.AllowedTypes) > 0 {
		types := make([]string, len(a.Images.AllowedTypes))
		for i, t := range a.Images.AllowedTypes {
			types[i] = strings.ToLower(strings.TrimSpace(t))
		}
		policy.AllowedImageTypes = types
	}
	if a.Images.MaxBytes > 0 {
		policy.MaxImageBytes = a.Images.MaxBytes
	}
	if a.Images.MaxPerClaim > 0 {
		policy.MaxImagesPerClaim = a.Images.MaxPerClaim
	}
	if a.Display.CurrencySymbol != "" {
		policy.CurrencySymbol = a.Display.CurrencySymbol
	}
	// Validate has already rejected malformed values
	if d, err := a.Session.duration(); err == nil && d > 0 {
		policy.SessionTTL = d
	}

	return policy
}

// Policy holds the CLI flag pointing at the claim policy file
type Policy struct {
	path string
}

func (x *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the claim policy TOML file. Defaults apply when empty",
			Sources:     cli.EnvVars("CLAIMDESK_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x Policy) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Configure loads the claim policy, falling back to defaults without a file
func (x *Policy) Configure() (*domainConfig.ClaimPolicy, error) {
	if x.path == "" {
		return domainConfig.DefaultClaimPolicy(), nil
	}
	cfg, err := LoadAppConfiguration(x.path)
	if err != nil {
		return nil, err
	}
	return cfg.ToDomainClaimPolicy(), nil
}
