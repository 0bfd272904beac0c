package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	domainConfig "github.com/secmon-lab/claimdesk/pkg/domain/model/config"
)

func TestLoadAppConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "valid configuration with all sections",
			content: `
[images]
allowed_types = ["image/jpeg", "image/png"]
max_bytes = 5242880
max_per_claim = 4

[display]
currency_symbol = "$"

[session]
ttl = "12h"
`,
		},
		{
			name:    "empty file",
			content: "\n",
		},
		{
			name:    "config file not found",
			content: "",
			wantErr: config.ErrConfigNotFound,
		},
		{
			name:    "broken TOML",
			content: "[images\nmax_bytes = 1",
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "non image content type",
			content: `
[images]
allowed_types = ["application/pdf"]
`,
			wantErr: config.ErrInvalidImageType,
		},
		{
			name: "duplicate content type ignoring case",
			content: `
[images]
allowed_types = ["image/png", "IMAGE/PNG"]
`,
			wantErr: config.ErrDuplicateImageType,
		},
		{
			name: "negative max bytes",
			content: `
[images]
max_bytes = -1
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "malformed session ttl",
			content: `
[session]
ttl = "one week"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "non positive session ttl",
			content: `
[session]
ttl = "0s"
`,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.toml")

			// Only create file if content is not empty
			if tt.content != "" {
				err := os.WriteFile(configPath, []byte(tt.content), 0644)
				gt.NoError(t, err).Required()
			}

			cfg, err := config.LoadAppConfiguration(configPath)

			if tt.wantErr != nil {
				gt.Value(t, err).NotNil()
				if err != nil {
					gt.Error(t, err).Is(tt.wantErr)
				}
				return
			}

			gt.NoError(t, err).Required()
			gt.Value(t, cfg).NotNil()
		})
	}
}

func TestAppConfig_ToDomainClaimPolicy(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		cfg := &config.AppConfig{
			Images: config.ImagePolicy{
				AllowedTypes: []string{" Image/JPEG ", "image/heic"},
				MaxBytes:     1024,
				MaxPerClaim:  2,
			},
			Display: config.DisplayPolicy{CurrencySymbol: "€"},
			Session: config.SessionPolicy{TTL: "30m"},
		}
		gt.NoError(t, cfg.Validate()).Required()

		p := cfg.ToDomainClaimPolicy()
		gt.A(t, p.AllowedImageTypes).Length(2).
			At(0, func(t testing.TB, v string) { gt.Value(t, v).Equal("image/jpeg") })
		gt.Bool(t, p.AllowsImageType("image/heic")).True()
		gt.Bool(t, p.AllowsImageType("image/png")).False()
		gt.Value(t, p.MaxImageBytes).Equal(int64(1024))
		gt.Value(t, p.MaxImagesPerClaim).Equal(2)
		gt.Value(t, p.CurrencySymbol).Equal("€")
		gt.Value(t, p.SessionTTL).Equal(30 * time.Minute)
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		p := (&config.AppConfig{}).ToDomainClaimPolicy()
		def := domainConfig.DefaultClaimPolicy()
		gt.Value(t, p.AllowedImageTypes).Equal(def.AllowedImageTypes)
		gt.Value(t, p.MaxImageBytes).Equal(def.MaxImageBytes)
		gt.Value(t, p.MaxImagesPerClaim).Equal(def.MaxImagesPerClaim)
		gt.Value(t, p.CurrencySymbol).Equal(def.CurrencySymbol)
		gt.Value(t, p.SessionTTL).Equal(def.SessionTTL)
	})
}

func TestPolicy_Configure(t *testing.T) {
	t.Run("defaults without a path", func(t *testing.T) {
		p, err := config.NewPolicyForTest("").Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, p.MaxImagesPerClaim).Equal(domainConfig.DefaultMaxImagesPerClaim)
	})

	t.Run("loads the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.toml")
		gt.NoError(t, os.WriteFile(path, []byte("[images]\nmax_per_claim = 3\n"), 0644)).Required()

		p, err := config.NewPolicyForTest(path).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, p.MaxImagesPerClaim).Equal(3)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := config.NewPolicyForTest(filepath.Join(t.TempDir(), "nope.toml")).Configure()
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})
}
