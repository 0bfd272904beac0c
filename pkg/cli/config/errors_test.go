package config_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
)

func TestConfigErrors_SentinelIdentification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		sentinelError error
		wantMatch     bool
	}{
		{
			name:          "ErrConfigNotFound can be identified",
			err:           goerr.Wrap(config.ErrConfigNotFound, "failed to load config"),
			sentinelError: config.ErrConfigNotFound,
			wantMatch:     true,
		},
		{
			name:          "ErrInvalidConfig can be identified",
			err:           goerr.Wrap(config.ErrInvalidConfig, "validation failed"),
			sentinelError: config.ErrInvalidConfig,
			wantMatch:     true,
		},
		{
			name:          "ErrMissingOption can be identified",
			err:           goerr.Wrap(config.ErrMissingOption, "no project", goerr.V(config.OptionKey, "firestore-project-id")),
			sentinelError: config.ErrMissingOption,
			wantMatch:     true,
		},
		{
			name:          "ErrInvalidImageType is not ErrDuplicateImageType",
			err:           goerr.Wrap(config.ErrInvalidImageType, "bad type"),
			sentinelError: config.ErrDuplicateImageType,
			wantMatch:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, errors.Is(tt.err, tt.sentinelError)).Equal(tt.wantMatch)
		})
	}
}

func TestConfigErrors_ContextValues(t *testing.T) {
	err := goerr.Wrap(config.ErrInvalidConfig, "bad file", goerr.V(config.ConfigPathKey, "/tmp/policy.toml"))

	var ge *goerr.Error
	gt.Bool(t, errors.As(err, &ge)).True()
	gt.Value(t, ge.Values()[config.ConfigPathKey]).Equal("/tmp/policy.toml")
}
