package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
)

func TestGemini_Configure(t *testing.T) {
	t.Run("returns nil brief when project ID is empty", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "us-central1", 0.2)
		gt.False(t, cfg.Enabled())
		svc, err := cfg.Configure(t.Context(), "₹")
		gt.NoError(t, err)
		gt.Value(t, svc).Nil()
	})

	t.Run("rejects temperature above range", func(t *testing.T) {
		cfg := config.NewGeminiForTest("my-project", "us-central1", 2.5)
		gt.True(t, cfg.Enabled())
		_, err := cfg.Configure(t.Context(), "₹")
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("rejects negative temperature", func(t *testing.T) {
		cfg := config.NewGeminiForTest("my-project", "us-central1", -0.1)
		_, err := cfg.Configure(t.Context(), "₹")
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("returns flags", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "", 0)
		flags := cfg.Flags()
		gt.Value(t, len(flags)).Equal(4)
	})
}
