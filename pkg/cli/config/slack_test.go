package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	"github.com/secmon-lab/claimdesk/pkg/service/notify"
)

func TestSlackConfigure(t *testing.T) {
	t.Run("not configured returns Nop", func(t *testing.T) {
		svc, err := config.NewSlackForTest("", "").Configure("₹")
		gt.NoError(t, err).Required()
		_, isNop := svc.(notify.Nop)
		gt.Bool(t, isNop).True()
	})

	t.Run("token without channel is an error", func(t *testing.T) {
		_, err := config.NewSlackForTest("xoxb-test", "").Configure("₹")
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("channel without token is an error", func(t *testing.T) {
		_, err := config.NewSlackForTest("", "C0123").Configure("₹")
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("fully configured returns a Slack notifier", func(t *testing.T) {
		cfg := config.NewSlackForTest("xoxb-test", "C0123")
		cfg.SetAppURL("https://claims.example.com")
		gt.Bool(t, cfg.IsConfigured()).True()

		svc, err := cfg.Configure("₹")
		gt.NoError(t, err).Required()
		_, isNop := svc.(notify.Nop)
		gt.Bool(t, isNop).False()
	})
}
