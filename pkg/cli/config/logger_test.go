package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

type loggedCredential struct {
	User  string
	Token string
}

func TestLoggerConfigure(t *testing.T) {
	prev := logging.Default()
	t.Cleanup(func() { logging.SetDefault(prev) })

	t.Run("json output to file redacts secrets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "claimdesk.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()

		logging.Default().Info("signed in", "cred", loggedCredential{User: "alice", Token: "tok-very-secret"})
		closer()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.S(t, string(data)).Contains("signed in")
		gt.S(t, string(data)).Contains("alice")
		gt.S(t, string(data)).NotContains("tok-very-secret")
	})

	t.Run("level filters records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "claimdesk.log")
		closer, err := config.NewLoggerForTest("warn", "json", path).Configure()
		gt.NoError(t, err).Required()

		logging.Default().Info("hidden")
		logging.Default().Warn("shown")
		closer()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.S(t, string(data)).NotContains("hidden")
		gt.S(t, string(data)).Contains("shown")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "json", "stdout").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
