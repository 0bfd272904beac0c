package config_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/cli/config"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/repository/memory"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
)

func TestAuthConfigure(t *testing.T) {
	t.Run("no-auth provisions the fixed user", func(t *testing.T) {
		repo := memory.New()
		cfg := config.NewAuthForTest("", "", "dev@example.com:assessor")
		gt.Bool(t, cfg.IsNoAuthMode()).True()

		uc, err := cfg.Configure(t.Context(), repo, time.Hour)
		gt.NoError(t, err).Required()
		gt.Bool(t, uc.IsNoAuthn()).True()

		user, err := repo.User().Get(t.Context(), "dev@example.com")
		gt.NoError(t, err).Required()
		gt.Value(t, user.Role).Equal(types.UserRoleAssessor)
	})

	t.Run("no-auth takes precedence over the identity provider", func(t *testing.T) {
		cfg := config.NewAuthForTest("https://idp.example.com", "claimdesk", "dev@example.com")
		uc, err := cfg.Configure(t.Context(), memory.New(), time.Hour)
		gt.NoError(t, err).Required()
		gt.Bool(t, uc.IsNoAuthn()).True()
	})

	t.Run("invalid no-auth role", func(t *testing.T) {
		cfg := config.NewAuthForTest("", "", "dev@example.com:owner")
		_, err := cfg.Configure(t.Context(), memory.New(), time.Hour)
		gt.Error(t, err).Is(types.ErrInvalidValue)
	})

	t.Run("identity provider settings are required", func(t *testing.T) {
		cfg := config.NewAuthForTest("https://idp.example.com", "", "")
		_, err := cfg.Configure(t.Context(), memory.New(), time.Hour)
		gt.Error(t, err).Is(config.ErrMissingOption)
	})

	t.Run("identity provider configured", func(t *testing.T) {
		cfg := config.NewAuthForTest("https://idp.example.com", "claimdesk", "")
		uc, err := cfg.Configure(t.Context(), memory.New(), time.Hour)
		gt.NoError(t, err).Required()
		gt.Bool(t, uc.IsNoAuthn()).False()
		_, ok := uc.(*usecase.AuthUseCase)
		gt.Bool(t, ok).True()
	})
}
