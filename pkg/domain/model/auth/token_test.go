package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

func TestNewToken(t *testing.T) {
	token := auth.NewToken("user-1", "a@example.com", "Alice", types.UserRoleClaimant, time.Hour)
	gt.S(t, token.ID.String()).NotEqual("")
	gt.N(t, len(token.Secret.String())).Equal(64)
	gt.B(t, token.IsExpired()).False()
	gt.NoError(t, token.Validate(token.Secret))

	other := auth.NewToken("user-1", "a@example.com", "Alice", types.UserRoleClaimant, 0)
	gt.V(t, other.ID).NotEqual(token.ID)
	gt.B(t, other.ExpiresAt.After(time.Now().Add(auth.DefaultTokenTTL-time.Minute))).True()
}

func TestTokenValidate(t *testing.T) {
	token := auth.NewToken("user-1", "a@example.com", "Alice", types.UserRoleAssessor, time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		gt.Error(t, token.Validate("nope")).Is(auth.ErrTokenSecretInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		expired := *token
		expired.ExpiresAt = time.Now().Add(-time.Second)
		gt.Error(t, expired.Validate(expired.Secret)).Is(auth.ErrTokenExpired)
	})
}

func TestTokenContext(t *testing.T) {
	_, ok := auth.TokenFromContext(context.Background())
	gt.B(t, ok).False()

	token := auth.NewToken("user-1", "a@example.com", "Alice", types.UserRoleAdmin, time.Hour)
	ctx := auth.ContextWithToken(context.Background(), token)
	got, ok := auth.TokenFromContext(ctx)
	gt.B(t, ok).True()
	gt.V(t, got).Equal(token)
}
