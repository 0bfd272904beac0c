package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// actorFrom returns the session placed on ctx by the auth middleware
func actorFrom(ctx context.Context) (*auth.Token, error) {
	token, ok := auth.TokenFromContext(ctx)
	if !ok {
		return nil, goerr.Wrap(ErrUnauthenticated, "no session in context")
	}
	if !token.Role.IsValid() {
		return nil, goerr.Wrap(ErrAccessDenied, "session has no valid role", goerr.V("role", token.Role))
	}
	return token, nil
}

func requireRole(ctx context.Context, roles ...types.UserRole) (*auth.Token, error) {
	token, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if token.Role == r {
			return token, nil
		}
	}
	return nil, goerr.Wrap(ErrAccessDenied, "role not permitted",
		goerr.V("role", token.Role),
		goerr.V(UserIDKey, token.Sub))
}
