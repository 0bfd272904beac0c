package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

type UserUseCase struct {
	repo interfaces.Repository
}

func NewUserUseCase(repo interfaces.Repository) *UserUseCase {
	return &UserUseCase{repo: repo}
}

// Me returns the account of the current session
func (uc *UserUseCase) Me(ctx context.Context) (*model.User, error) {
	token, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	user, err := uc.repo.User().Get(ctx, token.Sub)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return &model.User{ID: token.Sub, Email: token.Email, Name: token.Name, Role: token.Role}, nil
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V(UserIDKey, token.Sub))
	}
	return user, nil
}

// provisionUser returns the stored user for sub, creating it with defaultRole on
// first sign in. Email and name follow the identity provider; the role is kept.
func provisionUser(ctx context.Context, repo interfaces.Repository, sub, email, name string, defaultRole types.UserRole) (*model.User, error) {
	if strings.TrimSpace(sub) == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "identity has no subject")
	}

	user, err := repo.User().Get(ctx, sub)
	switch {
	case err == nil:
		if user.Email == email && user.Name == name {
			return user, nil
		}
		user.Email = email
		user.Name = name
	case errors.Is(err, interfaces.ErrNotFound):
		user = &model.User{
			ID:        sub,
			Email:     email,
			Name:      name,
			Role:      defaultRole,
			CreatedAt: time.Now().UTC(),
		}
		logging.From(ctx).Info("provisioning new user", "user_id", sub, "role", defaultRole)
	default:
		return nil, goerr.Wrap(err, "failed to get user", goerr.V(UserIDKey, sub))
	}

	if err := repo.User().Put(ctx, user); err != nil {
		return nil, goerr.Wrap(err, "failed to save user", goerr.V(UserIDKey, sub))
	}
	return user, nil
}
