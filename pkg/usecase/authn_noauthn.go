package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// NoAuthnUseCase provides authentication using a specified user (for development/testing)
type NoAuthnUseCase struct {
	repo  interfaces.Repository
	token *auth.Token
}

// ParseNoAuthnUser parses "<user>:<role>"; the role defaults to admin
func ParseNoAuthnUser(spec string) (string, types.UserRole, error) {
	user, role, found := strings.Cut(spec, ":")
	user = strings.TrimSpace(user)
	if user == "" {
		return "", "", goerr.New("no-auth user is empty", goerr.V("spec", spec))
	}
	if !found || strings.TrimSpace(role) == "" {
		return user, types.UserRoleAdmin, nil
	}
	r, err := types.ParseUserRole(strings.TrimSpace(role))
	if err != nil {
		return "", "", goerr.Wrap(err, "invalid no-auth role", goerr.V("spec", spec))
	}
	return user, r, nil
}

// NewNoAuthnUseCase creates a new NoAuthnUseCase instance acting as sub with role
func NewNoAuthnUseCase(repo interfaces.Repository, sub, email, name string, role types.UserRole) *NoAuthnUseCase {
	return &NoAuthnUseCase{
		repo:  repo,
		token: auth.NewToken(sub, email, name, role, 0),
	}
}

// Provision stores the fixed user so listings and assignment can find it
func (uc *NoAuthnUseCase) Provision(ctx context.Context) error {
	user, err := provisionUser(ctx, uc.repo, uc.token.Sub, uc.token.Email, uc.token.Name, uc.token.Role)
	if err != nil {
		return err
	}
	if user.Role != uc.token.Role {
		user.Role = uc.token.Role
		if err := uc.repo.User().Put(ctx, user); err != nil {
			return goerr.Wrap(err, "failed to update no-auth user role", goerr.V(UserIDKey, user.ID))
		}
	}
	return nil
}

// Login returns the fixed user's session
func (uc *NoAuthnUseCase) Login(ctx context.Context, idToken string) (*auth.Token, error) {
	return uc.token, nil
}

// ValidateToken always returns a token for the specified user
func (uc *NoAuthnUseCase) ValidateToken(ctx context.Context, tokenID auth.TokenID, tokenSecret auth.TokenSecret) (*auth.Token, error) {
	return uc.token, nil
}

// Logout does nothing in no-auth mode
func (uc *NoAuthnUseCase) Logout(ctx context.Context, tokenID auth.TokenID) error {
	return nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
