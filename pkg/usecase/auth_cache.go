package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
)

// sessionCacheTTL bounds how long a role change takes to reach a signed in user
const sessionCacheTTL = 5 * time.Minute

type sessionEntry struct {
	token *auth.Token
	until time.Time
}

// sessionCache holds validated sessions by token ID. An entry never outlives
// the session it caches.
type sessionCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries sync.Map
}

func newSessionCache(ttl time.Duration, now func() time.Time) *sessionCache {
	return &sessionCache{ttl: ttl, now: now}
}

func (c *sessionCache) load(id auth.TokenID) (*auth.Token, bool) {
	v, ok := c.entries.Load(id)
	if !ok {
		return nil, false
	}
	entry := v.(sessionEntry)
	if !c.now().Before(entry.until) {
		c.entries.CompareAndDelete(id, v)
		return nil, false
	}
	return entry.token, true
}

func (c *sessionCache) store(token *auth.Token) {
	until := c.now().Add(c.ttl)
	if token.ExpiresAt.Before(until) {
		until = token.ExpiresAt
	}
	c.entries.Store(token.ID, sessionEntry{token: token, until: until})
}

func (c *sessionCache) evict(id auth.TokenID) {
	c.entries.Delete(id)
}

// validateTokenWithCache checks the secret against a cached or stored session.
// A stored session picks up the user's current role before it is cached.
func (uc *AuthUseCase) validateTokenWithCache(ctx context.Context, tokenID auth.TokenID, tokenSecret auth.TokenSecret) (*auth.Token, error) {
	if token, ok := uc.sessions.load(tokenID); ok {
		if err := token.Validate(tokenSecret); err != nil {
			return nil, goerr.Wrap(ErrUnauthenticated, err.Error(), goerr.V("token_id", tokenID))
		}
		return token, nil
	}

	token, err := uc.repo.GetToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrUnauthenticated, "unknown session", goerr.V("token_id", tokenID))
		}
		return nil, goerr.Wrap(err, "failed to load session", goerr.V("token_id", tokenID))
	}

	if err := token.Validate(tokenSecret); err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			if err := uc.repo.DeleteToken(ctx, tokenID); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
				return nil, goerr.Wrap(err, "failed to delete expired session", goerr.V("token_id", tokenID))
			}
		}
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error(), goerr.V("token_id", tokenID))
	}

	user, err := uc.repo.User().Get(ctx, token.Sub)
	switch {
	case err == nil:
		token.Role = user.Role
	case !errors.Is(err, interfaces.ErrNotFound):
		return nil, goerr.Wrap(err, "failed to get session user", goerr.V(UserIDKey, token.Sub))
	}

	uc.sessions.store(token)
	return token, nil
}
