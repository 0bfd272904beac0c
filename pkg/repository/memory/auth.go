package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
)

// tokenStore keeps sessions by value so callers never share a *auth.Token
type tokenStore struct {
	mu       sync.Mutex
	sessions map[auth.TokenID]auth.Token
	now      func() time.Time
}

func newTokenStore() *tokenStore {
	return &tokenStore{
		sessions: make(map[auth.TokenID]auth.Token),
		now:      time.Now,
	}
}

func (m *Memory) PutToken(ctx context.Context, token *auth.Token) error {
	if token.ID == "" || token.Secret == "" {
		return goerr.New("invalid token", goerr.V("token_id", token.ID))
	}

	m.tokens.mu.Lock()
	defer m.tokens.mu.Unlock()
	m.tokens.sessions[token.ID] = *token
	return nil
}

// GetToken drops sessions expired for more than a day, standing in for the
// TTL cleanup the hosted backends do.
func (m *Memory) GetToken(ctx context.Context, tokenID auth.TokenID) (*auth.Token, error) {
	m.tokens.mu.Lock()
	defer m.tokens.mu.Unlock()

	token, ok := m.tokens.sessions[tokenID]
	if ok && m.tokens.now().After(token.ExpiresAt.Add(24*time.Hour)) {
		delete(m.tokens.sessions, tokenID)
		ok = false
	}
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("token_id", tokenID))
	}
	return &token, nil
}

func (m *Memory) DeleteToken(ctx context.Context, tokenID auth.TokenID) error {
	m.tokens.mu.Lock()
	defer m.tokens.mu.Unlock()

	if _, ok := m.tokens.sessions[tokenID]; !ok {
		return goerr.Wrap(ErrNotFound, "session not found", goerr.V("token_id", tokenID))
	}
	delete(m.tokens.sessions, tokenID)
	return nil
}
