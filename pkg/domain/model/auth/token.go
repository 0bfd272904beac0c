package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
)

// DefaultTokenTTL is the session lifetime when none is configured
const DefaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrTokenExpired       = goerr.New("token expired")
	ErrTokenSecretInvalid = goerr.New("invalid token secret")
)

type TokenID string

func NewTokenID() TokenID {
	return TokenID(uuid.New().String())
}

func (x TokenID) String() string { return string(x) }

type TokenSecret string

// NewTokenSecret returns 32 random bytes, hex encoded
func NewTokenSecret() TokenSecret {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return TokenSecret(hex.EncodeToString(buf))
}

func (x TokenSecret) String() string { return string(x) }

// Token is a server side session bound to a user. Sub is the user ID.
type Token struct {
	ID        TokenID        `json:"id" firestore:"id"`
	Secret    TokenSecret    `json:"secret" firestore:"secret" masq:"secret"`
	Sub       string         `json:"sub" firestore:"sub"`
	Email     string         `json:"email" firestore:"email"`
	Name      string         `json:"name" firestore:"name"`
	Role      types.UserRole `json:"role" firestore:"role"`
	ExpiresAt time.Time      `json:"expires_at" firestore:"expires_at"`
	CreatedAt time.Time      `json:"created_at" firestore:"created_at"`
}

// NewToken issues a session for the given user. A non positive ttl uses DefaultTokenTTL.
func NewToken(sub, email, name string, role types.UserRole, ttl time.Duration) *Token {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now().UTC()
	return &Token{
		ID:        NewTokenID(),
		Secret:    NewTokenSecret(),
		Sub:       sub,
		Email:     email,
		Name:      name,
		Role:      role,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func (t *Token) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// Validate checks the presented secret and expiry
func (t *Token) Validate(secret TokenSecret) error {
	if t.Secret != secret {
		return goerr.Wrap(ErrTokenSecretInvalid, "secret mismatch", goerr.V("token_id", t.ID))
	}
	if t.IsExpired() {
		return goerr.Wrap(ErrTokenExpired, "session expired", goerr.V("token_id", t.ID), goerr.V("expires_at", t.ExpiresAt))
	}
	return nil
}

type ctxTokenKey struct{}

// ContextWithToken returns a context carrying the authenticated session
func ContextWithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, ctxTokenKey{}, token)
}

// TokenFromContext returns the session stored by ContextWithToken
func TokenFromContext(ctx context.Context) (*Token, bool) {
	token, ok := ctx.Value(ctxTokenKey{}).(*Token)
	return token, ok && token != nil
}
