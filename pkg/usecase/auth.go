package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
	"github.com/secmon-lab/claimdesk/pkg/utils/safe"
)

// AuthUseCaseInterface is implemented by the OIDC and no-auth flows
type AuthUseCaseInterface interface {
	// Login exchanges an identity provider ID token for a session
	Login(ctx context.Context, idToken string) (*auth.Token, error)
	ValidateToken(ctx context.Context, tokenID auth.TokenID, tokenSecret auth.TokenSecret) (*auth.Token, error)
	Logout(ctx context.Context, tokenID auth.TokenID) error
	IsNoAuthn() bool
}

type AuthUseCase struct {
	repo       interfaces.Repository
	issuer     string
	clientID   string
	jwksURL    string
	sessionTTL time.Duration
	httpClient *http.Client
	sessions   *sessionCache

	keysMu  sync.Mutex
	keys    *jwk.Cache
	keysURL string
}

var _ AuthUseCaseInterface = (*AuthUseCase)(nil)

// jwksMinRefresh bounds how often the cached key set is fetched again
const jwksMinRefresh = 15 * time.Minute

// NewAuthUseCase verifies ID tokens issued by issuer for clientID
func NewAuthUseCase(repo interfaces.Repository, issuer, clientID string, options ...AuthOption) *AuthUseCase {
	uc := &AuthUseCase{
		repo:       repo,
		issuer:     strings.TrimRight(issuer, "/"),
		clientID:   clientID,
		sessionTTL: auth.DefaultTokenTTL,
		httpClient: http.DefaultClient,
		sessions:   newSessionCache(sessionCacheTTL, time.Now),
		keys:       jwk.NewCache(context.Background()),
	}

	for _, opt := range options {
		opt(uc)
	}

	return uc
}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithJWKSURL skips OpenID discovery and uses the given key set
func WithJWKSURL(url string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.jwksURL = url
	}
}

func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(uc *AuthUseCase) {
		if ttl > 0 {
			uc.sessionTTL = ttl
		}
	}
}

func WithHTTPClient(client *http.Client) AuthOption {
	return func(uc *AuthUseCase) {
		uc.httpClient = client
	}
}

// IsNoAuthn returns false for regular AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// IDTokenClaims are the identity attributes read from a verified ID token
type IDTokenClaims struct {
	Sub   string
	Email string
	Name  string
}

// Login verifies idToken, provisions the user on first sign in and stores a session
func (uc *AuthUseCase) Login(ctx context.Context, idToken string) (*auth.Token, error) {
	claims, err := uc.decodeIDToken(ctx, idToken)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}

	user, err := provisionUser(ctx, uc.repo, claims.Sub, claims.Email, claims.Name, types.UserRoleClaimant)
	if err != nil {
		return nil, err
	}

	token := auth.NewToken(user.ID, user.Email, user.Name, user.Role, uc.sessionTTL)
	if err := uc.repo.PutToken(ctx, token); err != nil {
		return nil, goerr.Wrap(err, "failed to store token", goerr.V(UserIDKey, user.ID))
	}

	logging.From(ctx).Info("user signed in", "user_id", user.ID, "role", user.Role)
	return token, nil
}

// openIDConfiguration is the subset of the discovery document we need
type openIDConfiguration struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

func (uc *AuthUseCase) getJWKSURL(ctx context.Context) (string, error) {
	if uc.jwksURL != "" {
		return uc.jwksURL, nil
	}

	url := uc.issuer + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create request")
	}

	resp, err := uc.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to fetch OpenID configuration", goerr.V("url", url))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", goerr.New("failed to fetch OpenID configuration", goerr.V("status", resp.StatusCode))
	}

	body, err := safe.ReadAll(resp.Body, 1<<20)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read OpenID configuration response")
	}

	var config openIDConfiguration
	if err := json.Unmarshal(body, &config); err != nil {
		return "", goerr.Wrap(err, "failed to parse OpenID configuration")
	}
	if config.JWKSURI == "" {
		return "", goerr.New("OpenID configuration has no jwks_uri", goerr.V("url", url))
	}

	return config.JWKSURI, nil
}

// keySet returns the provider's signing keys. The JWKS URL is discovered and
// registered once; jwk.Cache refreshes the set in the background.
func (uc *AuthUseCase) keySet(ctx context.Context) (jwk.Set, error) {
	uc.keysMu.Lock()
	if uc.keysURL == "" {
		jwksURL, err := uc.getJWKSURL(ctx)
		if err != nil {
			uc.keysMu.Unlock()
			return nil, err
		}
		if err := uc.keys.Register(jwksURL,
			jwk.WithHTTPClient(uc.httpClient),
			jwk.WithMinRefreshInterval(jwksMinRefresh),
		); err != nil {
			uc.keysMu.Unlock()
			return nil, goerr.Wrap(err, "failed to register identity provider keys", goerr.V("jwks_uri", jwksURL))
		}
		uc.keysURL = jwksURL
	}
	jwksURL := uc.keysURL
	uc.keysMu.Unlock()

	set, err := uc.keys.Get(ctx, jwksURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch identity provider keys", goerr.V("jwks_uri", jwksURL))
	}
	return set, nil
}

// decodeIDToken verifies the ID token signature, audience and expiry
func (uc *AuthUseCase) decodeIDToken(ctx context.Context, idToken string) (*IDTokenClaims, error) {
	if idToken == "" {
		return nil, goerr.New("ID token is empty")
	}

	keySet, err := uc.keySet(ctx)
	if err != nil {
		return nil, err
	}

	// Allow 10 seconds of clock skew to handle time synchronization differences
	opts := []jwt.ParseOption{
		jwt.WithKeySet(keySet),
		jwt.WithValidate(true),
		jwt.WithAudience(uc.clientID),
		jwt.WithAcceptableSkew(10 * time.Second),
	}
	if uc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(uc.issuer))
	}

	token, err := jwt.Parse([]byte(idToken), opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse or verify JWT token")
	}

	claims := &IDTokenClaims{Sub: token.Subject()}
	if claims.Sub == "" {
		return nil, goerr.New("sub claim not found in token")
	}

	if v, ok := token.Get("email"); ok {
		if s, ok := v.(string); ok {
			claims.Email = s
		}
	}
	if claims.Email == "" {
		return nil, goerr.New("email claim not found in token")
	}

	if v, ok := token.Get("name"); ok {
		if s, ok := v.(string); ok {
			claims.Name = s
		}
	}
	if claims.Name == "" {
		claims.Name = claims.Email
	}

	return claims, nil
}

// ValidateToken validates the token and returns user info
func (uc *AuthUseCase) ValidateToken(ctx context.Context, tokenID auth.TokenID, tokenSecret auth.TokenSecret) (*auth.Token, error) {
	if tokenID == "" || tokenSecret == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "missing session credentials")
	}
	return uc.validateTokenWithCache(ctx, tokenID, tokenSecret)
}

// Logout deletes the token
func (uc *AuthUseCase) Logout(ctx context.Context, tokenID auth.TokenID) error {
	// Evict first so the cache cannot revive the session
	uc.sessions.evict(tokenID)

	// Then remove from repository
	if err := uc.repo.DeleteToken(ctx, tokenID); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(err, "failed to delete token", goerr.V("token_id", tokenID))
	}
	return nil
}
