package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

const (
	tokenIDCookie     = "token_id"
	tokenSecretCookie = "token_secret"
)

// authMiddleware validates the session cookies and puts the session on the request context
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC == nil {
				handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "authentication is not configured"))
				return
			}

			var tokenID auth.TokenID
			var tokenSecret auth.TokenSecret

			// NoAuthn mode ignores cookies and always returns the configured user
			if !authUC.IsNoAuthn() {
				idCookie, err := r.Cookie(tokenIDCookie)
				if err != nil {
					handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "Authentication required"))
					return
				}
				secretCookie, err := r.Cookie(tokenSecretCookie)
				if err != nil {
					handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "Authentication required"))
					return
				}
				tokenID = auth.TokenID(idCookie.Value)
				tokenSecret = auth.TokenSecret(secretCookie.Value)
			}

			token, err := authUC.ValidateToken(r.Context(), tokenID, tokenSecret)
			if err != nil {
				handleError(w, r, err)
				return
			}

			ctx := auth.ContextWithToken(r.Context(), token)
			ctx = logging.With(ctx, logging.From(ctx).With("user_id", token.Sub))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
