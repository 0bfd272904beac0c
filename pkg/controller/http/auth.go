package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/errutil"
)

type AuthUseCase = usecase.AuthUseCaseInterface

type sessionRequest struct {
	IDToken string `json:"id_token"`
}

type userMeResponse struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func sessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
}

func clearCookie(r *http.Request, name string) *http.Cookie {
	c := sessionCookie(r, name, "", time.Time{})
	c.MaxAge = -1
	return c
}

// authSessionHandler exchanges an identity provider ID token for session cookies
func authSessionHandler(authUC AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authUC == nil {
			handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "authentication is not configured"))
			return
		}

		var req sessionRequest
		if !authUC.IsNoAuthn() {
			if err := decodeJSON(r, &req); err != nil {
				handleError(w, r, err)
				return
			}
		}

		token, err := authUC.Login(r.Context(), req.IDToken)
		if err != nil {
			handleError(w, r, err)
			return
		}

		if !authUC.IsNoAuthn() {
			http.SetCookie(w, sessionCookie(r, tokenIDCookie, token.ID.String(), token.ExpiresAt))
			http.SetCookie(w, sessionCookie(r, tokenSecretCookie, token.Secret.String(), token.ExpiresAt))
		}

		writeJSON(r.Context(), w, http.StatusOK, userMeResponse{
			Sub:   token.Sub,
			Email: token.Email,
			Name:  token.Name,
			Role:  token.Role.String(),
		})
	}
}

// authLogoutHandler handles user logout
func authLogoutHandler(authUC AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get token ID from cookie
		if c, err := r.Cookie(tokenIDCookie); err == nil && authUC != nil {
			if err := authUC.Logout(r.Context(), auth.TokenID(c.Value)); err != nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to logout"), http.StatusInternalServerError)
				return
			}
		}

		// Clear authentication cookies
		http.SetCookie(w, clearCookie(r, tokenIDCookie))
		http.SetCookie(w, clearCookie(r, tokenSecretCookie))

		writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
	}
}

// authMeHandler returns current user information
func authMeHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := uc.User.Me(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, userMeResponse{
			Sub:   user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role.String(),
		})
	}
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}
