package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
)

type usersResponse struct {
	Users []*model.User `json:"users"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type componentsResponse struct {
	Components []string `json:"components"`
}

func listUsersHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := uc.Admin.ListUsers(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, usersResponse{Users: users})
	}
}

func setUserRoleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setRoleRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		user, err := uc.Admin.SetUserRole(r.Context(), chi.URLParam(r, "id"), req.Role)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, user)
	}
}

func analyzerHealthHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Admin.AnalyzerHealth(r.Context()); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func listDamageComponentsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := uc.Admin.ListDamageComponents(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, componentsResponse{Components: names})
	}
}

func analyzeDamageComponentsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := uc.Admin.AnalyzeDamageComponents(r.Context(), model.ImageID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, report)
	}
}

// renderDamageHandler responds with the overlay image itself
func renderDamageHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := uc.Admin.RenderDamage(r.Context(), model.ImageID(chi.URLParam(r, "id")))
		if err != nil {
			handleError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", out.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.Data)
	}
}
