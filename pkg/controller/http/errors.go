package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/types"
	"github.com/secmon-lab/claimdesk/pkg/service/analyzer"
	"github.com/secmon-lab/claimdesk/pkg/service/storage"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/errutil"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// maxJSONBody bounds JSON request bodies
const maxJSONBody = 1 << 20

var statusMap = []struct {
	err    error
	status int
}{
	{model.ErrValidation, http.StatusBadRequest},
	{usecase.ErrInvalidInput, http.StatusBadRequest},
	{types.ErrInvalidValue, http.StatusBadRequest},
	{usecase.ErrUnauthenticated, http.StatusUnauthorized},
	{usecase.ErrAccessDenied, http.StatusForbidden},
	{usecase.ErrClaimNotFound, http.StatusNotFound},
	{usecase.ErrImageNotFound, http.StatusNotFound},
	{usecase.ErrUserNotFound, http.StatusNotFound},
	{interfaces.ErrNotFound, http.StatusNotFound},
	{storage.ErrObjectNotFound, http.StatusNotFound},
	{usecase.ErrInvalidTransition, http.StatusConflict},
	{usecase.ErrClaimClosed, http.StatusConflict},
	{usecase.ErrImageLimitReached, http.StatusConflict},
	{analyzer.ErrAnalyzerUnavailable, http.StatusBadGateway},
	{analyzer.ErrUnexpectedResponse, http.StatusBadGateway},
	{usecase.ErrAnalyzerDisabled, http.StatusServiceUnavailable},
}

// statusOf maps use case errors to HTTP status codes
func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// handleError writes {"error", "fields"} for err. Server errors go through errutil
// so they are logged with stacks and reported.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		errutil.HandleHTTP(r.Context(), w, err, status)
		return
	}

	attrs := []any{"status", status, "error", err.Error()}
	if ge := goerr.Unwrap(err); ge != nil {
		attrs = append(attrs, "values", ge.Values())
	}
	logging.From(r.Context()).Warn("HTTP error", attrs...)

	errutil.WriteError(w, status, err.Error(), model.FieldErrorsOf(err))
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return goerr.Wrap(usecase.ErrInvalidInput, "malformed JSON body: "+err.Error())
	}
	return nil
}
