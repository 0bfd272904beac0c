package errutil

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// Handle logs the error with a message and reports it to Sentry when a client is configured.
// The error is returned as-is so callers can keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	capture(ctx, err)
	return err
}

// HandleHTTP logs the error and writes a JSON error response.
// Only 5xx errors are reported to Sentry; client errors are logged at warn level.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	attrs := []any{"status", statusCode, "error", err.Error()}
	if errors.As(err, &ge) {
		attrs = append(attrs, "values", ge.Values())
		if statusCode >= http.StatusInternalServerError {
			attrs = append(attrs, "stack", ge.Stacks())
		}
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP error", attrs...)
		capture(ctx, err)
	} else {
		logger.Warn("HTTP error", attrs...)
	}

	WriteError(w, statusCode, err.Error(), nil)
}

func capture(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}
	hub.CaptureException(err)
}
