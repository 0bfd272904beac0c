package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/auth"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/errutil"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

// EventSource delivers claim events until ctx is done
type EventSource interface {
	Subscribe(ctx context.Context) <-chan model.ClaimEvent
}

// claimEventsHandler streams claim events the caller may see as server-sent
// events until the client leaves or done is closed
func claimEventsHandler(events EventSource, keepAlive time.Duration, done <-chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, ok := auth.TokenFromContext(ctx)
		if !ok {
			handleError(w, r, goerr.Wrap(usecase.ErrUnauthenticated, "no session"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			errutil.HandleHTTP(ctx, w, goerr.New("streaming unsupported"), http.StatusInternalServerError)
			return
		}

		ch := events.Subscribe(ctx)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		logging.From(ctx).Debug("event stream opened", "role", token.Role)
		for {
			select {
			case <-ctx.Done():
				return

			case <-done:
				logging.From(ctx).Debug("event stream closed by server shutdown")
				return

			case ev, ok := <-ch:
				if !ok {
					return
				}
				if !ev.VisibleTo(token.Sub, token.Role) {
					continue
				}
				data, err := json.Marshal(ev)
				if err != nil {
					_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to marshal claim event"), "event stream")
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
					return
				}
				flusher.Flush()

			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
