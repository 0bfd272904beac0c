package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/claimdesk/pkg/usecase"
	"github.com/secmon-lab/claimdesk/pkg/utils/logging"
)

type Server struct {
	router    *chi.Mux
	uc        *usecase.UseCases
	authUC    AuthUseCase
	events    EventSource
	blobs     BlobOpener
	keepAlive time.Duration

	streamsDone chan struct{}
	closeOnce   sync.Once
}

type Options func(*Server)

// WithAuth overrides the auth use case taken from UseCases
func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithEventSource enables GET /api/claims/events
func WithEventSource(events EventSource) Options {
	return func(s *Server) {
		s.events = events
	}
}

// WithBlobServer serves stored objects below /blobs/ for the memory blob store
func WithBlobServer(blobs BlobOpener) Options {
	return func(s *Server) {
		s.blobs = blobs
	}
}

// WithKeepAlive sets the comment interval on event streams
func WithKeepAlive(d time.Duration) Options {
	return func(s *Server) {
		s.keepAlive = d
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:    r,
		uc:        uc,
		authUC:    uc.Auth,
		keepAlive: 15 * time.Second,

		streamsDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler)

	r.Route("/api", func(r chi.Router) {
		// Session endpoints work without a session
		r.Post("/auth/session", authSessionHandler(s.authUC))
		r.Post("/auth/logout", authLogoutHandler(s.authUC))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.authUC))

			r.Get("/auth/me", authMeHandler(uc))

			r.Route("/claims", func(r chi.Router) {
				r.Get("/", listClaimsHandler(uc))
				r.Post("/", submitClaimHandler(uc))
				if s.events != nil {
					r.Get("/events", claimEventsHandler(s.events, s.keepAlive, s.streamsDone))
				}

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", getClaimHandler(uc))
					r.Get("/images", listImagesHandler(uc))
					r.Post("/images", uploadImageHandler(uc))
					r.Get("/history", listHistoryHandler(uc))
					r.Post("/decision", recordDecisionHandler(uc))
					r.Post("/assign", assignAssessorHandler(uc))
					r.Post("/analyze", requestAnalysisHandler(uc))
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", listUsersHandler(uc))
				r.Put("/users/{id}/role", setUserRoleHandler(uc))
				r.Get("/analyzer/health", analyzerHealthHandler(uc))
				r.Get("/damage-components", listDamageComponentsHandler(uc))
				r.Post("/images/{id}/damage-components", analyzeDamageComponentsHandler(uc))
				r.Post("/images/{id}/render-damage", renderDamageHandler(uc))
			})
		})
	})

	if s.blobs != nil {
		r.Get("/blobs/*", blobHandler(s.blobs))
	}

	return s
}

// CloseStreams ends open event streams. http.Server.Shutdown does not cancel
// request contexts, so register it with RegisterOnShutdown.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.streamsDone) })
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := logging.With(r.Context(), logging.From(r.Context()).With("request_id", middleware.GetReqID(r.Context())))

		defer func() {
			logging.From(ctx).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
