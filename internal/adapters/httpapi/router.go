package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// AuthMiddleware guards the member routes. Nil leaves them open (tests only).
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
}

func NewRouter(api *Server) http.Handler {
	return NewRouterWithOptions(api, RouterOptions{})
}

// NewRouterWithOptions wires middleware and routes around api.
func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(requestMetrics(api.Metrics))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed", nil)
	})

	// Infra endpoints are unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if api.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", api.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Route("/members", func(r chi.Router) {
			r.Get("/", api.ListMembers)
			r.Post("/", api.RegisterMember)
			r.Get("/search", api.SearchMembers)
			r.Route("/{memberId}", func(r chi.Router) {
				r.Get("/", api.GetMember)
				r.Patch("/", api.UpdateMember)
				r.Delete("/", api.DeleteMember)
				r.Post("/restore", api.RestoreMember)
			})
		})
	})
	return r
}
