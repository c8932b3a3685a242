// Package api wires the HTTP surface: public intake and polling routes,
// token-guarded worker and admin routes, and the middleware stack.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/personalens/personalens/internal/api/middleware"
	"github.com/personalens/personalens/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler     http.HandlerFunc
	CreateJobHandler  http.HandlerFunc
	JobStatusHandler  http.HandlerFunc
	GetPersonaHandler http.HandlerFunc

	TriggerWorkerHandler http.HandlerFunc
	ListStuckHandler     http.HandlerFunc
	RequeueHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Public routes, rate-limited per client IP
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJobHandler))
		r.Get("/api/v1/jobs/{jobID}/status", orNotImplemented(deps.JobStatusHandler))
		r.Get("/api/v1/jobs/{jobID}/persona", orNotImplemented(deps.GetPersonaHandler))
	})

	// Internal routes, worker-token guarded
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.RequireWorkerToken)

		r.Post("/api/v1/workers/{name}", orNotImplemented(deps.TriggerWorkerHandler))
		r.Get("/api/v1/admin/jobs/stuck", orNotImplemented(deps.ListStuckHandler))
		r.Post("/api/v1/admin/jobs/{jobID}/requeue", orNotImplemented(deps.RequeueHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
