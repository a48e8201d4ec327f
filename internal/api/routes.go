package api

import (
	"net/http"

	"caucus/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/health" &&
					r.URL.Path != "/metrics" &&
					r.URL.Path != "/api/openapi.yaml" &&
					r.URL.Path != "/api/openapi.json" &&
					r.URL.Path != "/api/docs"
			}),
		))
	}
}

// WithRateLimiter adds rate limiting middleware to the router. It runs after
// the session context middleware, so admins draw from their own budget.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	router.Use(recoveryMiddleware)
	router.Use(loggingMiddleware(handlers.proxies))
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}
	router.Use(handlers.SessionContext)

	for _, opt := range opts {
		opt(router)
	}

	admin := func(f http.HandlerFunc) http.Handler {
		return handlers.RequireAdmin(f)
	}

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", handlers.Login).Methods("POST")
	api.HandleFunc("/auth/logout", handlers.Logout).Methods("POST")
	api.HandleFunc("/auth/verify", handlers.Verify).Methods("GET")

	// The calendar routes must be registered before /events/{id}.
	api.HandleFunc("/events", handlers.ListEvents).Methods("GET")
	api.HandleFunc("/events/calendar.ics", handlers.EventsCalendar).Methods("GET")
	api.HandleFunc("/events/{id}/calendar.ics", handlers.EventCalendar).Methods("GET")
	api.HandleFunc("/events/{id}", handlers.GetEvent).Methods("GET")
	api.Handle("/events", admin(handlers.CreateEvent)).Methods("POST")
	api.Handle("/events/{id}", admin(handlers.UpdateEvent)).Methods("PUT")
	api.Handle("/events/{id}", admin(handlers.DeleteEvent)).Methods("DELETE")

	api.HandleFunc("/resources", handlers.ListResources).Methods("GET")
	api.Handle("/resources", admin(handlers.CreateResource)).Methods("POST")
	api.Handle("/resources/order", admin(handlers.ReorderResources)).Methods("PUT")
	api.Handle("/resources/{id}", admin(handlers.UpdateResource)).Methods("PUT")
	api.Handle("/resources/{id}", admin(handlers.DeleteResource)).Methods("DELETE")

	api.HandleFunc("/tech", handlers.ListTechItems).Methods("GET")
	api.Handle("/tech", admin(handlers.CreateTechItem)).Methods("POST")
	api.Handle("/tech/order", admin(handlers.ReorderTechItems)).Methods("PUT")
	api.Handle("/tech/{id}", admin(handlers.UpdateTechItem)).Methods("PUT")
	api.Handle("/tech/{id}", admin(handlers.DeleteTechItem)).Methods("DELETE")

	api.HandleFunc("/contact", handlers.SubmitContact).Methods("POST")
	api.Handle("/contact", admin(handlers.ListContactMessages)).Methods("GET")

	api.HandleFunc("/openapi.yaml", handlers.ServeOpenAPISpec).Methods("GET")
	api.HandleFunc("/openapi.json", handlers.ServeOpenAPIJSON).Methods("GET")
	api.HandleFunc("/docs", handlers.ServeSwaggerUI).Methods("GET")

	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	// Preflight requests need a matching route for the CORS middleware to run.
	api.PathPrefix("").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("OPTIONS")

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, models.ErrorCodeInvalidRequest, "Method not allowed")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, models.ErrorCodeNotFound, "Not found")
	})

	return router
}
