package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"caucus/internal/auth"
	"caucus/internal/content"
	"caucus/internal/models"
	"caucus/internal/observability"
	"caucus/internal/ratelimit"
	"caucus/internal/storage"
)

// maxBodyBytes caps every JSON request body. Event content is markdown and
// is the largest thing the site accepts.
const maxBodyBytes = 1 << 20

// Handlers contains HTTP handlers for the caucus API
type Handlers struct {
	content      content.ServiceInterface
	storage      storage.Storage
	credentials  *auth.Credentials
	sessions     *auth.SessionManager
	attempts     ratelimit.AttemptLimiter
	ownsAttempts bool
	loginLimit   models.AttemptLimitConfig
	contactLimit models.AttemptLimitConfig
	metrics      *observability.SecurityMetrics
	proxies      *ratelimit.TrustedProxies
	version      string
	startedAt    time.Time
	now          func() time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

// WithStorage enables the storage component of the health check.
func WithStorage(store storage.Storage) Option {
	return func(h *Handlers) {
		h.storage = store
	}
}

// WithAuth sets the admin credential checker and session manager.
func WithAuth(credentials *auth.Credentials, sessions *auth.SessionManager) Option {
	return func(h *Handlers) {
		h.credentials = credentials
		h.sessions = sessions
	}
}

// WithAttemptLimiter sets the limiter guarding login and contact submissions
// and the budgets applied to each.
func WithAttemptLimiter(limiter ratelimit.AttemptLimiter, login, contact models.AttemptLimitConfig) Option {
	return func(h *Handlers) {
		h.attempts = limiter
		h.ownsAttempts = false
		h.loginLimit = login
		h.contactLimit = contact
	}
}

func WithSecurityMetrics(m *observability.SecurityMetrics) Option {
	return func(h *Handlers) {
		h.metrics = m
	}
}

// WithTrustedProxies sets the proxies whose forwarding headers are believed
// when resolving the client address for attempt limits and logs.
func WithTrustedProxies(p *ratelimit.TrustedProxies) Option {
	return func(h *Handlers) {
		h.proxies = p
	}
}

func WithVersion(v string) Option {
	return func(h *Handlers) {
		h.version = v
	}
}

// WithClock overrides the time source used for calendar stamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

// NewHandlers creates a new handlers instance. Without WithAuth every login
// fails with a configuration error; without WithAttemptLimiter an in-memory
// limiter with the default budgets is created and released by Close.
func NewHandlers(contentService content.ServiceInterface, opts ...Option) *Handlers {
	defaults := models.NewDefaultConfig().Security
	h := &Handlers{
		content:      contentService,
		credentials:  auth.NewCredentials("", ""),
		sessions:     auth.NewSessionManager(""),
		loginLimit:   defaults.LoginLimit,
		contactLimit: defaults.ContactLimit,
		startedAt:    time.Now(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.attempts == nil {
		h.attempts = ratelimit.NewWindowLimiter(defaults.SweepInterval)
		h.ownsAttempts = true
	}
	return h
}

func (h *Handlers) clientIP(r *http.Request) string {
	return h.proxies.ClientIP(r)
}

// Close releases the attempt limiter if NewHandlers created it.
func (h *Handlers) Close() {
	if h.ownsAttempts {
		h.attempts.Close()
	}
}

// HealthCheck handles health check requests
// GET /health, GET /api/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version
	response.Uptime = time.Since(h.startedAt).Round(time.Second).String()
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	status := http.StatusOK
	if h.storage != nil {
		if err := h.storage.Ping(r.Context()); err != nil {
			slog.Error("Storage health check failed", "error", err)
			response.Status = models.StatusUnhealthy
			response.AddComponent("storage", models.StatusUnhealthy, "Storage is unreachable")
			status = http.StatusServiceUnavailable
		} else {
			response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
		}
	}

	if h.credentials.Configured() && h.sessions.Configured() {
		response.AddComponent("auth", models.StatusHealthy, "Admin login is configured")
	} else {
		response.AddComponent("auth", models.StatusDegraded, "Admin login is not configured")
		if response.Status == models.StatusHealthy {
			response.Status = models.StatusDegraded
		}
	}

	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; all that is left is to record it.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}

// writeServiceError maps a content service error onto its HTTP response.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *content.ServiceError
	if !errors.As(err, &se) {
		slog.Error("Unhandled service error", "path", r.URL.Path, "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
		return
	}

	if se.StatusCode >= http.StatusInternalServerError {
		slog.Error("Content service failure", "path", r.URL.Path, "error", err)
	}
	resp := models.NewErrorResponse(se.Message, se.Code)
	resp.Details = se.Details
	h.writeJSONResponse(w, se.StatusCode, resp)
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
