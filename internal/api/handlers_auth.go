package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"caucus/internal/auth"
	"caucus/internal/models"
	"caucus/internal/observability"
	"caucus/internal/ratelimit"
)

// Messages returned by the auth endpoints. The admin panel shows them as is.
const (
	msgTooManyAttempts = "Too many attempts. Please try again later."
	msgInvalidPassword = "Invalid password"
	msgUnauthorized    = "Unauthorized"
	msgConfiguration   = "Server configuration error"
	msgInvalidBody     = "Invalid request body"
)

// Login handles admin login
// POST /api/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := h.clientIP(r)
	attemptKey := "login:" + clientIP

	// Every attempt counts, including malformed ones, so the limiter runs
	// before anything else looks at the request.
	if !h.attempts.CheckAndRecord(ctx, attemptKey, h.loginLimit.MaxAttempts, h.loginLimit.Window) {
		slog.Warn("Login rate limited", "client_ip", clientIP)
		h.metrics.RateLimited(ctx, "login")
		h.metrics.LoginAttempt(ctx, observability.LoginRateLimited)
		setRetryAfter(w, h.loginLimit.Window)
		h.writeAuthError(w, auth.ErrRateLimited)
		return
	}

	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeJSONResponse(w, http.StatusBadRequest, &models.AuthResponse{Error: msgInvalidBody})
		return
	}

	if err := h.authenticate(req.Password); err != nil {
		if errors.Is(err, auth.ErrConfigurationMissing) {
			slog.Error("Admin login is not configured", "error", err)
			h.metrics.LoginAttempt(ctx, observability.LoginMisconfigured)
		} else {
			slog.Warn("Failed admin login", "client_ip", clientIP)
			h.metrics.LoginAttempt(ctx, observability.LoginInvalid)
		}
		h.writeAuthError(w, err)
		return
	}

	token, expiresAt, err := h.sessions.Issue()
	if err != nil {
		slog.Error("Failed to issue session", "error", err)
		h.metrics.LoginAttempt(ctx, observability.LoginMisconfigured)
		h.writeAuthError(w, err)
		return
	}

	h.attempts.Clear(ctx, attemptKey)
	http.SetCookie(w, h.sessions.Cookie(token))
	h.metrics.LoginAttempt(ctx, observability.LoginSuccess)
	slog.Info("Admin logged in", "client_ip", clientIP, "expires_at", expiresAt)

	h.writeJSONResponse(w, http.StatusOK, &models.AuthResponse{Success: true})
}

// authenticate checks the password and that a session can be issued for it.
func (h *Handlers) authenticate(password string) error {
	if !h.sessions.Configured() {
		return auth.ErrConfigurationMissing
	}
	ok, err := h.credentials.Verify(password)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrInvalidCredentials
	}
	return nil
}

// Logout handles admin logout
// POST /api/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessions.ClearCookie())
	h.writeJSONResponse(w, http.StatusOK, &models.AuthResponse{Success: true})
}

// Verify reports whether the request carries a valid admin session
// GET /api/auth/verify
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessions.RequireRequest(r)
	if err != nil {
		h.writeJSONResponse(w, http.StatusUnauthorized, &models.AuthResponse{
			Authenticated: boolPtr(false),
			Error:         msgUnauthorized,
		})
		return
	}
	h.writeJSONResponse(w, http.StatusOK, &models.AuthResponse{
		Success:       true,
		Authenticated: boolPtr(true),
		Role:          claims.Role,
	})
}

// RequireAdmin rejects requests without a valid admin session with 401 and
// stores the session claims in the request context for the rest.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.sessions.RequireRequest(r)
		if err != nil {
			slog.Warn("Rejected admin request",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", h.clientIP(r))
			h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrorCodeUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), claims)))
	})
}

// SessionContext attaches valid session claims to every request without
// rejecting anything, so later middleware can tell admins from visitors.
func (h *Handlers) SessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := h.sessions.RequireRequest(r); err == nil {
			r = r.WithContext(auth.NewContext(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

// writeAuthError maps the auth sentinels onto status codes and the messages
// the admin panel expects.
func (h *Handlers) writeAuthError(w http.ResponseWriter, err error) {
	status, message := http.StatusInternalServerError, msgConfiguration
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		status, message = http.StatusTooManyRequests, msgTooManyAttempts
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, msgInvalidPassword
	case auth.IsAuthError(err):
		status, message = http.StatusUnauthorized, msgUnauthorized
	}
	h.writeJSONResponse(w, status, &models.AuthResponse{Error: message})
}

// setRetryAfter advertises the full window. The attempt limiters do not
// expose when a client's window started, so this is an upper bound.
func setRetryAfter(w http.ResponseWriter, window time.Duration) {
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(window.Seconds()))))
}

func boolPtr(b bool) *bool {
	return &b
}
