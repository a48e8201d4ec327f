package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the cookie carrying the admin session token.
	CookieName = "admin-token"

	// RoleAdmin is the only role a session can hold.
	RoleAdmin = "admin"

	// SessionMaxAge bounds both the exp claim and the embedded issuance age.
	SessionMaxAge = 24 * time.Hour
)

// Claims is the signed session payload.
type Claims struct {
	Authenticated  bool   `json:"authenticated"`
	Role           string `json:"role"`
	IssuedAtMillis int64  `json:"issuedAtMillis"`
	jwt.RegisteredClaims
}

// SessionManager mints and validates admin session tokens. It holds no
// mutable state and is safe for concurrent use.
type SessionManager struct {
	secret       []byte
	maxAge       time.Duration
	secureCookie bool
	now          func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithClock overrides the time source used for issuance and verification.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// WithSecureCookie sets the Secure attribute on issued cookies.
func WithSecureCookie(secure bool) SessionOption {
	return func(m *SessionManager) {
		m.secureCookie = secure
	}
}

// NewSessionManager creates a manager signing with secret. An empty secret is
// accepted here so the process can start; Issue then fails with
// ErrConfigurationMissing and Verify rejects every token.
func NewSessionManager(secret string, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		secret: []byte(secret),
		maxAge: SessionMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Configured reports whether a signing key is available.
func (m *SessionManager) Configured() bool {
	return len(m.secret) > 0
}

// Issue mints a token for a freshly authenticated admin and returns it with
// its absolute expiry.
func (m *SessionManager) Issue() (string, time.Time, error) {
	if !m.Configured() {
		return "", time.Time{}, ErrConfigurationMissing
	}

	now := m.now()
	// exp has whole-second precision. Round it up so the token never expires
	// early; the IssuedAtMillis age check in Verify enforces the exact limit.
	limit := now.Add(m.maxAge)
	expiresAt := limit.Truncate(time.Second)
	if expiresAt.Before(limit) {
		expiresAt = expiresAt.Add(time.Second)
	}
	claims := Claims{
		Authenticated:  true,
		Role:           RoleAdmin,
		IssuedAtMillis: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify returns the claims of a valid token. Every failure, including
// malformed input, collapses to false.
func (m *SessionManager) Verify(token string) (*Claims, bool) {
	if token == "" || !m.Configured() {
		return nil, false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}

	// Independent of exp: the embedded issuance time must be recent too.
	age := m.now().UnixMilli() - claims.IssuedAtMillis
	if age >= m.maxAge.Milliseconds() {
		return nil, false
	}
	return claims, true
}

// RequireAuth returns the session claims or ErrUnauthorized.
func (m *SessionManager) RequireAuth(token string) (*Claims, error) {
	claims, ok := m.Verify(token)
	if !ok || !claims.Authenticated {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// RequireRequest reads the session cookie from r and calls RequireAuth.
func (m *SessionManager) RequireRequest(r *http.Request) (*Claims, error) {
	return m.RequireAuth(TokenFromRequest(r))
}

// Cookie wraps token in the session cookie.
func (m *SessionManager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie returns a cookie that deletes the session on the client.
func (m *SessionManager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookie,
		SameSite: http.SameSiteStrictMode,
	}
}

// TokenFromRequest returns the session token cookie value, or "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the session claims.
func NewContext(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// FromContext returns the session claims stored by NewContext.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok && claims != nil
}

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidCredentials)
}
