package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Login outcomes recorded by SecurityMetrics.
const (
	LoginSuccess       = "success"
	LoginInvalid       = "invalid_password"
	LoginRateLimited   = "rate_limited"
	LoginMisconfigured = "misconfigured"
)

// SecurityMetrics counts login attempts and rate-limit denials.
type SecurityMetrics struct {
	logins  metric.Int64Counter
	limited metric.Int64Counter
}

// NewSecurityMetrics creates the counters on the global meter provider. With
// metrics disabled the global provider is a no-op and so are the counters.
func NewSecurityMetrics() (*SecurityMetrics, error) {
	meter := otel.Meter("caucus/api")

	logins, err := meter.Int64Counter(
		"auth.login.attempts",
		metric.WithDescription("Admin login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	limited, err := meter.Int64Counter(
		"ratelimit.denied",
		metric.WithDescription("Requests denied by an attempt limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &SecurityMetrics{logins: logins, limited: limited}, nil
}

// LoginAttempt records one login with the given outcome.
func (m *SecurityMetrics) LoginAttempt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RateLimited records a denial for action ("login", "contact").
func (m *SecurityMetrics) RateLimited(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.limited.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}
