package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caucus/internal/models"
	"caucus/internal/storage"
	"caucus/internal/version"
)

func setupTestProvider(t *testing.T) *promclient.Registry {
	t.Helper()
	reg := promclient.NewRegistry()
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{
		ServiceName: "caucus-test",
		Tracing: models.TracingConfig{
			Enabled:    true,
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
	}
	provider, err := Setup(metrics, obs, version.Info{}, WithRegistry(reg))
	require.NoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return reg
}

func findFamily(t *testing.T, reg *promclient.Registry, substr string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if strings.Contains(f.GetName(), substr) {
			return f
		}
	}
	return nil
}

func sumCounter(f *dto.MetricFamily, label, value string) float64 {
	var total float64
	for _, m := range f.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == label && l.GetValue() == value {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func TestInstrumentedStorage_RecordsDurations(t *testing.T) {
	reg := setupTestProvider(t)

	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)

	ctx := context.Background()
	event := &models.Event{ID: "e1", Title: "Hearing", Date: time.Now()}
	require.NoError(t, instrumented.SaveEvent(ctx, event))

	got, err := instrumented.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Hearing", got.Title)

	events, err := instrumented.Events(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	require.NoError(t, instrumented.Ping(ctx))

	family := findFamily(t, reg, "storage_operation_duration")
	require.NotNil(t, family, "duration histogram should be exported")
	assert.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())

	ops := map[string]bool{}
	for _, m := range family.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "operation" {
				ops[l.GetValue()] = true
			}
		}
	}
	for _, op := range []string{"SaveEvent", "GetEvent", "Events", "Ping"} {
		assert.True(t, ops[op], "missing operation %s", op)
	}
}

func TestInstrumentedStorage_PassesThroughEveryOperation(t *testing.T) {
	_ = setupTestProvider(t)
	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, instrumented.SaveResource(ctx, &models.Resource{ID: "r1", Title: "CRS", URL: "https://x.org"}))
	_, err = instrumented.GetResource(ctx, "r1")
	require.NoError(t, err)
	resources, err := instrumented.Resources(ctx)
	require.NoError(t, err)
	assert.Len(t, resources, 1)
	require.NoError(t, instrumented.DeleteResource(ctx, "r1"))

	require.NoError(t, instrumented.SaveTechItem(ctx, &models.TechItem{ID: "t1", Name: "Go"}))
	_, err = instrumented.GetTechItem(ctx, "t1")
	require.NoError(t, err)
	items, err := instrumented.TechItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	require.NoError(t, instrumented.DeleteTechItem(ctx, "t1"))

	require.NoError(t, instrumented.SaveContactMessage(ctx, &models.ContactMessage{ID: "m1", Name: "A", Email: "a@b.org", Message: "hello world"}))
	msgs, err := instrumented.ContactMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	require.NoError(t, instrumented.SaveEvent(ctx, &models.Event{ID: "e1", Title: "x"}))
	require.NoError(t, instrumented.DeleteEvent(ctx, "e1"))

	assert.NoError(t, instrumented.Close())
}

func TestInstrumentedStorage_NotFoundIsNotAnError(t *testing.T) {
	reg := setupTestProvider(t)
	instrumented, err := NewInstrumentedStorage(storage.NewMemoryStorage())
	require.NoError(t, err)

	_, err = instrumented.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	if family := findFamily(t, reg, "storage_operation_errors"); family != nil {
		assert.Zero(t, sumCounter(family, "operation", "GetEvent"))
	}
}

type failingStorage struct {
	storage.Storage
}

func (failingStorage) Ping(context.Context) error { return assert.AnError }

func TestInstrumentedStorage_CountsErrors(t *testing.T) {
	reg := setupTestProvider(t)
	instrumented, err := NewInstrumentedStorage(failingStorage{})
	require.NoError(t, err)

	assert.ErrorIs(t, instrumented.Ping(context.Background()), assert.AnError)

	family := findFamily(t, reg, "storage_operation_errors")
	require.NotNil(t, family)
	assert.Equal(t, float64(1), sumCounter(family, "operation", "Ping"))
}

func TestSecurityMetrics(t *testing.T) {
	reg := setupTestProvider(t)
	m, err := NewSecurityMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.LoginAttempt(ctx, LoginInvalid)
	m.LoginAttempt(ctx, LoginInvalid)
	m.LoginAttempt(ctx, LoginSuccess)
	m.RateLimited(ctx, "contact")

	logins := findFamily(t, reg, "auth_login_attempts")
	require.NotNil(t, logins)
	assert.Equal(t, float64(2), sumCounter(logins, "outcome", LoginInvalid))
	assert.Equal(t, float64(1), sumCounter(logins, "outcome", LoginSuccess))

	denied := findFamily(t, reg, "ratelimit_denied")
	require.NotNil(t, denied)
	assert.Equal(t, float64(1), sumCounter(denied, "action", "contact"))

	var nilMetrics *SecurityMetrics
	assert.NotPanics(t, func() { nilMetrics.LoginAttempt(ctx, LoginSuccess) })
}
