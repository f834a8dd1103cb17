package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/x", "GET", 200, time.Millisecond)
	m.RecordError("/x", "GET", "NOT_FOUND")
	m.RecordAuthDecision(false, "NO_TOKEN")
	m.RecordLogin("success")
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordAuthDecision(false, "INVALID_TOKEN")
	m.RecordAuthDecision(false, "INVALID_TOKEN")
	m.RecordAuthDecision(true, "")
	m.RecordLogin("invalid_credentials")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authDecisions.WithLabelValues("denied", "INVALID_TOKEN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authDecisions.WithLabelValues("allowed", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("invalid_credentials")))
}

func TestMetrics_HandlerAndRequestLogger(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zapTestLogger(t), m))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `blog_http_requests_total{method="GET",path="/ping",status="200"} 1`)
}
