package observability

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInboxCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncRefresh("SUCCESS")
	metrics.IncRefresh("degraded")
	metrics.IncFeedEvent("insert")
	metrics.IncReadMutation("group", "ok")
	metrics.IncEnrichmentFailure()
	metrics.IncActiveInboxes()
	metrics.DecActiveInboxes()

	if got := testutil.ToFloat64(metrics.inboxRefreshTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("inbox_refresh_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.inboxRefreshTotal.WithLabelValues("degraded")); got != 1 {
		t.Fatalf("inbox_refresh_total{degraded} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.feedEventsTotal.WithLabelValues("insert")); got != 1 {
		t.Fatalf("feed_events_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.readMutationsTotal.WithLabelValues("group", "ok")); got != 1 {
		t.Fatalf("read_mutations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.activeInboxes); got != 0 {
		t.Fatalf("active_inboxes = %v, want 0", got)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncRefresh("success")
	metrics.IncFeedEvent("update")
	metrics.IncReadMutation("one", "failed")
	metrics.IncEnrichmentFailure()
	metrics.IncActiveInboxes()
	metrics.DecActiveInboxes()
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
