package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the inbox and HTTP flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	inboxRefreshTotal       *prometheus.CounterVec
	feedEventsTotal         *prometheus.CounterVec
	readMutationsTotal      *prometheus.CounterVec
	enrichmentFailuresTotal prometheus.Counter
	activeInboxes           prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fulldevland",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fulldevland",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		inboxRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fulldevland",
				Name:      "inbox_refresh_total",
				Help:      "Total number of inbox refresh cycles by outcome.",
			},
			[]string{"outcome"},
		),
		feedEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fulldevland",
				Name:      "feed_events_total",
				Help:      "Total number of change-feed events received by kind.",
			},
			[]string{"kind"},
		),
		readMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fulldevland",
				Name:      "read_mutations_total",
				Help:      "Total number of read-state mutations by scope and outcome.",
			},
			[]string{"scope", "outcome"},
		),
		enrichmentFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fulldevland",
				Name:      "enrichment_failures_total",
				Help:      "Total number of failed conversation display-name lookups.",
			},
		),
		activeInboxes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fulldevland",
				Name:      "active_inboxes",
				Help:      "Current number of running per-user inbox instances.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.inboxRefreshTotal,
		m.feedEventsTotal,
		m.readMutationsTotal,
		m.enrichmentFailuresTotal,
		m.activeInboxes,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncRefresh(outcome string) {
	if m == nil {
		return
	}
	m.inboxRefreshTotal.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncFeedEvent(kind string) {
	if m == nil {
		return
	}
	m.feedEventsTotal.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *Metrics) IncReadMutation(scope string, outcome string) {
	if m == nil {
		return
	}
	m.readMutationsTotal.WithLabelValues(normalizeLabel(scope), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncEnrichmentFailure() {
	if m == nil {
		return
	}
	m.enrichmentFailuresTotal.Inc()
}

func (m *Metrics) IncActiveInboxes() {
	if m == nil {
		return
	}
	m.activeInboxes.Inc()
}

func (m *Metrics) DecActiveInboxes() {
	if m == nil {
		return
	}
	m.activeInboxes.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	label := strings.TrimSpace(strings.ToLower(v))
	if label == "" {
		return "unknown"
	}
	return label
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}
	return c.Response().StatusCode()
}
