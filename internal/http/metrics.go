package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// metrics keeps in-process request counters, exposed in plain text on /metrics.
type metrics struct {
	requestsTotal atomic.Int64
	status2xx     atomic.Int64
	status4xx     atomic.Int64
	status5xx     atomic.Int64
	started       time.Time
}

func newMetrics() *metrics {
	return &metrics{started: time.Now()}
}

func (m *metrics) record(status int) {
	m.requestsTotal.Add(1)
	switch {
	case status >= 500:
		m.status5xx.Add(1)
	case status >= 400:
		m.status4xx.Add(1)
	default:
		m.status2xx.Add(1)
	}
}

// handler writes metrics in Prometheus-like text format.
func (m *metrics) handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", m.requestsTotal.Load())

	fmt.Fprintf(w, "# HELP http_responses_total HTTP responses by status class\n")
	fmt.Fprintf(w, "# TYPE http_responses_total counter\n")
	fmt.Fprintf(w, "http_responses_total{class=\"2xx\"} %d\n", m.status2xx.Load())
	fmt.Fprintf(w, "http_responses_total{class=\"4xx\"} %d\n", m.status4xx.Load())
	fmt.Fprintf(w, "http_responses_total{class=\"5xx\"} %d\n\n", m.status5xx.Load())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(m.started).Seconds())
}
