package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments registered on a private
// prometheus registry so tests can instantiate more than one.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	authAttempts *prometheus.CounterVec
	otpFailures  prometheus.Counter
	emailsSent   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quillform_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quillform_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quillform_auth_attempts_total",
			Help: "Authentication attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
		otpFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quillform_otp_failures_total",
			Help: "Rejected one-time codes.",
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quillform_emails_sent_total",
			Help: "Outbound emails by template and outcome.",
		}, []string{"template", "outcome"}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.authAttempts,
		m.otpFailures,
		m.emailsSent,
	)
	return m
}

func (m *Metrics) RecordAuthAttempt(operation string, ok bool) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(operation, outcome(ok)).Inc()
}

func (m *Metrics) RecordOTPFailure() {
	if m == nil {
		return
	}
	m.otpFailures.Inc()
}

func (m *Metrics) RecordEmailSent(template string, ok bool) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(template, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

var Module = fx.Module("observability",
	fx.Provide(NewMetrics),
)
