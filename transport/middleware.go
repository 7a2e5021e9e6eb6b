package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type requestIDKey struct{}

// RequestID propagates the X-Request-ID header, generating one when the
// client sent none.
func RequestID() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			id := c.Header(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.SetHeader(HeaderRequestID, id)
			c.SetContext(context.WithValue(c.Context(), requestIDKey{}, id))
			return next(c)
		}
	}
}

// RequestIDFromContext returns the id set by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// AllowedHosts rejects requests whose host is not listed. Entries may
// be globs such as "*.example.com". An empty list allows every host.
func AllowedHosts(hosts ...string) MiddlewareFunc {
	matchers := compileGlobs(hosts)
	return func(next HandlerFunc) HandlerFunc {
		if len(matchers) == 0 {
			return next
		}
		return func(c Context) error {
			host := strings.ToLower(c.Host())
			for _, m := range matchers {
				if m.Match(host) {
					return next(c)
				}
			}
			return newHTTPError(http.StatusBadRequest, "DISALLOWED_HOST", "host not allowed").
				WithMetadata(map[string]any{"host": host})
		}
	}
}

// AllowedOrigins echoes the Origin header back for listed origins so
// browsers accept the response. Unlisted origins get no CORS header.
func AllowedOrigins(origins ...string) MiddlewareFunc {
	matchers := compileGlobs(origins)
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			c.SetHeader(HeaderVary, HeaderOrigin)
			origin := c.Header(HeaderOrigin)
			if origin != "" {
				for _, m := range matchers {
					if m.Match(strings.ToLower(origin)) {
						c.SetHeader(HeaderAllowOrigin, origin)
						break
					}
				}
			}
			return next(c)
		}
	}
}

func compileGlobs(patterns []string) []glob.Glob {
	var out []glob.Glob
	for _, p := range patterns {
		if g, err := glob.Compile(strings.ToLower(p)); err == nil {
			out = append(out, g)
		}
	}
	return out
}

// RateLimit rejects requests above the limiter's rate with 429.
func RateLimit(limiter *rate.Limiter) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			if !limiter.Allow() {
				return newHTTPError(http.StatusTooManyRequests, "", "").
					WithMetadata(map[string]any{"limit": float64(limiter.Limit()), "burst": limiter.Burst()})
			}
			return next(c)
		}
	}
}

// Metrics holds the request metrics of the HTTP surface.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	registry *prometheus.Registry
	mappers  []goerrors.ErrorMapper
}

// NewMetrics registers the metrics on reg, or on a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autocrud_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autocrud_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "autocrud_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		registry: reg,
		mappers:  DefaultErrorMappers(),
	}
}

// Instrument records requests to route. The status is the one the
// returned error maps to.
func (m *Metrics) Instrument(route string) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)

			m.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(StatusCode(err, m.mappers))).Inc()
			return err
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
