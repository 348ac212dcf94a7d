package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	// HTTPResponseSize is mostly interesting for the result and placement
	// listings, which grow with the size of the feis.
	HTTPResponseSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"method", "route"},
	)
)

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// HTTPMiddleware records request count, latency and response size, labelled
// by the matched route rather than the raw path.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		ctx, route := trackRoute(r.Context())
		r = r.WithContext(ctx)

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		label := routeLabel(r, route.pattern)
		HTTPRequestsTotal.WithLabelValues(r.Method, label, strconv.Itoa(sw.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())
		HTTPResponseSize.WithLabelValues(r.Method, label).Observe(float64(sw.size))
	})
}

type routeKey struct{}

type matchedRoute struct {
	pattern string
}

// trackRoute installs a slot for the mux pattern unless an outer middleware
// already did.
func trackRoute(ctx context.Context) (context.Context, *matchedRoute) {
	if m, ok := ctx.Value(routeKey{}).(*matchedRoute); ok {
		return ctx, m
	}
	m := &matchedRoute{}
	return context.WithValue(ctx, routeKey{}, m), m
}

// TrackRoute prepares ctx so MatchedRoute can report the pattern after the
// request has been served.
func TrackRoute(ctx context.Context) context.Context {
	ctx, _ = trackRoute(ctx)
	return ctx
}

// MatchedRoute returns the mux pattern recorded by RecordRoute, if any.
func MatchedRoute(ctx context.Context) string {
	if m, ok := ctx.Value(routeKey{}).(*matchedRoute); ok {
		return m.pattern
	}
	return ""
}

// RecordRoute wraps the mux. ServeMux stores the matched pattern on the
// request it was handed, which middleware further out never sees.
func RecordRoute(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if m, ok := r.Context().Value(routeKey{}).(*matchedRoute); ok {
			m.pattern = r.Pattern
		}
	})
}

// routeLabel keeps the path label bounded: the matched mux pattern when one
// was recorded, otherwise the path with id segments collapsed.
func routeLabel(r *http.Request, pattern string) string {
	if pattern == "" {
		pattern = r.Pattern
	}
	if pattern != "" {
		if _, route, ok := strings.Cut(pattern, " "); ok {
			return route
		}
		return pattern
	}
	segments := strings.Split(r.URL.Path, "/")
	for i, seg := range segments {
		if isIDSegment(seg) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func isIDSegment(seg string) bool {
	if seg == "" {
		return false
	}
	if _, err := ulid.ParseStrict(seg); err == nil {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
