package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ctxKey string

const (
	routeLabelKey   ctxKey = "metrics_route"
	requestIDCtxKey ctxKey = "metrics_request_id"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "henboard_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "henboard_http_errors_total",
		Help: "Total number of HTTP requests resulting in server errors.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "henboard_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "henboard_backend_latency_seconds",
		Help:    "Histogram of HEN backend call latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "route"})

	backendCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "henboard_backend_cache_lookups_total",
		Help: "Experiment cache lookups by result.",
	}, []string{"result"})

	calendarShifts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "henboard_calendar_shifts_total",
		Help: "Calendar window shifts by direction and step.",
	}, []string{"direction", "step"})

	calendarClicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "henboard_calendar_clicks_total",
		Help: "Calendar clicks by target and allocation state.",
	}, []string{"target", "allocated"})

	activeCalendars = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "henboard_active_calendars",
		Help: "Calendars currently held for browser sessions.",
	})
)

// Middleware records request metrics and enriches the context with labels for downstream instrumentation.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())

			ctx := context.WithValue(r.Context(), routeLabelKey, r.URL.Path)
			if reqID != "" {
				ctx = context.WithValue(ctx, requestIDCtxKey, reqID)
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			// chi fills the route pattern while routing, so read it afterwards.
			route := routePattern(r)
			status := ww.Status()
			method := r.Method
			duration := time.Since(start).Seconds()
			statusCode := strconv.Itoa(status)

			httpRequestsTotal.WithLabelValues(method, route).Inc()
			httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)
			if status >= http.StatusInternalServerError {
				httpErrorsTotal.WithLabelValues(method, route, statusCode).Inc()
			}
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBackendLatency records a HEN backend call, associating it with request labels when available.
func ObserveBackendLatency(ctx context.Context, operation string, start time.Time) {
	route := routeFromContext(ctx)
	backendLatency.WithLabelValues(operation, route).Observe(time.Since(start).Seconds())
}

// RecordCacheLookup counts an experiment cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	backendCacheLookups.WithLabelValues(result).Inc()
}

// RecordShift counts a calendar window shift.
func RecordShift(step int) {
	direction := "next"
	if step < 0 {
		direction = "back"
		step = -step
	}
	calendarShifts.WithLabelValues(direction, strconv.Itoa(step)).Inc()
}

// RecordClick counts a click on a calendar label or date cell.
func RecordClick(target string, allocated bool) {
	calendarClicks.WithLabelValues(target, strconv.FormatBool(allocated)).Inc()
}

// SetActiveCalendars reports how many session calendars are held in memory.
func SetActiveCalendars(n int) {
	activeCalendars.Set(float64(n))
}

// RequestIDFromContext extracts the request ID stored by the metrics middleware.
func RequestIDFromContext(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return reqID
	}
	return ""
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeLabelKey).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
