package obs_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/shipgrid/backend-import/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("landed", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/provinces", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/provinces"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/provinces", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsUsesChiPatternAndSize(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("landed", nil, registry)
	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/cars/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cars/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/cars/{id}", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
	require.Equal(t, 2, testutil.CollectAndCount(metrics.RespSize))
}

func TestNewHTTPMetricsReusesRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("landed", nil, registry)
	second := obs.NewHTTPMetrics("landed", nil, registry)
	first.ReqTotal.WithLabelValues(http.MethodGet, "/x", "200").Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(second.ReqTotal.WithLabelValues(http.MethodGet, "/x", "200")))
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 10, 2.5}, obs.ParseBucketsCSV(" 5,10, bad,,-1,2.5"))
	require.Empty(t, obs.ParseBucketsCSV(""))
}

func TestTracingMiddlewareContinuesParent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})

	r := chi.NewRouter()
	r.Use(obs.TracingMiddleware)
	r.Get("/cars/{id}/price", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	req := httptest.NewRequest(http.MethodGet, "/cars/9/price", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	require.Equal(t, "GET /cars/{id}/price", span.Name())
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext().TraceID().String())
	require.Equal(t, "00f067aa0ba902b7", span.Parent().SpanID().String())
	require.Equal(t, codes.Error, span.Status().Code)
}

func TestRequestLoggerWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json")
	handler := obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cars", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	require.Contains(t, line, `"message":"http_request"`)
	require.Contains(t, line, `"status":502`)
	require.Contains(t, line, `"level":"error"`)
	require.Contains(t, line, `"route":"/api/v1/cars"`)
}

func TestRequestLoggerScopesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json")
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := obs.LoggerFrom(r.Context(), zerolog.Nop())
		l.Info().Msg("inside_handler")
	})
	handler := middleware.RequestID(obs.RequestLogger{Logger: logger}.Middleware(inner))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/contact", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"message":"inside_handler"`)
	require.Contains(t, lines[0], `"request_id"`)
	require.Contains(t, lines[1], `"message":"http_request"`)
}

func TestLoggerFromFallsBack(t *testing.T) {
	var buf bytes.Buffer
	fallback := obs.NewLoggerTo(&buf, "json")
	l := obs.LoggerFrom(context.Background(), fallback)
	l.Info().Msg("fallback_used")
	require.Contains(t, buf.String(), "fallback_used")
}

func TestDomainMetricsObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("landed_test", registry)

	obs.ObserveQuote("landed", "BC", "success")
	obs.ObserveChargeTableReload("file", "success", 13)
	obs.ObserveChargeTableReload("file", "error", 0)
	obs.ObserveRateLimited("deposit")

	require.Equal(t, 1.0, testutil.ToFloat64(obs.QuoteTotal.WithLabelValues("landed", "BC", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.ChargeTableReloadTotal.WithLabelValues("file", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(obs.RateLimitedTotal.WithLabelValues("deposit")))
	require.Equal(t, 13.0, testutil.ToFloat64(obs.ChargeTableProvinces))
	require.NotZero(t, testutil.ToFloat64(obs.ChargeTableLoadedAt))
}
