package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/observability"
)

const (
	instrumentationName = "github.com/gaborage/taskclient/http"

	metricRequests     = "taskclient.http.requests"
	metricRetries      = "taskclient.http.retries"
	metricAuthFailures = "taskclient.http.auth_failures"
	metricDuration     = "taskclient.http.duration"
	metricInFlight     = "taskclient.http.in_flight"
)

// telemetry records one span per logical call plus call-level metrics.
type telemetry struct {
	tracer       oteltrace.Tracer
	requests     metric.Int64Counter
	retries      metric.Int64Counter
	authFailures metric.Int64Counter
	duration     metric.Float64Histogram
	inFlight     metric.Int64UpDownCounter
}

// newTelemetry builds instruments from the given providers, falling back to the
// global ones. Instruments that fail to register become no-ops.
func newTelemetry(tp oteltrace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)
	noopMeter := metricnoop.NewMeterProvider().Meter(instrumentationName)

	t := &telemetry{tracer: tp.Tracer(instrumentationName)}

	var err error
	if t.requests, err = observability.CreateCounter(meter, metricRequests, "Logical task API calls by outcome"); err != nil {
		t.requests, _ = noopMeter.Int64Counter(metricRequests)
	}
	if t.retries, err = observability.CreateCounter(meter, metricRetries, "Transient-failure retries"); err != nil {
		t.retries, _ = noopMeter.Int64Counter(metricRetries)
	}
	if t.authFailures, err = observability.CreateCounter(meter, metricAuthFailures, "Calls rejected with 401"); err != nil {
		t.authFailures, _ = noopMeter.Int64Counter(metricAuthFailures)
	}
	if t.duration, err = observability.CreateHistogram(meter, metricDuration, "Logical call duration including retries",
		metric.WithUnit("ms")); err != nil {
		t.duration, _ = noopMeter.Float64Histogram(metricDuration)
	}
	if t.inFlight, err = observability.CreateUpDownCounter(meter, metricInFlight, "Logical calls currently running"); err != nil {
		t.inFlight, _ = noopMeter.Int64UpDownCounter(metricInFlight)
	}

	return t
}

// wireStats is the dispatch count and wire time carried by the call context.
type wireStats struct {
	dispatches int64
	elapsed    time.Duration
}

func wireSnapshot(ctx context.Context) wireStats {
	return wireStats{dispatches: logger.GetHTTPCounter(ctx), elapsed: logger.GetHTTPElapsed(ctx)}
}

// since returns what was dispatched after w was taken.
func (w wireStats) since(ctx context.Context) wireStats {
	now := wireSnapshot(ctx)
	return wireStats{dispatches: now.dispatches - w.dispatches, elapsed: now.elapsed - w.elapsed}
}

func (t *telemetry) start(ctx context.Context, method, url string) (context.Context, oteltrace.Span) {
	t.inFlight.Add(ctx, 1, metric.WithAttributes(attribute.String("http.request.method", method)))
	return t.tracer.Start(ctx, "HTTP "+method,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
}

func (t *telemetry) recordRetry(ctx context.Context, method string, attempt int) {
	t.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("http.request.method", method)))
	oteltrace.SpanFromContext(ctx).AddEvent("retry", oteltrace.WithAttributes(attribute.Int("attempt", attempt)))
}

func (t *telemetry) finish(ctx context.Context, span oteltrace.Span, method string, elapsed time.Duration, retries int, wire wireStats, err error) {
	class := Classify(err)
	outcome := "success"
	if err != nil {
		outcome = string(class)
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("outcome", outcome),
	}
	t.inFlight.Add(ctx, -1, metric.WithAttributes(attribute.String("http.request.method", method)))
	t.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	t.duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))

	span.SetAttributes(
		attribute.Int("http.retry_count", retries),
		attribute.Int64("http.dispatch_count", wire.dispatches),
		attribute.Float64("http.wire_time_ms", float64(wire.elapsed.Microseconds())/1000),
	)
	if code, ok := StatusCode(err); ok {
		span.SetAttributes(attribute.Int("http.response.status_code", code))
	}

	if err != nil {
		if class == ClassAuth {
			t.authFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("http.request.method", method)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
