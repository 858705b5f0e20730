package telemetry

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	meterName = "github.com/jsamuelsen/quotebook/telemetry"

	// HeaderTraceID carries the active trace id back to the caller.
	HeaderTraceID = "X-Trace-ID"

	probePrefix = "/-/"
)

// apiInstruments measures /api traffic. Probes are polled too often to be
// worth recording.
type apiInstruments struct {
	latency  metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

func newAPIInstruments(meter metric.Meter) (*apiInstruments, error) {
	latency, errLatency := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Quote API request latency"),
		metric.WithUnit("s"))
	requests, errRequests := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Quote API requests served"))
	inFlight, errInFlight := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Quote API requests in progress"))

	if err := errors.Join(errLatency, errRequests, errInFlight); err != nil {
		return nil, err
	}

	return &apiInstruments{latency: latency, requests: requests, inFlight: inFlight}, nil
}

// Middleware records request metrics on the global meter provider and echoes
// the trace id in X-Trace-ID. When the instruments cannot be created the
// error goes to the otel error handler and requests pass through unmeasured.
func Middleware() gin.HandlerFunc {
	inst, err := newAPIInstruments(otel.Meter(meterName))
	if err != nil {
		otel.Handle(err)

		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, probePrefix) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		route := c.FullPath()
		if route == "" {
			// Unmatched paths share one label so scanners cannot blow up cardinality.
			route = "unmatched"
		}

		routeAttrs := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)

		inst.inFlight.Add(ctx, 1, routeAttrs)
		start := time.Now()

		c.Next()

		elapsed := time.Since(start).Seconds()
		inst.inFlight.Add(ctx, -1, routeAttrs)

		status := metric.WithAttributes(attribute.String("http.status_code", strconv.Itoa(c.Writer.Status())))
		inst.latency.Record(ctx, elapsed, routeAttrs, status)
		inst.requests.Add(ctx, 1, routeAttrs, status)
	}
}

// TracingMiddleware starts a server span per request via otelgin.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}
