package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotebook/internal/adapters/clients"

	defaultTimeout = 30 * time.Second

	// Pool sizes used when TransportConfig leaves a field at zero.
	transportMaxIdleConns        = 100
	transportMaxIdleConnsPerHost = 10
	transportIdleConnTimeout     = 90 * time.Second
)

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to every request path, e.g. "https://jsonplaceholder.typicode.com".
	BaseURL string

	// ServiceName names the remote in logs, spans and metrics.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Client calls one remote HTTP service. Each call passes through the circuit
// breaker, is retried on transport errors and 5xx responses with jittered
// exponential backoff, and carries the caller's request, correlation and
// trace ids.
type Client struct {
	http    *http.Client
	baseURL string
	name    string
	retry   backoff
	logger  *slog.Logger
	cb      *CircuitBreaker
	inst    instruments
}

type instruments struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// New builds a Client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retry := backoff(cfg.Retry)
	retry.MaxAttempts = max(retry.MaxAttempts, 1)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients.Client"), slog.String("downstream", cfg.ServiceName))

	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   cfg.Circuit.MaxFailures,
		Timeout:       cfg.Circuit.Timeout,
		HalfOpenLimit: cfg.Circuit.HalfOpenLimit,
	})
	cb.OnStateChange(func(from, to State) {
		logger.Warn("remote circuit changed", slog.String("from", from.String()), slog.String("to", to.String()))
	})

	return &Client{
		http:    &http.Client{Timeout: timeout, Transport: newTransport(cfg.Transport)},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		name:    cfg.ServiceName,
		retry:   retry,
		logger:  logger,
		cb:      cb,
		inst:    inst,
	}, nil
}

func newInstruments() (instruments, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("http.client.request.duration",
		metric.WithDescription("Duration of calls to remote services"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return instruments{}, fmt.Errorf("creating duration metric: %w", err)
	}

	total, err := meter.Int64Counter("http.client.request.total",
		metric.WithDescription("Calls to remote services by result"),
	)
	if err != nil {
		return instruments{}, fmt.Errorf("creating request counter: %w", err)
	}

	return instruments{tracer: otel.Tracer(instrumentationName), duration: duration, total: total}, nil
}

func newTransport(tc config.TransportConfig) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        orDefault(tc.MaxIdleConns, transportMaxIdleConns),
		MaxIdleConnsPerHost: orDefault(tc.MaxIdleConnsPerHost, transportMaxIdleConnsPerHost),
		IdleConnTimeout:     orDefault(tc.IdleConnTimeout, transportIdleConnTimeout),
	}
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}

	return v
}

// Do sends req. A body is only resent on retry when req.GetBody is set;
// PostJSON always sets it.
//
// Responses below 500 are returned to the caller as-is. A 5xx that survives
// every attempt becomes a *StatusError wrapped in ErrMaxRetriesExceeded.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.name),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.cb.Allow() {
		c.observe(ctx, req.Method, 0, start, "circuit_open")
		logger.Warn("remote call rejected, circuit open")

		return nil, ErrCircuitOpen
	}

	ctx, span := c.inst.tracer.Start(ctx, "HTTP "+req.Method+" "+c.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	stampHeaders(ctx, req)

	resp, err := c.send(ctx, req, logger)
	if err != nil {
		c.cb.RecordFailure()
		span.SetStatus(codes.Error, err.Error())
		c.observe(ctx, req.Method, 0, start, "error")
		logger.Error("remote call failed", slog.Duration("duration", time.Since(start)), slog.Any("error", err))

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, "HTTP "+resp.Status)
	}

	c.observe(ctx, req.Method, resp.StatusCode, start, fmt.Sprintf("%dxx", resp.StatusCode/100))
	logger.Debug("remote call completed", slog.Int("status", resp.StatusCode), slog.Duration("duration", time.Since(start)))

	return resp, nil
}

// send runs the attempt loop.
func (c *Client) send(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.http.Do(req.WithContext(ctx))

		retry, err := c.classify(resp, err, logger)
		if err == nil {
			return resp, nil
		}

		if !retry || attempt >= c.retry.MaxAttempts {
			return nil, err
		}

		wait := c.retry.delay(attempt - 1)
		logger.Debug("retrying remote call",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
			slog.Any("cause", err),
		)

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}

		if err := rewindBody(req); err != nil {
			return nil, err
		}
	}
}

// classify reports whether an attempt should be retried and the error it
// produced. A nil error means resp goes back to the caller.
func (c *Client) classify(resp *http.Response, err error, logger *slog.Logger) (bool, error) {
	if err != nil {
		return isRetryableError(err), err
	}

	if resp.StatusCode < http.StatusInternalServerError {
		return false, nil
	}

	if closeErr := resp.Body.Close(); closeErr != nil {
		logger.Debug("closing 5xx body", slog.Any("error", closeErr))
	}

	return true, &StatusError{StatusCode: resp.StatusCode}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func rewindBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	if req.GetBody == nil {
		return errors.New("request body cannot be replayed")
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}

	req.Body = body

	return nil
}

// Get issues a GET for path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return c.Do(ctx, req)
}

// PostJSON encodes payload and POSTs it to path. The encoded body is
// replayable, so the call is retried like a GET.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return c.Do(ctx, req)
}

// SingleAttempt returns a view of c that never retries. It shares c's
// breaker, transport and instruments, so failures still count towards
// opening the circuit. Callers whose requests are not idempotent use it.
func (c *Client) SingleAttempt() *Client {
	once := *c
	once.retry.MaxAttempts = 1

	return &once
}

// ServiceName returns the remote's name.
func (c *Client) ServiceName() string {
	return c.name
}

// CircuitState returns the breaker position.
func (c *Client) CircuitState() State {
	return c.cb.State()
}

// stampHeaders copies the inbound request's ids and trace context onto the
// outbound call.
func stampHeaders(ctx context.Context, req *http.Request) {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func (c *Client) observe(ctx context.Context, method string, status int, start time.Time, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.name),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	set := metric.WithAttributes(attrs...)
	c.inst.duration.Record(ctx, time.Since(start).Seconds(), set)
	c.inst.total.Add(ctx, 1, set)
}

// backoff computes retry delays from the configured policy.
type backoff config.RetryConfig

// delay returns the wait before retry n (zero based): InitialInterval grown
// by Multiplier per retry, capped at MaxInterval, then spread by
// ±JitterFactor.
func (b backoff) delay(n int) time.Duration {
	d := math.Min(
		float64(b.InitialInterval)*math.Pow(b.Multiplier, float64(n)),
		float64(b.MaxInterval),
	)

	spread := rand.Float64()*2 - 1 //nolint:gosec // jitter does not need crypto randomness

	return time.Duration(d + d*b.JitterFactor*spread)
}

// isRetryableError accepts timeouts and connection-level failures, never a
// cancelled or expired context.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
