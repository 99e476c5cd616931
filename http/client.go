package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/taskclient/logger"
)

// client implements the Client interface
type client struct {
	transport  Transport
	logger     logger.Logger
	config     *Config
	outbound   []RequestStage
	inbound    []ResponseStage
	sleep      Sleeper
	telemetry  *telemetry
	maxRetries int
}

// Config holds the resilient client configuration
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
	DefaultHeaders     map[string]string
	LogPayloads        bool
	MaxPayloadLogBytes int
	HTTPClient         *nethttp.Client
	TokenStore         TokenStore
	Redirector         Redirector
	RequestStages      []RequestStage
	ResponseStages     []ResponseStage
	Sleeper            Sleeper
	Transport          Transport
	TracerProvider     oteltrace.TracerProvider
	MeterProvider      metric.MeterProvider
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config *Config
	logger logger.Logger
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			BaseURL:            DefaultBaseURL,
			Timeout:            DefaultTimeout,
			MaxRetries:         DefaultMaxRetries,
			RetryDelay:         DefaultRetryDelay,
			DefaultHeaders:     map[string]string{headerContentType: contentTypeJSON},
			MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
		},
		logger: log,
	}
}

// WithBaseURL sets the URL relative request paths are joined onto
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-dispatch timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the default retry budget and backoff base
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = retryDelay
	return b
}

// WithDefaultHeader adds a header sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithPayloadLogging enables debug logging of bodies, truncated to maxBytes
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	b.config.MaxPayloadLogBytes = maxBytes
	return b
}

// WithHTTPClient sets the net/http client used by the default transport
func (b *Builder) WithHTTPClient(httpClient *nethttp.Client) *Builder {
	b.config.HTTPClient = httpClient
	return b
}

// WithTransport replaces the default net/http transport
func (b *Builder) WithTransport(t Transport) *Builder {
	b.config.Transport = t
	return b
}

// WithTokenStore enables bearer authentication and 401 token removal
func (b *Builder) WithTokenStore(store TokenStore) *Builder {
	b.config.TokenStore = store
	return b
}

// WithRedirector sets the sign-in redirect triggered by 401
func (b *Builder) WithRedirector(r Redirector) *Builder {
	b.config.Redirector = r
	return b
}

// WithRequestStage appends an outbound stage. Stages run in order after authentication.
func (b *Builder) WithRequestStage(stage RequestStage) *Builder {
	b.config.RequestStages = append(b.config.RequestStages, stage)
	return b
}

// WithResponseStage adds an inbound stage evaluated before the built-in classification.
func (b *Builder) WithResponseStage(stage ResponseStage) *Builder {
	b.config.ResponseStages = append(b.config.ResponseStages, stage)
	return b
}

// WithSleeper replaces the backoff wait
func (b *Builder) WithSleeper(s Sleeper) *Builder {
	b.config.Sleeper = s
	return b
}

// WithTracerProvider sets the provider for call spans (default: global)
func (b *Builder) WithTracerProvider(tp oteltrace.TracerProvider) *Builder {
	b.config.TracerProvider = tp
	return b
}

// WithMeterProvider sets the provider for call metrics (default: global)
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.config.MeterProvider = mp
	return b
}

// Build assembles the pipeline:
// outbound = auth (when a store is set), then custom stages;
// inbound = custom stages, unwrap, 401 handling, gated retry, then terminal fallback.
func (b *Builder) Build() Client {
	cfg := b.config

	transport := cfg.Transport
	if transport == nil {
		transport = NewTransport(b.logger, TransportOptions{
			BaseURL:            cfg.BaseURL,
			Timeout:            cfg.Timeout,
			DefaultHeaders:     cfg.DefaultHeaders,
			HTTPClient:         cfg.HTTPClient,
			LogPayloads:        cfg.LogPayloads,
			MaxPayloadLogBytes: cfg.MaxPayloadLogBytes,
		})
	}

	var outbound []RequestStage
	if cfg.TokenStore != nil {
		outbound = append(outbound, NewAuthStage(cfg.TokenStore))
	}
	outbound = append(outbound, cfg.RequestStages...)

	inbound := append([]ResponseStage{}, cfg.ResponseStages...)
	inbound = append(inbound,
		UnwrapStage,
		NewAuthFailureStage(cfg.TokenStore, cfg.Redirector, b.logger),
		NewRetryStage(cfg.MaxRetries, cfg.RetryDelay),
	)

	sleep := cfg.Sleeper
	if sleep == nil {
		sleep = SleepContext
	}

	return &client{
		transport:  transport,
		logger:     b.logger,
		config:     cfg,
		outbound:   outbound,
		inbound:    inbound,
		sleep:      sleep,
		telemetry:  newTelemetry(cfg.TracerProvider, cfg.MeterProvider),
		maxRetries: cfg.MaxRetries,
	}
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) ([]byte, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) ([]byte, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) ([]byte, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) ([]byte, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) ([]byte, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do runs req through the pipeline until an inbound stage returns Success or Terminal.
// Retries re-run every outbound stage. The loop never dispatches more than
// 1 + resolved MaxRetries times.
func (c *client) Do(ctx context.Context, method string, req *Request) ([]byte, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	req.Method = method

	if !logger.HasHTTPCounter(ctx) {
		ctx = logger.WithHTTPCounter(ctx)
	}

	start := time.Now()
	base := wireSnapshot(ctx)
	ctx, span := c.telemetry.start(ctx, method, req.URL)
	hardCap := ResolveMaxRetries(req.MaxRetries, c.maxRetries)
	retries := 0

	for {
		outcome := c.dispatch(ctx, req)

		if outcome.Kind == OutcomeRetry {
			if retries >= hardCap {
				outcome = Fail(outcome.Err)
			} else {
				retries++
			}
		}

		switch outcome.Kind {
		case OutcomeSuccess:
			c.telemetry.finish(ctx, span, method, time.Since(start), retries, base.since(ctx), nil)
			return outcome.Body, nil

		case OutcomeRetry:
			wire := base.since(ctx)
			c.logger.WithContext(ctx).Debug().
				Err(outcome.Err).
				Str("method", method).
				Str("url", req.URL).
				Int("retry_count", req.RetryCount).
				Int64("dispatch_count", wire.dispatches).
				Dur("wire_time", wire.elapsed).
				Dur("delay", outcome.Delay).
				Msg("Retrying request after transient failure")
			c.telemetry.recordRetry(ctx, method, outcome.Attempt)

			if err := c.sleep(ctx, outcome.Delay); err != nil {
				joined := errors.Join(outcome.Err, err)
				c.telemetry.finish(ctx, span, method, time.Since(start), retries, base.since(ctx), joined)
				return nil, joined
			}

		default:
			c.telemetry.finish(ctx, span, method, time.Since(start), retries, base.since(ctx), outcome.Err)
			return nil, outcome.Err
		}
	}
}

// DoWithBackoff retries whole calls with the standalone helper. Each attempt
// dispatches a fresh copy of req, so each gets its own retry gate. Without a
// ShouldRetry filter only transient failures are retried: a 401 has already
// cleared the token and redirected, and other statuses will not change.
func (c *client) DoWithBackoff(ctx context.Context, method string, req *Request, b Backoff) ([]byte, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	if b.ShouldRetry == nil {
		b.ShouldRetry = isTransient
	}
	return RetryValue(ctx, b, func(ctx context.Context) ([]byte, error) {
		return c.Do(ctx, method, req.Clone())
	})
}

func isTransient(err error) bool {
	return Classify(err) == ClassTransient
}

// dispatch runs one pass of the pipeline.
func (c *client) dispatch(ctx context.Context, req *Request) Outcome {
	for _, stage := range c.outbound {
		if err := stage(ctx, req); err != nil {
			return Fail(NewInterceptorError("request stage failed", "request", err))
		}
	}

	resp, err := c.transport.Execute(ctx, req)

	for _, stage := range c.inbound {
		if outcome, handled := stage(ctx, req, resp, err); handled {
			return outcome
		}
	}
	return Fail(err)
}

// validateRequest validates the request before sending
func (c *client) validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}
