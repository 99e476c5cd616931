package http

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/trace"
)

const (
	// DefaultMaxRetries is the retry budget used when a request does not set one
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the backoff base: retry n waits 2^n * DefaultRetryDelay
	DefaultRetryDelay = 1 * time.Second

	headerAuthorization = "Authorization"

	maxBackoffExponent = 20
)

// NewAuthStage attaches "Authorization: Bearer <token>" when the store holds a token.
// It runs before every dispatch, so a retry carries the current token.
func NewAuthStage(store TokenStore) RequestStage {
	return func(ctx context.Context, req *Request) error {
		token, ok, err := store.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if ok && token != "" {
			req.SetHeader(headerAuthorization, "Bearer "+token)
		}
		return nil
	}
}

// NewTraceIDStage sets header (default X-Request-ID) unless already present.
// The ID comes from the context, then generate, then a fresh UUID.
func NewTraceIDStage(header string, generate func() string) RequestStage {
	if header == "" {
		header = trace.HeaderXRequestID
	}
	return func(ctx context.Context, req *Request) error {
		if req.Header(header) != "" {
			return nil
		}
		id, ok := trace.IDFromContext(ctx)
		if !ok && generate != nil {
			id = generate()
		}
		if id == "" {
			id = trace.EnsureTraceID(ctx)
		}
		req.SetHeader(header, id)
		return nil
	}
}

// NewTraceParentStage propagates W3C trace context. The active OpenTelemetry span wins,
// then values stored with trace.WithTraceParent; otherwise a fresh traceparent is generated.
func NewTraceParentStage() RequestStage {
	propagator := propagation.TraceContext{}
	return func(ctx context.Context, req *Request) error {
		if req.Header(trace.HeaderTraceParent) != "" {
			return nil
		}

		carrier := propagation.MapCarrier{}
		propagator.Inject(ctx, carrier)
		if tp := carrier.Get(trace.HeaderTraceParent); tp != "" {
			req.SetHeader(trace.HeaderTraceParent, tp)
			if ts := carrier.Get(trace.HeaderTraceState); ts != "" {
				req.SetHeader(trace.HeaderTraceState, ts)
			}
			return nil
		}

		tp, ok := trace.ParentFromContext(ctx)
		if !ok {
			tp = trace.GenerateTraceParent()
		}
		req.SetHeader(trace.HeaderTraceParent, tp)
		if ts, ok := trace.StateFromContext(ctx); ok {
			req.SetHeader(trace.HeaderTraceState, ts)
		}
		return nil
	}
}

// NewRateLimitStage blocks each dispatch until limiter admits it. A nil limiter admits everything.
func NewRateLimitStage(limiter *rate.Limiter) RequestStage {
	return func(ctx context.Context, _ *Request) error {
		if limiter == nil {
			return nil
		}
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		return nil
	}
}

// UnwrapStage turns any error-free dispatch into a Success carrying the body.
func UnwrapStage(_ context.Context, _ *Request, resp *Response, err error) (Outcome, bool) {
	if err != nil {
		return Outcome{}, false
	}
	if resp == nil {
		return Succeed(nil), true
	}
	return Succeed(resp.Body), true
}

// NewAuthFailureStage handles 401: the token is removed, then the user is sent to sign in,
// each exactly once, and the original error is returned. 401 is never retried.
// A failing RemoveToken is logged and does not suppress the redirect.
func NewAuthFailureStage(store TokenStore, redirector Redirector, log logger.Logger) ResponseStage {
	return func(ctx context.Context, req *Request, _ *Response, err error) (Outcome, bool) {
		if !IsHTTPStatusError(err, nethttp.StatusUnauthorized) {
			return Outcome{}, false
		}

		// the call may have been cancelled; side effects still apply
		sideCtx := context.WithoutCancel(ctx)

		if store != nil {
			if rmErr := store.RemoveToken(sideCtx); rmErr != nil {
				log.Warn().
					Err(rmErr).
					Str("method", req.Method).
					Str("url", req.URL).
					Msg("Failed to clear token after 401")
			}
		}

		log.Warn().
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("Authentication rejected, redirecting to sign-in")

		if redirector != nil {
			redirector.RedirectToSignIn(sideCtx)
		}

		return Fail(err), true
	}
}

// NewRetryStage retries transient failures (no HTTP status, or 5xx) once per call.
// The gate is RetryCount == 0: after one retry a second transient failure is terminal.
// The delay is 2^RetryCount * baseDelay, computed after the increment.
func NewRetryStage(defaultMax int, baseDelay time.Duration) ResponseStage {
	return func(ctx context.Context, req *Request, _ *Response, err error) (Outcome, bool) {
		if err == nil || Classify(err) != ClassTransient {
			return Outcome{}, false
		}
		if req.RetryCount != 0 || ctx.Err() != nil {
			return Fail(err), true
		}

		maxRetries := ResolveMaxRetries(req.MaxRetries, defaultMax)
		if req.RetryCount >= maxRetries {
			return Fail(err), true
		}

		req.RetryCount++
		return RetryAfter(err, BackoffDelay(req.RetryCount, baseDelay), req.RetryCount), true
	}
}

// ResolveMaxRetries applies the request override: zero uses defaultMax, negative disables retries.
func ResolveMaxRetries(requested, defaultMax int) int {
	switch {
	case requested < 0:
		return 0
	case requested == 0:
		return max(defaultMax, 0)
	default:
		return requested
	}
}

// BackoffDelay returns 2^exponent * base without jitter.
func BackoffDelay(exponent int, base time.Duration) time.Duration {
	if exponent < 0 {
		exponent = 0
	}
	if exponent > maxBackoffExponent {
		exponent = maxBackoffExponent
	}
	return base * time.Duration(1<<exponent)
}
