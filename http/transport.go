package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/trace"
)

const (
	// DefaultTimeout bounds one dispatch when neither request nor client sets a timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxPayloadLogBytes caps body previews in debug logs
	DefaultMaxPayloadLogBytes = 1024

	// DefaultBaseURL is used when no base URL is configured
	DefaultBaseURL = "http://localhost:8000"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// TransportOptions configures NewTransport.
type TransportOptions struct {
	BaseURL        string
	Timeout        time.Duration
	DefaultHeaders map[string]string
	// HTTPClient overrides the underlying client. Its Timeout is ignored; deadlines come from the context.
	HTTPClient *nethttp.Client
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// RequestIDHeader names the header echoed into log entries (default: X-Request-ID)
	RequestIDHeader string
}

// httpTransport executes requests over net/http
type httpTransport struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     TransportOptions
	callCount  int64
}

// NewTransport creates the default net/http transport.
func NewTransport(log logger.Logger, opts TransportOptions) Transport {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPayloadLogBytes <= 0 {
		opts.MaxPayloadLogBytes = DefaultMaxPayloadLogBytes
	}
	if opts.RequestIDHeader == "" {
		opts.RequestIDHeader = trace.HeaderXRequestID
	}
	if opts.DefaultHeaders == nil {
		opts.DefaultHeaders = map[string]string{headerContentType: contentTypeJSON}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}

	return &httpTransport{
		httpClient: httpClient,
		logger:     log,
		config:     opts,
	}
}

// Execute performs one exchange. Non-2xx responses return both the response and an HTTP error.
func (t *httpTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.config.Timeout
	}
	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := t.buildRequest(dispatchCtx, req)
	if err != nil {
		return nil, err
	}

	callCount := atomic.AddInt64(&t.callCount, 1)
	logger.IncrementHTTPCounter(ctx)
	requestID := httpReq.Header.Get(t.config.RequestIDHeader)

	t.logRequest(httpReq, req.Body, requestID)

	start := time.Now()
	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		elapsed := time.Since(start)
		logger.AddHTTPElapsed(ctx, elapsed)
		t.logFailure(httpReq, err, elapsed, requestID)
		if ctx.Err() == nil && isTimeout(err) {
			return nil, NewTimeoutError("request timeout", timeout, err)
		}
		return nil, NewNetworkError("request execution failed", err)
	}

	resp, err := t.buildResponse(start, callCount, httpResp)
	logger.AddHTTPElapsed(ctx, time.Since(start))
	if err != nil {
		if ctx.Err() == nil && isTimeout(err) {
			return nil, NewTimeoutError("response body timeout", timeout, err)
		}
		return nil, err
	}

	t.logResponse(resp, requestID)

	if !IsSuccessStatus(resp.StatusCode) {
		return resp, NewHTTPError(
			fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
			resp.StatusCode,
			resp.Body,
			resp.Headers,
		)
	}
	return resp, nil
}

// buildRequest constructs an *http.Request with default and request headers applied.
func (t *httpTransport) buildRequest(ctx context.Context, req *Request) (*nethttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = nethttp.MethodGet
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, t.resolveURL(req.URL), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid request: %v", err), "url")
	}

	for key, value := range canonicalHeaders(t.config.DefaultHeaders) {
		httpReq.Header.Set(key, value)
	}
	for key, value := range canonicalHeaders(req.Headers) {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get(headerContentType) == "" && req.Body != nil {
		httpReq.Header.Set(headerContentType, contentTypeJSON)
	}

	return httpReq, nil
}

// resolveURL joins relative paths onto the base URL; absolute URLs pass through.
func (t *httpTransport) resolveURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || t.config.BaseURL == "" {
		return raw
	}
	return strings.TrimRight(t.config.BaseURL, "/") + "/" + strings.TrimLeft(raw, "/")
}

func (t *httpTransport) buildResponse(start time.Time, callCount int64, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
		},
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// logRequest logs the outgoing request; payloads go to debug when enabled
func (t *httpTransport) logRequest(req *nethttp.Request, body []byte, requestID string) {
	logEvent := t.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID)

	if len(req.Header) > 0 {
		logEvent.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		logEvent.Int("body_size", len(body))
	}
	logEvent.Msg("REST client request")

	if !t.config.LogPayloads {
		return
	}

	debugEvent := t.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Interface("headers", req.Header)
	t.attachPreview(debugEvent, body).Msg("REST client request")
}

// logResponse logs the incoming response; payloads go to debug when enabled
func (t *httpTransport) logResponse(resp *Response, requestID string) {
	logEvent := t.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", requestID)

	if len(resp.Body) > 0 {
		logEvent.Int("body_size", len(resp.Body))
	}
	logEvent.Msg("REST client response")

	if !t.config.LogPayloads {
		return
	}

	debugEvent := t.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Interface("headers", resp.Headers)
	t.attachPreview(debugEvent, resp.Body).Msg("REST client response")
}

func (t *httpTransport) logFailure(req *nethttp.Request, err error, elapsed time.Duration, requestID string) {
	t.logger.Debug().
		Err(err).
		Str("direction", "inbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID).
		Dur("elapsed", elapsed).
		Msg("REST client request failed")
}

func (t *httpTransport) attachPreview(event logger.LogEvent, body []byte) logger.LogEvent {
	if len(body) == 0 {
		return event
	}
	limit := t.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	truncated := len(body) > limit
	preview := body
	if truncated {
		preview = body[:limit]
	}
	return event.
		Int("body_size", len(body)).
		Str("body_truncated", fmt.Sprintf("%t", truncated)).
		Bytes("body_preview", preview)
}
