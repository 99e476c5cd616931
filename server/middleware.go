package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/trace"
)

// setupMiddlewares registers, in order: request ID, tracing, trace context,
// access log, recovery, timing, fault injection and bearer auth.
func (s *Server) setupMiddlewares() {
	e := s.echo

	e.Use(middleware.RequestID())

	var otelOpts []otelecho.Option
	if s.opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelecho.WithTracerProvider(s.opts.TracerProvider))
	}
	e.Use(otelecho.Middleware(s.opts.ServiceName, otelOpts...))

	e.Use(TraceContext())
	e.Use(AccessLog(s.logger, SlowRequestThreshold))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Bytes("stack", stack).
				Msg("Panic recovered")
			return err
		},
	}))

	e.Use(Timing())
	e.Use(s.faults.middleware())
	e.Use(BearerAuth(s.tokenFunc))
}

// TraceContext stores the request ID and inbound W3C headers in the request
// context so handlers and their logs can correlate with the caller.
func TraceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			if id := requestID(c); id != "" {
				ctx = trace.WithTraceID(ctx, id)
			}
			if tp := req.Header.Get(trace.HeaderTraceParent); tp != "" {
				ctx = trace.WithTraceParent(ctx, tp)
			}
			if ts := req.Header.Get(trace.HeaderTraceState); ts != "" {
				ctx = trace.WithTraceState(ctx, ts)
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// Timing adds X-Response-Time to every response.
func Timing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Response().Before(func() {
				c.Response().Header().Set(HeaderXResponseTime, time.Since(start).String())
			})
			return next(c)
		}
	}
}

// BearerAuth rejects requests whose Authorization header does not carry the
// token returned by expected. An empty expected token disables the check.
func BearerAuth(expected func() string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			want := expected()
			if want == "" || c.Path() == HealthPath {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return NewUnauthorizedError("Not authenticated")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(want)) != 1 {
				return NewUnauthorizedError("Could not validate credentials")
			}
			return next(c)
		}
	}
}

// faultInjector fails the next n API requests with a fixed status.
// Status 0 drops the connection without a response.
type faultInjector struct {
	mu        sync.Mutex
	remaining int
	status    int
	injected  int
}

func (f *faultInjector) arm(n, status int) {
	f.mu.Lock()
	f.remaining = n
	f.status = status
	f.mu.Unlock()
}

func (f *faultInjector) take() (status int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining <= 0 {
		return 0, false
	}
	f.remaining--
	f.injected++
	return f.status, true
}

func (f *faultInjector) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.injected
}

func (f *faultInjector) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == HealthPath {
				return next(c)
			}
			status, ok := f.take()
			if !ok {
				return next(c)
			}
			if status == 0 {
				return dropConnection(c)
			}
			return NewAPIError(status, "injected failure")
		}
	}
}

func dropConnection(c echo.Context) error {
	conn, _, err := http.NewResponseController(c.Response().Writer).Hijack()
	if err != nil {
		return NewAPIError(http.StatusBadGateway, "injected failure")
	}
	c.Response().Status = 0
	return conn.Close()
}

func requestID(c echo.Context) string {
	if resp := c.Response(); resp != nil {
		if id := resp.Header().Get(echo.HeaderXRequestID); id != "" {
			return id
		}
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

// AccessLog emits one summary per request with OpenTelemetry HTTP attribute names.
// 5xx logs at error, 4xx at warn, everything else at info.
func AccessLog(log logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == HealthPath {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// render now so the logged status is the one the client sees
				c.Error(err)
			}
			latency := time.Since(start)
			status := c.Response().Status

			level, resultCode := determineSeverity(status, latency, slow)
			event := levelEvent(log.WithContext(c.Request().Context()), level)
			if err != nil {
				event = event.Err(err)
			}

			method := c.Request().Method
			path := c.Request().URL.Path
			event.
				Str("request_id", requestID(c)).
				Str("http.request.method", method).
				Int("http.response.status_code", status).
				Int64("http.server.request.duration", latency.Nanoseconds()).
				Str("url.path", path).
				Str("http.route", c.Path()).
				Str("user_agent.original", c.Request().UserAgent()).
				Str("result_code", resultCode).
				Msgf("%s %s completed in %s with status %d", method, path, latency, status)

			return nil
		}
	}
}

func determineSeverity(status int, latency, threshold time.Duration) (level, resultCode string) {
	switch {
	case status >= http.StatusInternalServerError:
		return "error", "ERROR"
	case status >= http.StatusBadRequest:
		return "warn", "WARN"
	case threshold > 0 && latency > threshold:
		return "info", "WARN"
	default:
		return "info", "INFO"
	}
}

func levelEvent(log logger.Logger, level string) logger.LogEvent {
	switch level {
	case "error":
		return log.Error()
	case "warn":
		return log.Warn()
	default:
		return log.Info()
	}
}
