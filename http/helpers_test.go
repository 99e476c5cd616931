package http

import (
	"context"
	"errors"
	"maps"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gaborage/taskclient/logger"
)

// Test constants to avoid string duplication
const (
	testToken              = "tok-123"
	testTasksPath          = "/tasks"
	testContentTypeHeader  = "Content-Type"
	testContentType        = "application/json"
	testRestClientRequest  = "REST client request"
	testRestClientResponse = "REST client response"
)

func newIPv4TestServer(t *testing.T, handler nethttp.Handler) *httptest.Server {
	t.Helper()
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
		return &httptest.Server{}
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &nethttp.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

type roundTripperFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripperFunc) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	return f(req)
}

// transportFunc adapts a function to the Transport interface
type transportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f transportFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// scriptedTransport replays a fixed sequence of results and records every dispatch
type scriptedTransport struct {
	mu      sync.Mutex
	results []scriptedResult
	seen    []*Request
}

type scriptedResult struct {
	status int
	body   string
	err    error
}

func (s *scriptedTransport) Execute(_ context.Context, req *Request) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = append(s.seen, req.Clone())
	idx := len(s.seen) - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	r := s.results[idx]
	if r.err != nil {
		return nil, r.err
	}
	resp := &Response{StatusCode: r.status, Body: []byte(r.body), Headers: nethttp.Header{}}
	if !IsSuccessStatus(r.status) {
		return resp, NewHTTPError("HTTP request failed", r.status, resp.Body, resp.Headers)
	}
	return resp, nil
}

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *scriptedTransport) request(i int) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[i]
}

// fakeTokenStore is an in-memory TokenStore that counts calls
type fakeTokenStore struct {
	mu        sync.Mutex
	token     string
	getErr    error
	removeErr error
	gets      int
	removes   int
}

func (f *fakeTokenStore) GetToken(_ context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.token, f.token != "", nil
}

func (f *fakeTokenStore) RemoveToken(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if f.removeErr != nil {
		return f.removeErr
	}
	f.token = ""
	return nil
}

// fakeRedirector counts redirects and records whether the token was already gone
type fakeRedirector struct {
	mu              sync.Mutex
	count           int
	store           *fakeTokenStore
	tokenAtRedirect []string
}

func (f *fakeRedirector) RedirectToSignIn(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.store != nil {
		f.store.mu.Lock()
		f.tokenAtRedirect = append(f.tokenAtRedirect, f.store.token)
		f.store.mu.Unlock()
	}
}

// recordingSleeper records requested delays without waiting
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return r.err
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:1: connect: connection refused")

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.mu.Lock()
	defer e.logger.mu.Unlock()
	e.logger.events = append(e.logger.events, loggedEvent{
		level:   e.level,
		fields:  copyMap(e.fields),
		message: msg,
	})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) {
	e.Msg(format)
}

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent {
	e.fields[key] = val
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent  { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent  { return l.event("warn") }
func (l *fakeLogger) Fatal() logger.LogEvent { return l.event("fatal") }

func (l *fakeLogger) WithContext(_ any) logger.Logger {
	return l
}

func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger {
	return l
}

func (l *fakeLogger) eventsByLevel(level string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var events []loggedEvent
	for _, event := range l.events {
		if event.level == level {
			events = append(events, event)
		}
	}
	return events
}

func (l *fakeLogger) eventsByMessage(msg string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var events []loggedEvent
	for _, event := range l.events {
		if event.message == msg {
			events = append(events, event)
		}
	}
	return events
}

// Helper function to copy maps for test isolation
func copyMap(original map[string]any) map[string]any {
	return maps.Clone(original)
}
