package http

import (
	"context"
	"maps"
	nethttp "net/http"
	"net/textproto"
	"slices"
	"strings"
	"time"
)

// Client issues calls against the task API through the stage pipeline.
// Successful calls return the response body only.
type Client interface {
	Get(ctx context.Context, req *Request) ([]byte, error)
	Post(ctx context.Context, req *Request) ([]byte, error)
	Put(ctx context.Context, req *Request) ([]byte, error)
	Patch(ctx context.Context, req *Request) ([]byte, error)
	Delete(ctx context.Context, req *Request) ([]byte, error)
	Do(ctx context.Context, method string, req *Request) ([]byte, error)
	// DoWithBackoff wraps Do in Retry, dispatching a fresh copy of req per attempt.
	// A nil b.ShouldRetry retries transient failures only.
	DoWithBackoff(ctx context.Context, method string, req *Request, b Backoff) ([]byte, error)
}

// Request describes one logical call. It is owned by the call: stages mutate
// Headers and RetryCount in place across dispatches.
type Request struct {
	Method string
	// URL is either absolute or a path joined onto the transport base URL.
	URL     string
	Headers map[string]string
	Body    []byte
	// Timeout bounds each dispatch. Zero uses the client default.
	Timeout time.Duration
	// RetryCount is the number of retries already performed for this call.
	RetryCount int
	// MaxRetries overrides the client retry budget. Zero uses the default; negative disables retries.
	MaxRetries int
}

// SetHeader sets a header using its canonical name, replacing any case variant.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	for k := range r.Headers {
		if strings.EqualFold(k, key) {
			delete(r.Headers, k)
		}
	}
	r.Headers[textproto.CanonicalMIMEHeaderKey(key)] = value
}

// Header looks a header up case-insensitively, resolving variants the way
// they are sent on the wire.
func (r *Request) Header(key string) string {
	return canonicalHeaders(r.Headers)[textproto.CanonicalMIMEHeaderKey(key)]
}

// canonicalHeaders folds case variants onto canonical names. A key already in
// canonical form wins; otherwise the lexically first variant does.
func canonicalHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for _, key := range slices.Sorted(maps.Keys(headers)) {
		canonical := textproto.CanonicalMIMEHeaderKey(key)
		if _, seen := out[canonical]; seen && key != canonical {
			continue
		}
		out[canonical] = headers[key]
	}
	return out
}

// Clone returns a deep copy with the retry gate reset.
func (r *Request) Clone() *Request {
	c := *r
	c.Headers = maps.Clone(r.Headers)
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	c.RetryCount = 0
	return &c
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// Transport performs exactly one HTTP exchange. A non-2xx status yields both
// the response and an HTTP error.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// TokenStore is the slice of token persistence the client needs.
type TokenStore interface {
	GetToken(ctx context.Context) (token string, ok bool, err error)
	RemoveToken(ctx context.Context) error
}

// Redirector sends the user to re-authenticate.
type Redirector interface {
	RedirectToSignIn(ctx context.Context)
}

// RequestStage mutates the descriptor before each dispatch.
// An error aborts the call without retry.
type RequestStage func(ctx context.Context, req *Request) error

// ResponseStage inspects the result of one dispatch. It returns handled=false
// to defer to the next stage.
type ResponseStage func(ctx context.Context, req *Request, resp *Response, err error) (outcome Outcome, handled bool)

// OutcomeKind is the classification of one dispatch.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTerminal
	OutcomeRetry
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Outcome is the decision for one dispatch.
type Outcome struct {
	Kind OutcomeKind
	Body []byte
	// Err is the caller-visible error for Terminal, and the cause for Retry.
	Err error
	// Delay and Attempt are set for Retry.
	Delay   time.Duration
	Attempt int
}

// Succeed returns a Success outcome.
func Succeed(body []byte) Outcome {
	return Outcome{Kind: OutcomeSuccess, Body: body}
}

// Fail returns a Terminal outcome carrying err unchanged.
func Fail(err error) Outcome {
	return Outcome{Kind: OutcomeTerminal, Err: err}
}

// RetryAfter returns a Retry outcome.
func RetryAfter(cause error, delay time.Duration, attempt int) Outcome {
	return Outcome{Kind: OutcomeRetry, Err: cause, Delay: delay, Attempt: attempt}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error
