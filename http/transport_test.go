package http

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/taskclient/logger"
)

func TestTransportExecute(t *testing.T) {
	server := newIPv4TestServer(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.URL.Path {
		case "/tasks":
			assert.Equal(t, testContentType, r.Header.Get(testContentTypeHeader))
			assert.Equal(t, "abc", r.Header.Get("X-Request-ID"))
			_, _ = w.Write([]byte(`[]`))
		case "/tasks/404":
			w.WriteHeader(nethttp.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Task not found"}`))
		default:
			w.WriteHeader(nethttp.StatusTeapot)
		}
	}))

	tr := NewTransport(logger.Nop(), TransportOptions{BaseURL: server.URL + "/"})

	t.Run("relative path joined to base", func(t *testing.T) {
		resp, err := tr.Execute(context.Background(), &Request{URL: "tasks", Headers: map[string]string{"X-Request-ID": "abc"}})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, `[]`, string(resp.Body))
		assert.Positive(t, resp.Stats.CallCount)
	})

	t.Run("non-2xx returns response and error", func(t *testing.T) {
		resp, err := tr.Execute(context.Background(), &Request{URL: "/tasks/404"})
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, IsHTTPStatusError(err, nethttp.StatusNotFound))
		body, _, ok := ErrorBody(err)
		require.True(t, ok)
		assert.JSONEq(t, `{"detail":"Task not found"}`, string(body))
	})

	t.Run("absolute url bypasses base", func(t *testing.T) {
		resp, err := tr.Execute(context.Background(), &Request{URL: server.URL + "/tasks", Headers: map[string]string{"X-Request-ID": "abc"}})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestTransportErrors(t *testing.T) {
	t.Run("network failure", func(t *testing.T) {
		client := &nethttp.Client{Transport: roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			return nil, errConnRefused
		})}
		tr := NewTransport(logger.Nop(), TransportOptions{BaseURL: "http://127.0.0.1:1", HTTPClient: client})

		_, err := tr.Execute(context.Background(), &Request{URL: testTasksPath})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, NetworkError))
		assert.Equal(t, ClassTransient, Classify(err))
	})

	t.Run("dispatch timeout", func(t *testing.T) {
		client := &nethttp.Client{Transport: roundTripperFunc(func(r *nethttp.Request) (*nethttp.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		})}
		tr := NewTransport(logger.Nop(), TransportOptions{HTTPClient: client})

		_, err := tr.Execute(context.Background(), &Request{URL: "http://example.test/tasks", Timeout: 10 * time.Millisecond})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, TimeoutError))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		client := &nethttp.Client{Transport: roundTripperFunc(func(r *nethttp.Request) (*nethttp.Response, error) {
			<-r.Context().Done()
			return nil, r.Context().Err()
		})}
		tr := NewTransport(logger.Nop(), TransportOptions{HTTPClient: client})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := tr.Execute(ctx, &Request{URL: "http://example.test/tasks"})
		require.Error(t, err)
		assert.True(t, IsErrorType(err, NetworkError))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid url", func(t *testing.T) {
		tr := NewTransport(logger.Nop(), TransportOptions{})
		_, err := tr.Execute(context.Background(), &Request{URL: "http://[::1"})
		assert.True(t, IsErrorType(err, ValidationError))
	})

	t.Run("body read failure", func(t *testing.T) {
		client := &nethttp.Client{Transport: roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			return &nethttp.Response{
				StatusCode: 200,
				Header:     nethttp.Header{},
				Body:       io.NopCloser(&failingReader{}),
			}, nil
		})}
		tr := NewTransport(logger.Nop(), TransportOptions{HTTPClient: client})
		_, err := tr.Execute(context.Background(), &Request{URL: "http://example.test/tasks"})
		assert.True(t, IsErrorType(err, NetworkError))
	})
}

func TestRequestHeaderCaseVariants(t *testing.T) {
	t.Run("set header replaces variants", func(t *testing.T) {
		req := &Request{Headers: map[string]string{"authorization": "Bearer stale", "AUTHORIZATION": "Bearer older"}}
		req.SetHeader("Authorization", "Bearer fresh")
		assert.Equal(t, map[string]string{"Authorization": "Bearer fresh"}, req.Headers)
		assert.Equal(t, "Bearer fresh", req.Header("authorization"))
	})

	t.Run("canonical spelling wins on the wire", func(t *testing.T) {
		tr, ok := NewTransport(logger.Nop(), TransportOptions{BaseURL: "http://api.test"}).(*httpTransport)
		require.True(t, ok)

		for range 20 {
			req := &Request{URL: "/tasks", Headers: map[string]string{
				"authorization": "Bearer lower",
				"Authorization": "Bearer canonical",
				"x-trace":       "lower",
				"X-TRACE":       "upper",
			}}
			httpReq, err := tr.buildRequest(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, []string{"Bearer canonical"}, httpReq.Header.Values("Authorization"))
			assert.Equal(t, []string{"upper"}, httpReq.Header.Values("X-Trace"))
			assert.Equal(t, "Bearer canonical", req.Header("AUTHORIZATION"))
		}
	})
}

type failingReader struct{}

func (*failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestTransportLogging(t *testing.T) {
	okClient := func(body string) *nethttp.Client {
		return &nethttp.Client{Transport: roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			return &nethttp.Response{
				StatusCode: 200,
				Header:     nethttp.Header{testContentTypeHeader: []string{testContentType}},
				Body:       io.NopCloser(strings.NewReader(body)),
			}, nil
		})}
	}

	t.Run("info summary without payloads", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		tr := NewTransport(fakeLog, TransportOptions{HTTPClient: okClient(`{"id":1}`)})

		body := []byte(`{"title":"write tests"}`)
		_, err := tr.Execute(context.Background(), &Request{
			Method:  nethttp.MethodPost,
			URL:     "https://api.example.com/tasks",
			Body:    body,
			Headers: map[string]string{"X-Request-ID": "req-1"},
		})
		require.NoError(t, err)

		infoEvents := fakeLog.eventsByLevel("info")
		require.Len(t, infoEvents, 2)

		reqEvent := infoEvents[0]
		assert.Equal(t, testRestClientRequest, reqEvent.message)
		assert.Equal(t, "outbound", reqEvent.fields["direction"])
		assert.Equal(t, nethttp.MethodPost, reqEvent.fields["method"])
		assert.Equal(t, "https://api.example.com/tasks", reqEvent.fields["url"])
		assert.Equal(t, "req-1", reqEvent.fields["request_id"])
		assert.Equal(t, 2, reqEvent.fields["header_count"])
		assert.Equal(t, len(body), reqEvent.fields["body_size"])

		respEvent := infoEvents[1]
		assert.Equal(t, testRestClientResponse, respEvent.message)
		assert.Equal(t, "inbound", respEvent.fields["direction"])
		assert.Equal(t, 200, respEvent.fields["status"])
		assert.Equal(t, len(`{"id":1}`), respEvent.fields["body_size"])
		assert.Contains(t, respEvent.fields, "elapsed")
		assert.Contains(t, respEvent.fields, "call_count")

		assert.Empty(t, fakeLog.eventsByLevel("debug"))
	})

	t.Run("payload previews truncated", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		tr := NewTransport(fakeLog, TransportOptions{
			HTTPClient:         okClient(`{"tasks":[]}`),
			LogPayloads:        true,
			MaxPayloadLogBytes: 4,
		})

		_, err := tr.Execute(context.Background(), &Request{
			Method: nethttp.MethodPost,
			URL:    "https://api.example.com/tasks",
			Body:   []byte(`{"title":"x"}`),
		})
		require.NoError(t, err)

		debugEvents := fakeLog.eventsByLevel("debug")
		require.Len(t, debugEvents, 2)

		assert.Equal(t, testRestClientRequest, debugEvents[0].message)
		assert.Equal(t, []byte(`{"ti`), debugEvents[0].fields["body_preview"])
		assert.Equal(t, "true", debugEvents[0].fields["body_truncated"])
		assert.Contains(t, debugEvents[0].fields, "headers")

		assert.Equal(t, testRestClientResponse, debugEvents[1].message)
		assert.Equal(t, []byte(`{"ta`), debugEvents[1].fields["body_preview"])
	})

	t.Run("small payload not truncated", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		tr := NewTransport(fakeLog, TransportOptions{HTTPClient: okClient(`[]`), LogPayloads: true})

		_, err := tr.Execute(context.Background(), &Request{URL: "https://api.example.com/tasks"})
		require.NoError(t, err)

		debugEvents := fakeLog.eventsByLevel("debug")
		require.Len(t, debugEvents, 2)
		assert.NotContains(t, debugEvents[0].fields, "body_preview", "empty request body")
		assert.Equal(t, "false", debugEvents[1].fields["body_truncated"])
	})

	t.Run("failures logged at debug", func(t *testing.T) {
		fakeLog := &fakeLogger{}
		client := &nethttp.Client{Transport: roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			return nil, errConnRefused
		})}
		tr := NewTransport(fakeLog, TransportOptions{HTTPClient: client})

		_, err := tr.Execute(context.Background(), &Request{URL: "https://api.example.com/tasks"})
		require.Error(t, err)
		require.Len(t, fakeLog.eventsByMessage("REST client request failed"), 1)
	})
}
