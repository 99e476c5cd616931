package mocks

import (
	"context"
	nethttp "net/http"

	"github.com/stretchr/testify/mock"

	taskhttp "github.com/gaborage/taskclient/http"
)

// MockTransport is a testify mock of http.Transport. Each Execute call is one dispatch.
//
// Example usage:
//
//	tr := &mocks.MockTransport{}
//	tr.ExpectStatus(nethttp.StatusServiceUnavailable, nil).Once()
//	tr.ExpectStatus(nethttp.StatusOK, []byte(`{"ok":true}`)).Once()
type MockTransport struct {
	mock.Mock
}

// Execute implements http.Transport
func (m *MockTransport) Execute(ctx context.Context, req *taskhttp.Request) (*taskhttp.Response, error) {
	args := m.Called(ctx, req)
	var resp *taskhttp.Response
	if r := args.Get(0); r != nil {
		resp = r.(*taskhttp.Response)
	}
	return resp, args.Error(1)
}

// ExpectStatus answers the next matching dispatch with status and body. Non-2xx statuses
// carry an HTTP error like the real transport.
func (m *MockTransport) ExpectStatus(status int, body []byte) *mock.Call {
	resp := &taskhttp.Response{StatusCode: status, Body: body, Headers: nethttp.Header{}}
	var err error
	if !taskhttp.IsSuccessStatus(status) {
		err = taskhttp.NewHTTPError(nethttp.StatusText(status), status, body, resp.Headers)
	}
	return m.On("Execute", mock.Anything, mock.Anything).Return(resp, err)
}

// ExpectNetworkError fails the next matching dispatch without a response.
func (m *MockTransport) ExpectNetworkError(cause error) *mock.Call {
	return m.On("Execute", mock.Anything, mock.Anything).Return(nil, taskhttp.NewNetworkError("request failed", cause))
}
