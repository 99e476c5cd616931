package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRedirector is a testify mock of the sign-in redirector.
type MockRedirector struct {
	mock.Mock
}

// RedirectToSignIn implements http.Redirector
func (m *MockRedirector) RedirectToSignIn(ctx context.Context) {
	m.Called(ctx)
}

// ExpectRedirect sets up exactly one redirect.
func (m *MockRedirector) ExpectRedirect() *mock.Call {
	return m.On("RedirectToSignIn", mock.Anything).Return().Once()
}
