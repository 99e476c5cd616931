package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTokenStore is a testify mock of auth.Store.
//
// Example usage:
//
//	store := &mocks.MockTokenStore{}
//	store.ExpectGetToken("abc", true, nil)
//	store.On("RemoveToken", mock.Anything).Return(nil).Once()
type MockTokenStore struct {
	mock.Mock
}

// NewMockTokenStore creates a new mock token store
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{}
}

// GetToken implements auth.Store
func (m *MockTokenStore) GetToken(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

// SetToken implements auth.Store
func (m *MockTokenStore) SetToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// RemoveToken implements auth.Store
func (m *MockTokenStore) RemoveToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ExpectGetToken sets up any number of GetToken calls returning the given values.
func (m *MockTokenStore) ExpectGetToken(token string, ok bool, err error) *mock.Call {
	return m.On("GetToken", mock.Anything).Return(token, ok, err)
}

// ExpectRemoveToken sets up exactly one RemoveToken call.
func (m *MockTokenStore) ExpectRemoveToken(err error) *mock.Call {
	return m.On("RemoveToken", mock.Anything).Return(err).Once()
}
