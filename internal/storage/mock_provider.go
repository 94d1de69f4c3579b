package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of the Provider interface for testing.
type MockProvider struct {
	mock.Mock
}

// Upload is the mock implementation of the Upload method.
func (m *MockProvider) Upload(ctx context.Context, obj Object) error {
	args := m.Called(ctx, obj)
	return args.Error(0) //nolint:wrapcheck
}
