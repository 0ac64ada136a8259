package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Binding is a mock implementation of platform.Binding for testing purposes.
type Binding struct {
	mock.Mock
}

// Tokenize is a mock implementation of the Tokenize method.
func (m *Binding) Tokenize(ctx context.Context, source string) (string, error) {
	args := m.Called(ctx, source)
	return args.String(0), args.Error(1)
}

// Parse is a mock implementation of the Parse method.
func (m *Binding) Parse(ctx context.Context, source string) (string, error) {
	args := m.Called(ctx, source)
	return args.String(0), args.Error(1)
}

// Eval is a mock implementation of the Eval method.
func (m *Binding) Eval(ctx context.Context, source string) (string, error) {
	args := m.Called(ctx, source)
	return args.String(0), args.Error(1)
}
