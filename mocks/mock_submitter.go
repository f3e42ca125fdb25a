package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ripsnc/internal/domain"
	"ripsnc/internal/port"
)

// MockSubmitter is a mock implementation of port.Submitter.
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, env domain.Environment, payload any) (*port.SubmitResult, error) {
	args := m.Called(ctx, env, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.SubmitResult), args.Error(1)
}
