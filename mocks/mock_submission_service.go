package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ripsnc/internal/domain"
	"ripsnc/internal/service"
)

// MockSubmissionService is a mock implementation of service.SubmissionService.
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Submit(ctx context.Context, input service.SubmitInput) (*service.SubmitOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitOutput), args.Error(1)
}

func (m *MockSubmissionService) ListAudit(ctx context.Context, offset, limit int) ([]domain.SubmissionAudit, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SubmissionAudit), args.Int(1), args.Error(2)
}
