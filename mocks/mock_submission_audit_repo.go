package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ripsnc/internal/domain"
)

// MockSubmissionAuditRepo is a mock implementation of port.SubmissionAuditRepository.
type MockSubmissionAuditRepo struct {
	mock.Mock
}

func (m *MockSubmissionAuditRepo) Create(ctx context.Context, entry *domain.SubmissionAudit) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSubmissionAuditRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.SubmissionAudit, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SubmissionAudit), args.Int(1), args.Error(2)
}
