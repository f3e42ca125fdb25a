package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ripsnc/internal/creditnote"
	"ripsnc/internal/service"
)

// MockCreditNoteService is a mock implementation of service.CreditNoteService.
type MockCreditNoteService struct {
	mock.Mock
}

func (m *MockCreditNoteService) Build(ctx context.Context, sections creditnote.Sections) (*creditnote.Document, error) {
	args := m.Called(ctx, sections)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditnote.Document), args.Error(1)
}

func (m *MockCreditNoteService) Billable(ctx context.Context, sessionID uuid.UUID) ([]creditnote.ServiceLine, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]creditnote.ServiceLine), args.Error(1)
}

func (m *MockCreditNoteService) FromSelection(ctx context.Context, sessionID uuid.UUID, input service.SelectionInput) (*creditnote.Document, error) {
	args := m.Called(ctx, sessionID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creditnote.Document), args.Error(1)
}

func (m *MockCreditNoteService) AttachedDocument(ctx context.Context, input service.AttachedInput) ([]byte, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
