package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ripsnc/internal/domain"
	"ripsnc/internal/reconcile"
	"ripsnc/internal/rips"
	"ripsnc/internal/service"
)

// MockSessionService is a mock implementation of service.SessionService.
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, input service.CreateSessionInput) (*domain.Session, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) List(ctx context.Context) ([]domain.SessionInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SessionInfo), args.Error(1)
}

func (m *MockSessionService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionService) SetReference(ctx context.Context, id uuid.UUID, name string, data []byte) (*domain.Session, error) {
	args := m.Called(ctx, id, name, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) Normalize(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) Reconcile(ctx context.Context, id uuid.UUID, forceSign int) (*reconcile.Summary, error) {
	args := m.Called(ctx, id, forceSign)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Summary), args.Error(1)
}

func (m *MockSessionService) UpdatePatient(ctx context.Context, id uuid.UUID, idx int, fields map[string]any) (*rips.Patient, error) {
	args := m.Called(ctx, id, idx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rips.Patient), args.Error(1)
}

func (m *MockSessionService) ExportTemplate(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*service.ExportOutput, error) {
	args := m.Called(ctx, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}

func (m *MockSessionService) ApplyTemplate(ctx context.Context, id uuid.UUID, format domain.ExportFormat, r io.Reader) (*service.ApplyTemplateResult, error) {
	args := m.Called(ctx, id, format, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ApplyTemplateResult), args.Error(1)
}

func (m *MockSessionService) Export(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*service.ExportOutput, error) {
	args := m.Called(ctx, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}

func (m *MockSessionService) EmbedXML(ctx context.Context, id uuid.UUID, template []byte, family string) (*service.ExportOutput, error) {
	args := m.Called(ctx, id, template, family)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}

func (m *MockSessionService) Archive(ctx context.Context, id uuid.UUID, format domain.ExportFormat) (*domain.ArchivedExport, error) {
	args := m.Called(ctx, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchivedExport), args.Error(1)
}

func (m *MockSessionService) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	args := m.Called(ctx, ttl)
	return args.Int(0), args.Error(1)
}
