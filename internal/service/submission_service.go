package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ripsnc/internal/creditnote"
	"ripsnc/internal/domain"
	"ripsnc/internal/port"
)

// SubmitInput is the DTO for sending a credit note to the provider. The
// payload is validated and normalized again before it is sent.
type SubmitInput struct {
	SessionID   *uuid.UUID           `json:"session_id,omitempty"`
	Environment domain.Environment   `json:"environment"`
	Payload     *creditnote.Document `json:"payload"`
}

// SubmitOutput is the provider's answer as returned to callers.
type SubmitOutput struct {
	AuditID    uuid.UUID               `json:"audit_id"`
	URL        string                  `json:"url"`
	Status     domain.SubmissionStatus `json:"status"`
	StatusCode int                     `json:"status_code"`
	Response   string                  `json:"response"`
}

// SubmissionService defines the provider submission contract.
type SubmissionService interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitOutput, error)
	ListAudit(ctx context.Context, offset, limit int) ([]domain.SubmissionAudit, int, error)
}

type submissionService struct {
	submitter  port.Submitter
	auditRepo  port.SubmissionAuditRepository
	defaultEnv domain.Environment
	log        *zap.Logger
}

// NewSubmissionService creates a new SubmissionService implementation.
// auditRepo may be nil when the audit log is disabled.
func NewSubmissionService(
	submitter port.Submitter,
	auditRepo port.SubmissionAuditRepository,
	defaultEnv domain.Environment,
	log *zap.Logger,
) SubmissionService {
	return &submissionService{
		submitter:  submitter,
		auditRepo:  auditRepo,
		defaultEnv: defaultEnv,
		log:        log,
	}
}

func (s *submissionService) Submit(ctx context.Context, input SubmitInput) (*SubmitOutput, error) {
	if input.Payload == nil {
		return nil, fmt.Errorf("%w: payload es requerido", domain.ErrMissingRequiredField)
	}
	env := input.Environment
	if env == "" {
		env = s.defaultEnv
	}
	if !env.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEnvironment, env)
	}
	payload, err := creditnote.Rebuild(input.Payload)
	if err != nil {
		s.log.Warn("submissionService.Submit: payload rejected",
			zap.String("note_id", noteID(input.Payload)), zap.Error(err))
		return nil, err
	}

	entry := &domain.SubmissionAudit{
		ID:          uuid.New(),
		SessionID:   input.SessionID,
		NoteID:      noteID(payload),
		Environment: env,
		CreatedAt:   time.Now().UTC(),
	}

	res, err := s.submitter.Submit(ctx, env, payload)
	if err != nil {
		entry.Status = domain.SubmissionStatusFailed
		entry.ErrorMessage = err.Error()
		s.audit(ctx, entry)
		s.log.Error("submissionService.Submit: provider call failed",
			zap.String("note_id", entry.NoteID), zap.String("environment", string(env)), zap.Error(err))
		return nil, err
	}

	entry.StatusCode = res.StatusCode
	entry.ResponseBody = string(res.Body)
	entry.Status = domain.SubmissionStatusAccepted
	if !res.Accepted() {
		entry.Status = domain.SubmissionStatusRejected
	}
	s.audit(ctx, entry)
	s.log.Info("submissionService.Submit: provider answered",
		zap.String("note_id", entry.NoteID),
		zap.String("environment", string(env)),
		zap.Int("status_code", res.StatusCode))

	return &SubmitOutput{
		AuditID:    entry.ID,
		URL:        res.URL,
		Status:     entry.Status,
		StatusCode: res.StatusCode,
		Response:   entry.ResponseBody,
	}, nil
}

func (s *submissionService) ListAudit(ctx context.Context, offset, limit int) ([]domain.SubmissionAudit, int, error) {
	if s.auditRepo == nil {
		return []domain.SubmissionAudit{}, 0, nil
	}
	return s.auditRepo.ListRecent(ctx, offset, limit)
}

// audit records a submission attempt. Failures are logged but never block the submission.
func (s *submissionService) audit(ctx context.Context, entry *domain.SubmissionAudit) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Warn("submissionService.audit: failed to record submission",
			zap.String("audit_id", entry.ID.String()), zap.Error(err))
	}
}

func noteID(doc *creditnote.Document) string {
	if n := doc.Note(); n != nil {
		return n.Encabezado.IDNotaCredito
	}
	return ""
}
