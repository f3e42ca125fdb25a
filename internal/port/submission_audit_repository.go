package port

import (
	"context"

	"ripsnc/internal/domain"
)

// SubmissionAuditRepository defines the contract for submission audit log persistence.
type SubmissionAuditRepository interface {
	Create(ctx context.Context, entry *domain.SubmissionAudit) error
	ListRecent(ctx context.Context, offset, limit int) ([]domain.SubmissionAudit, int, error)
}
