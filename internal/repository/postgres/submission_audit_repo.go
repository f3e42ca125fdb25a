package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ripsnc/internal/domain"
	"ripsnc/internal/port"
)

type submissionAuditRepo struct {
	db *sqlx.DB
}

// NewSubmissionAuditRepo creates a new PostgreSQL-backed SubmissionAuditRepository.
func NewSubmissionAuditRepo(db *sqlx.DB) port.SubmissionAuditRepository {
	return &submissionAuditRepo{db: db}
}

func (r *submissionAuditRepo) Create(ctx context.Context, entry *domain.SubmissionAudit) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO submission_audit_log
		   (id, session_id, note_id, environment, status, status_code, response_body, error_message, created_at)
		 VALUES
		   (:id, :session_id, :note_id, :environment, :status, :status_code, :response_body, :error_message, :created_at)`,
		entry)
	if err != nil {
		return fmt.Errorf("submissionAuditRepo.Create: %w", err)
	}
	return nil
}

func (r *submissionAuditRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.SubmissionAudit, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM submission_audit_log`); err != nil {
		return nil, 0, fmt.Errorf("submissionAuditRepo.ListRecent count: %w", err)
	}

	entries := []domain.SubmissionAudit{}
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, session_id, note_id, environment, status, status_code, response_body, error_message, created_at
		 FROM submission_audit_log
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("submissionAuditRepo.ListRecent: %w", err)
	}
	return entries, total, nil
}
