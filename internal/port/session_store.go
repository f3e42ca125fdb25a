package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ripsnc/internal/domain"
)

// SessionStore keeps working sessions. Implementations return copies so a
// caller never shares documents with another request.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.SessionInfo, error)
	// Sweep drops sessions not updated since before and returns how many.
	Sweep(ctx context.Context, before time.Time) (int, error)
}
