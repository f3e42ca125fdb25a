package port

import (
	"context"

	"ripsnc/internal/domain"
)

// SubmitResult is the provider's raw answer to a submission.
type SubmitResult struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"-"`
}

// Accepted reports a 2xx answer.
func (r *SubmitResult) Accepted() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Submitter sends a credit note payload to the invoicing provider.
type Submitter interface {
	Submit(ctx context.Context, env domain.Environment, payload any) (*SubmitResult, error)
}
