package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ripsnc/internal/creditnote"
	"ripsnc/internal/port"
	"ripsnc/internal/xmlbridge"
)

// SelectionInput is the DTO for deriving a credit note from session lines.
type SelectionInput struct {
	Lines  []creditnote.ServiceLine   `json:"lineas"`
	Params creditnote.SelectionParams `json:"parametros"`
}

// AttachedInput is the DTO for rewriting an AttachedDocument template. When
// Params.Amounts is empty the included lines of the session are used.
type AttachedInput struct {
	SessionID *uuid.UUID
	Template  []byte
	Lines     []creditnote.ServiceLine
	Params    xmlbridge.AttachedParams
}

// CreditNoteService defines the credit note payload contract.
type CreditNoteService interface {
	Build(ctx context.Context, sections creditnote.Sections) (*creditnote.Document, error)
	Billable(ctx context.Context, sessionID uuid.UUID) ([]creditnote.ServiceLine, error)
	FromSelection(ctx context.Context, sessionID uuid.UUID, input SelectionInput) (*creditnote.Document, error)
	AttachedDocument(ctx context.Context, input AttachedInput) ([]byte, error)
}

type creditNoteService struct {
	store port.SessionStore
	log   *zap.Logger
}

// NewCreditNoteService creates a new CreditNoteService implementation.
func NewCreditNoteService(store port.SessionStore, log *zap.Logger) CreditNoteService {
	return &creditNoteService{store: store, log: log}
}

func (s *creditNoteService) Build(_ context.Context, sections creditnote.Sections) (*creditnote.Document, error) {
	doc, err := creditnote.Build(sections)
	if err != nil {
		s.log.Debug("creditNoteService.Build: payload rejected", zap.Error(err))
		return nil, err
	}
	return doc, nil
}

func (s *creditNoteService) Billable(ctx context.Context, sessionID uuid.UUID) ([]creditnote.ServiceLine, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// Billable services come from the invoice claims when the session has it.
	src := sess.Reference
	if src == nil {
		src = sess.Note
	}
	return creditnote.ExtractBillable(src), nil
}

func (s *creditNoteService) FromSelection(ctx context.Context, sessionID uuid.UUID, input SelectionInput) (*creditnote.Document, error) {
	lines := input.Lines
	if len(lines) == 0 {
		var err error
		if lines, err = s.Billable(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	sections, err := creditnote.SectionsFromSelection(lines, input.Params)
	if err != nil {
		return nil, err
	}
	doc, err := creditnote.Build(sections)
	if err != nil {
		return nil, err
	}
	s.log.Info("creditNoteService.FromSelection: payload built",
		zap.String("session_id", sessionID.String()),
		zap.Int("lines", len(creditnote.Included(lines))))
	return doc, nil
}

func (s *creditNoteService) AttachedDocument(ctx context.Context, input AttachedInput) ([]byte, error) {
	params := input.Params
	if len(params.Amounts) == 0 {
		lines := input.Lines
		if len(lines) == 0 && input.SessionID != nil {
			var err error
			if lines, err = s.Billable(ctx, *input.SessionID); err != nil {
				return nil, err
			}
		}
		params.Amounts = creditnote.Amounts(lines)
	}
	out, err := xmlbridge.BuildAttachedDocument(input.Template, params)
	if err != nil {
		return nil, fmt.Errorf("creditNoteService.AttachedDocument: %w", err)
	}
	return out, nil
}
