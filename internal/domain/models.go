package domain

import (
	"time"

	"github.com/google/uuid"

	"ripsnc/internal/reconcile"
	"ripsnc/internal/rips"
)

// Session holds the claims documents an operator is working on. Sessions
// live in memory only; every operation replaces the stored documents.
type Session struct {
	ID        uuid.UUID          `json:"id"`
	NoteName  string             `json:"note_name"`
	Note      *rips.Document     `json:"note"`
	RefName   string             `json:"reference_name,omitempty"`
	Reference *rips.Document     `json:"reference,omitempty"`
	Summary   *reconcile.Summary `json:"summary,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SessionInfo is the lightweight view of a session returned by the API.
type SessionInfo struct {
	ID            uuid.UUID          `json:"id"`
	NoteName      string             `json:"note_name"`
	ReferenceName string             `json:"reference_name,omitempty"`
	NumFactura    string             `json:"num_factura"`
	NoteNumber    string             `json:"num_nota"`
	NotePatients  int                `json:"note_patients"`
	RefPatients   int                `json:"reference_patients"`
	HasReference  bool               `json:"has_reference"`
	LastReconcile *reconcile.Summary `json:"last_reconcile,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Info summarizes the session for listings.
func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		ID:            s.ID,
		NoteName:      s.NoteName,
		ReferenceName: s.RefName,
		HasReference:  s.Reference != nil,
		LastReconcile: s.Summary,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Note != nil {
		info.NumFactura = s.Note.NumFactura.String()
		info.NoteNumber = s.Note.NumNota.String()
		info.NotePatients = len(s.Note.Usuarios)
	}
	if s.Reference != nil {
		info.RefPatients = len(s.Reference.Usuarios)
	}
	return info
}

// SubmissionAudit is one recorded call to the invoicing provider.
type SubmissionAudit struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	SessionID    *uuid.UUID       `db:"session_id" json:"session_id,omitempty"`
	NoteID       string           `db:"note_id" json:"note_id"`
	Environment  Environment      `db:"environment" json:"environment"`
	Status       SubmissionStatus `db:"status" json:"status"`
	StatusCode   int              `db:"status_code" json:"status_code"`
	ResponseBody string           `db:"response_body" json:"response_body"`
	ErrorMessage string           `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// ArchivedExport describes an export copied to object storage.
type ArchivedExport struct {
	Key         string `json:"key"`
	Location    string `json:"location"`
	DownloadURL string `json:"download_url,omitempty"`
}
