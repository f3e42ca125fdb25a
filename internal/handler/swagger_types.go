package handler

import (
	"github.com/google/uuid"

	"ripsnc/internal/creditnote"
	"ripsnc/internal/domain"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// ReconcileRequest represents the reconcile request body.
type ReconcileRequest struct {
	ForceSign int `json:"force_sign" example:"-1"`
}

// UpdatePatientRequest represents the demographic edit body: field name to value.
type UpdatePatientRequest map[string]any

// SubmitRequest represents the provider submission request body.
type SubmitRequest struct {
	Environment domain.Environment   `json:"environment" example:"pruebas"`
	SessionID   *uuid.UUID           `json:"session_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	Payload     *creditnote.Document `json:"payload"`
}

// --- Response Types ---

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty" example:"database not reachable"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message" example:"operation completed successfully"`
}

// TemplateInfo describes the payload of an envelope template.
type TemplateInfo struct {
	Family   string `json:"family" example:"creditnote"`
	Embedded string `json:"embedded"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
