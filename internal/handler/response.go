package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ripsnc/internal/domain"
	"ripsnc/internal/middleware"
	"ripsnc/internal/validator"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// RespondFile sends data as a download.
func RespondFile(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// MapDomainError translates domain errors to HTTP status codes and error
// codes. Validation families surface the error text, which names the field.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrMissingRequiredField):
		return http.StatusBadRequest, "MISSING_REQUIRED_FIELD", err.Error()
	case errors.Is(err, domain.ErrInvalidNumericValue):
		return http.StatusUnprocessableEntity, "INVALID_NUMERIC_VALUE", err.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrTemplateFormat):
		return http.StatusUnprocessableEntity, "TEMPLATE_FORMAT_ERROR", err.Error()
	case errors.Is(err, domain.ErrInvalidDocument):
		return http.StatusBadRequest, "INVALID_DOCUMENT", err.Error()
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: json, xml, xlsx, csv"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found"
	case errors.Is(err, domain.ErrNoReference):
		return http.StatusConflict, "NO_REFERENCE", "session has no reference claims document"
	case errors.Is(err, domain.ErrPatientNotFound):
		return http.StatusNotFound, "PATIENT_NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrUnknownEnvironment):
		return http.StatusBadRequest, "UNKNOWN_ENVIRONMENT", "environment must be one of: pruebas, habilitacion, produccion"
	case errors.Is(err, domain.ErrArchiveDisabled):
		return http.StatusNotImplemented, "ARCHIVE_DISABLED", "export archive is not configured"
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway, "SUBMISSION_FAILED", "could not reach the invoicing provider"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, log *zap.Logger, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		log.Error("internal error", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
	}
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg, Field: validator.FieldOf(err)},
	})
}
