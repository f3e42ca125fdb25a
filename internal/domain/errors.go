package domain

import "errors"

var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidNumericValue  = errors.New("invalid numeric value")
	ErrTemplateFormat       = errors.New("template format error")

	ErrSessionNotFound     = errors.New("session not found")
	ErrNoReference         = errors.New("session has no reference document")
	ErrInvalidDocument     = errors.New("document is not a valid claims document")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrPatientNotFound     = errors.New("patient index out of range")
	ErrSubmissionFailed    = errors.New("credit note submission failed")
	ErrUnknownEnvironment  = errors.New("unknown provider environment")
	ErrArchiveDisabled     = errors.New("export archive is disabled")
)
