// Package validator holds the format assertions that gate credit note
// payload construction. Every failure is a *FieldError naming the offending
// field path, worded the way the provider documents its rules.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ripsnc/internal/domain"
)

var (
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeHMSPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	timeHMPattern  = regexp.MustCompile(`^\d{2}:\d{2}$`)
	decimalPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// FieldError is a failed assertion on a single field.
type FieldError struct {
	FieldPath string
	Value     string
	Message   string
	kind      error
}

func (e *FieldError) Error() string { return e.Message }

// Unwrap exposes the error family (domain.ErrValidation or
// domain.ErrMissingRequiredField).
func (e *FieldError) Unwrap() error { return e.kind }

func newFieldError(kind error, field, value, format string, args ...any) *FieldError {
	return &FieldError{
		FieldPath: field,
		Value:     value,
		Message:   fmt.Sprintf(format, args...),
		kind:      kind,
	}
}

// Missing reports field as required.
func Missing(field string) *FieldError {
	return newFieldError(domain.ErrMissingRequiredField, field, "", "%s es requerido", field)
}

// MissingMessage reports a missing group of fields with a custom message.
func MissingMessage(field, msg string) *FieldError {
	return newFieldError(domain.ErrMissingRequiredField, field, "", "%s", msg)
}

// Invalid reports a structural problem that is not a format mismatch.
func Invalid(field, msg string) *FieldError {
	return newFieldError(domain.ErrValidation, field, "", "%s", msg)
}

// Required fails when value is blank after trimming.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return Missing(field)
	}
	return nil
}

// AssertDate checks the AAAA-MM-DD layout.
func AssertDate(value, field string) error {
	if !datePattern.MatchString(value) {
		return newFieldError(domain.ErrValidation, field, value, "%s debe ser AAAA-MM-DD", field)
	}
	return nil
}

// AssertTimeHMS checks the HH:MM:SS layout.
func AssertTimeHMS(value, field string) error {
	if !timeHMSPattern.MatchString(value) {
		return newFieldError(domain.ErrValidation, field, value, "%s debe ser HH:MM:SS", field)
	}
	return nil
}

// AssertTimeHM checks the HH:MM layout.
func AssertTimeHM(value, field string) error {
	if !timeHMPattern.MatchString(value) {
		return newFieldError(domain.ErrValidation, field, value, "%s debe ser HH:MM", field)
	}
	return nil
}

// AssertEnum checks membership in a closed code list.
func AssertEnum(value, field string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	quoted := make([]string, len(allowed))
	for i, a := range allowed {
		quoted[i] = "'" + a + "'"
	}
	return newFieldError(domain.ErrValidation, field, value,
		"%s inválido. Permitidos: [%s]", field, strings.Join(quoted, ", "))
}

// AssertDecimalString checks a non-negative amount with a period and at
// most two fraction digits.
func AssertDecimalString(value, field string) error {
	if !decimalPattern.MatchString(value) {
		return newFieldError(domain.ErrValidation, field, value,
			"%s debe ser número con punto y hasta 2 decimales (p.ej. 1234.56)", field)
	}
	return nil
}

// FieldOf returns the field path of a *FieldError anywhere in err's chain.
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.FieldPath
	}
	return ""
}
