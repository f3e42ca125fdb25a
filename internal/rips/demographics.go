package rips

import (
	"strconv"
	"strings"
)

// DefaultTipoUsuario is the user-type code written on every completed patient.
const DefaultTipoUsuario = "04"

// DemographicFields are the patient fields completed from a reference
// document. The identification pair is included so that a fallback match
// by number alone can fill a missing document type.
var DemographicFields = []string{
	FieldTipoDocumento,
	FieldTipoUsuario,
	FieldFechaNacimiento,
	FieldCodSexo,
	FieldCodPais,
	FieldCodMunicipio,
	FieldCodZona,
	FieldIncapacidad,
	FieldConsecutivo,
	FieldCodPaisOrigen,
}

// codeWidths holds the fixed zero-padded width of code fields.
var codeWidths = map[string]int{
	FieldCodPais:       3,
	FieldCodPaisOrigen: 3,
	FieldCodMunicipio:  5,
	FieldCodZona:       2,
}

// IsDemographic reports whether name is a patient scalar field.
func IsDemographic(name string) bool {
	for _, f := range PatientFields {
		if f == name {
			return true
		}
	}
	return false
}

// NormalizeDemographic applies the field-specific rule to v. tipoUsuario is
// replaced by the given code whatever v holds; an empty code selects
// DefaultTipoUsuario.
func NormalizeDemographic(field string, v *Value, tipoUsuario string) *Value {
	if field == FieldTipoUsuario {
		if tipoUsuario == "" {
			tipoUsuario = DefaultTipoUsuario
		}
		return NewText(tipoUsuario)
	}
	if v.Blank() || v.IsBool() {
		return v.Clone()
	}
	s := strings.TrimSpace(v.String())
	switch field {
	case FieldFechaNacimiento:
		if parts := strings.Fields(s); len(parts) > 0 {
			s = parts[0]
		}
		return NewText(truncateRunes(s, 10))
	case FieldConsecutivo:
		if n, ok := integral(s); ok {
			return NewNumber(strconv.FormatInt(n, 10))
		}
		return v.Clone()
	case FieldTipoDocumento:
		return NewText(strings.ToUpper(s))
	}
	if width, ok := codeWidths[field]; ok {
		if n, ok := integral(s); ok && n >= 0 {
			s = strconv.FormatInt(n, 10)
		}
		return NewText(zeroPad(s, width))
	}
	return v.Clone()
}

// integral parses "12" or "12.0" as an integer.
func integral(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

func zeroPad(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return strings.Repeat("0", n) + s
	}
	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
