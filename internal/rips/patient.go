package rips

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Demographic field names, in document order.
const (
	FieldTipoDocumento   = "tipoDocumentoIdentificacion"
	FieldNumDocumento    = "numDocumentoIdentificacion"
	FieldTipoUsuario     = "tipoUsuario"
	FieldFechaNacimiento = "fechaNacimiento"
	FieldCodSexo         = "codSexo"
	FieldCodPais         = "codPaisResidencia"
	FieldCodMunicipio    = "codMunicipioResidencia"
	FieldCodZona         = "codZonaTerritorialResidencia"
	FieldIncapacidad     = "incapacidad"
	FieldConsecutivo     = "consecutivo"
	FieldCodPaisOrigen   = "codPaisOrigen"
	FieldServicios       = "servicios"
)

// PatientFields lists the scalar patient fields in document order.
var PatientFields = []string{
	FieldTipoDocumento,
	FieldNumDocumento,
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

// Patient is one "usuario" of a claims document.
type Patient struct {
	TipoDocumentoIdentificacion  *Value
	NumDocumentoIdentificacion   *Value
	TipoUsuario                  *Value
	FechaNacimiento              *Value
	CodSexo                      *Value
	CodPaisResidencia            *Value
	CodMunicipioResidencia       *Value
	CodZonaTerritorialResidencia *Value
	Incapacidad                  *Value
	Consecutivo                  *Value
	CodPaisOrigen                *Value
	Servicios                    Services

	// Extra keeps fields this model does not know about.
	Extra map[string]json.RawMessage
}

func (p *Patient) slot(name string) **Value {
	switch name {
	case FieldTipoDocumento:
		return &p.TipoDocumentoIdentificacion
	case FieldNumDocumento:
		return &p.NumDocumentoIdentificacion
	case FieldTipoUsuario:
		return &p.TipoUsuario
	case FieldFechaNacimiento:
		return &p.FechaNacimiento
	case FieldCodSexo:
		return &p.CodSexo
	case FieldCodPais:
		return &p.CodPaisResidencia
	case FieldCodMunicipio:
		return &p.CodMunicipioResidencia
	case FieldCodZona:
		return &p.CodZonaTerritorialResidencia
	case FieldIncapacidad:
		return &p.Incapacidad
	case FieldConsecutivo:
		return &p.Consecutivo
	case FieldCodPaisOrigen:
		return &p.CodPaisOrigen
	}
	return nil
}

// Field returns the named scalar field, or nil for unknown names.
func (p *Patient) Field(name string) *Value {
	if s := p.slot(name); s != nil {
		return *s
	}
	return nil
}

// SetField assigns the named scalar field. Unknown names are ignored and
// reported as false.
func (p *Patient) SetField(name string, v *Value) bool {
	s := p.slot(name)
	if s == nil {
		return false
	}
	*s = v
	return true
}

// DocType returns the trimmed, upper-cased document type.
func (p *Patient) DocType() string {
	return strings.ToUpper(strings.TrimSpace(p.TipoDocumentoIdentificacion.String()))
}

// DocNumber returns the trimmed document number.
func (p *Patient) DocNumber() string {
	return strings.TrimSpace(p.NumDocumentoIdentificacion.String())
}

// Key identifies the patient as TYPE:NUMBER.
func (p *Patient) Key() string {
	return p.DocType() + ":" + p.DocNumber()
}

// EnsureServices normalizes the service map in place.
func (p *Patient) EnsureServices() {
	p.Servicios = p.Servicios.Normalize()
}

// Clone deep-copies the patient.
func (p *Patient) Clone() *Patient {
	if p == nil {
		return nil
	}
	c := &Patient{Servicios: p.Servicios.Clone(), Extra: cloneRaw(p.Extra)}
	for _, f := range PatientFields {
		c.SetField(f, p.Field(f).Clone())
	}
	return c
}

func (p Patient) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	for _, f := range PatientFields {
		if err := w.scalar(f, p.Field(f)); err != nil {
			return nil, err
		}
	}
	if err := w.extra(p.Extra); err != nil {
		return nil, err
	}
	if err := w.field(FieldServicios, p.Servicios); err != nil {
		return nil, err
	}
	return w.close(), nil
}

func (p *Patient) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("usuario: %w", err)
	}
	out := Patient{}
	for key, raw := range fields {
		switch {
		case key == FieldServicios:
			if err := out.Servicios.UnmarshalJSON(raw); err != nil {
				return err
			}
		case out.slot(key) != nil:
			v, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("usuario.%s: %w", key, err)
			}
			out.SetField(key, v)
		default:
			if out.Extra == nil {
				out.Extra = map[string]json.RawMessage{}
			}
			out.Extra[key] = append(json.RawMessage(nil), raw...)
		}
	}
	*p = out
	return nil
}

// objectWriter writes a JSON object with a fixed key order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
}

func newObjectWriter() *objectWriter {
	w := &objectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objectWriter) field(key string, v any) error {
	raw, err := marshalNoEscape(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	w.raw(key, raw)
	return nil
}

// scalar writes v unless the field is absent.
func (w *objectWriter) scalar(key string, v *Value) error {
	if v == nil {
		return nil
	}
	return w.field(key, v)
}

func (w *objectWriter) raw(key string, raw []byte) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	w.n++
	k, _ := marshalNoEscape(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(raw)
}

func (w *objectWriter) extra(m map[string]json.RawMessage) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := m[k]
		if !json.Valid(raw) {
			return fmt.Errorf("invalid raw value for %s", k)
		}
		w.raw(k, raw)
	}
	return nil
}

func (w *objectWriter) close() []byte {
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
