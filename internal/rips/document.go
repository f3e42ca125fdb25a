// Package rips models the RIPS claims document (invoice or credit note) as
// exchanged in JSON: a header, free-form top-level fields and the ordered
// list of patients with their grouped service lines.
package rips

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Header field names.
const (
	FieldObligado   = "numDocumentoIdObligado"
	FieldNumFactura = "numFactura"
	FieldTipoNota   = "tipoNota"
	FieldNumNota    = "numNota"
	FieldUsuarios   = "usuarios"
)

// HeaderFields lists the scalar header fields in document order.
var HeaderFields = []string{FieldObligado, FieldNumFactura, FieldTipoNota, FieldNumNota}

// Document is a claims document ("factura" or "nota").
type Document struct {
	NumDocumentoIdObligado *Value
	NumFactura             *Value
	TipoNota               *Value
	NumNota                *Value
	Usuarios               []*Patient

	// Extra keeps top-level fields this model does not know about.
	Extra map[string]json.RawMessage
}

// ErrNotObject is returned when the payload is not a JSON object.
var ErrNotObject = errors.New("claims document must be a JSON object")

// Parse decodes a claims document.
func Parse(data []byte) (*Document, error) {
	t := bytes.TrimSpace(data)
	if len(t) == 0 || t[0] != '{' {
		return nil, ErrNotObject
	}
	doc := &Document{}
	if err := json.Unmarshal(t, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode renders the document as UTF-8 JSON indented with two spaces.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) header(name string) **Value {
	switch name {
	case FieldObligado:
		return &d.NumDocumentoIdObligado
	case FieldNumFactura:
		return &d.NumFactura
	case FieldTipoNota:
		return &d.TipoNota
	case FieldNumNota:
		return &d.NumNota
	}
	return nil
}

// Header returns the named header field.
func (d *Document) Header(name string) *Value {
	if s := d.header(name); s != nil {
		return *s
	}
	return nil
}

// Patient returns the patient at idx, or nil when out of range.
func (d *Document) Patient(idx int) *Patient {
	if d == nil || idx < 0 || idx >= len(d.Usuarios) {
		return nil
	}
	return d.Usuarios[idx]
}

// NormalizeServices makes every patient carry all fixed service groups.
func (d *Document) NormalizeServices() {
	for _, p := range d.Usuarios {
		if p != nil {
			p.EnsureServices()
		}
	}
}

// Clone deep-copies the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{Extra: cloneRaw(d.Extra)}
	for _, f := range HeaderFields {
		*c.header(f) = d.Header(f).Clone()
	}
	if d.Usuarios != nil {
		c.Usuarios = make([]*Patient, len(d.Usuarios))
		for i, p := range d.Usuarios {
			c.Usuarios[i] = p.Clone()
		}
	}
	return c
}

func (d Document) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	for _, f := range HeaderFields {
		if err := w.scalar(f, d.Header(f)); err != nil {
			return nil, err
		}
	}
	if err := w.extra(d.Extra); err != nil {
		return nil, err
	}
	usuarios := d.Usuarios
	if usuarios == nil {
		usuarios = []*Patient{}
	}
	if err := w.field(FieldUsuarios, usuarios); err != nil {
		return nil, err
	}
	return w.close(), nil
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	out := Document{}
	for key, raw := range fields {
		switch {
		case key == FieldUsuarios:
			if isNull(raw) {
				continue
			}
			if err := json.Unmarshal(raw, &out.Usuarios); err != nil {
				return fmt.Errorf("usuarios: %w", err)
			}
		case out.header(key) != nil:
			v, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*out.header(key) = v
		default:
			if out.Extra == nil {
				out.Extra = map[string]json.RawMessage{}
			}
			out.Extra[key] = append(json.RawMessage(nil), raw...)
		}
	}
	for i, p := range out.Usuarios {
		if p == nil {
			return fmt.Errorf("usuarios[%d]: null patient", i)
		}
	}
	*d = out
	return nil
}
