// Package xmlbridge renders claims documents as XML and swaps the CDATA
// payload of document-exchange envelopes without reparsing them, so every
// byte outside the payload is preserved.
package xmlbridge

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"ripsnc/internal/rips"
)

// RootElement is the root of a rendered claims document.
const RootElement = "RipsDocumento"

// Header is the declaration written before the root element.
const Header = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>` + "\n"

const indent = "  "

// element is a generic XML node: text or children.
type element struct {
	XMLName  xml.Name
	Value    string    `xml:",chardata"`
	Children []element `xml:",any"`
}

// ToXML renders doc under a RipsDocumento root. Absent fields are left out
// and null fields become empty elements; lists become a wrapper with one singularized child per entry.
func ToXML(doc *rips.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("xmlbridge.ToXML: nil document")
	}
	root := element{XMLName: xml.Name{Local: RootElement}}
	for _, f := range rips.HeaderFields {
		if v := doc.Header(f); v != nil {
			root.Children = append(root.Children, scalar(f, v))
		}
	}
	extra, err := rawFields(doc.Extra)
	if err != nil {
		return nil, fmt.Errorf("xmlbridge.ToXML: %w", err)
	}
	root.Children = append(root.Children, extra...)

	users := element{XMLName: xml.Name{Local: rips.FieldUsuarios}}
	for _, p := range doc.Usuarios {
		u, err := patientElement(p)
		if err != nil {
			return nil, fmt.Errorf("xmlbridge.ToXML: %w", err)
		}
		users.Children = append(users.Children, u)
	}
	root.Children = append(root.Children, users)

	body, err := xml.MarshalIndent(root, "", indent)
	if err != nil {
		return nil, fmt.Errorf("xmlbridge.ToXML: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func patientElement(p *rips.Patient) (element, error) {
	u := element{XMLName: xml.Name{Local: "usuario"}}
	if p == nil {
		return u, nil
	}
	for _, f := range rips.PatientFields {
		if v := p.Field(f); v != nil {
			u.Children = append(u.Children, scalar(f, v))
		}
	}
	extra, err := rawFields(p.Extra)
	if err != nil {
		return u, err
	}
	u.Children = append(u.Children, extra...)

	svc := element{XMLName: xml.Name{Local: rips.FieldServicios}}
	for _, g := range p.Servicios.GroupNames() {
		items, ok := p.Servicios[g]
		if !ok {
			continue
		}
		group := element{XMLName: xml.Name{Local: elementName(g)}}
		for _, it := range items {
			item := element{XMLName: xml.Name{Local: "item"}}
			for _, k := range sortedKeys(it) {
				item.Children = append(item.Children, node(k, it[k]))
			}
			group.Children = append(group.Children, item)
		}
		svc.Children = append(svc.Children, group)
	}
	u.Children = append(u.Children, svc)
	return u, nil
}

func scalar(name string, v *rips.Value) element {
	return element{XMLName: xml.Name{Local: elementName(name)}, Value: v.String()}
}

func rawFields(m map[string]json.RawMessage) ([]element, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]element, 0, len(keys))
	for _, k := range keys {
		var v any
		dec := json.NewDecoder(bytes.NewReader(m[k]))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out = append(out, node(k, v))
	}
	return out, nil
}

// node renders a decoded JSON value.
func node(name string, v any) element {
	el := element{XMLName: xml.Name{Local: elementName(name)}}
	switch t := v.(type) {
	case nil:
	case map[string]any:
		for _, k := range sortedKeys(t) {
			el.Children = append(el.Children, node(k, t[k]))
		}
	case rips.Item:
		for _, k := range sortedKeys(t) {
			el.Children = append(el.Children, node(k, t[k]))
		}
	case []any:
		child := singular(name)
		for _, e := range t {
			el.Children = append(el.Children, node(child, e))
		}
	case string:
		el.Value = t
	default:
		el.Value = fmt.Sprint(t)
	}
	return el
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// singular names the children of a list: a trailing "s" is dropped,
// anything else becomes "item".
func singular(name string) string {
	if len(name) > 1 && strings.HasSuffix(name, "s") {
		return strings.TrimSuffix(name, "s")
	}
	return "item"
}

// elementName replaces characters that are not allowed in an XML name.
func elementName(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range s {
		ok := unicode.IsLetter(r) || r == '_'
		if i > 0 {
			ok = ok || unicode.IsDigit(r) || r == '-' || r == '.'
		}
		if ok {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
