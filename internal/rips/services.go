package rips

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Service group names.
const (
	GroupConsultas       = "consultas"
	GroupProcedimientos  = "procedimientos"
	GroupUrgencias       = "urgencias"
	GroupHospitalizacion = "hospitalizacion"
	GroupRecienNacidos   = "recienNacidos"
	GroupMedicamentos    = "medicamentos"
	GroupOtrosServicios  = "otrosServicios"
)

// Groups lists every fixed service group in document order.
var Groups = []string{
	GroupConsultas,
	GroupProcedimientos,
	GroupUrgencias,
	GroupHospitalizacion,
	GroupRecienNacidos,
	GroupMedicamentos,
	GroupOtrosServicios,
}

// Monetary item fields.
const (
	FieldVrServicio         = "vrServicio"
	FieldValorPagoModerador = "valorPagoModerador"
)

// MoneyFields are the item fields affected by sign forcing.
var MoneyFields = []string{FieldVrServicio, FieldValorPagoModerador}

// Item is one service line. Numbers are held as json.Number.
type Item map[string]any

// Services maps a group name to its ordered service lines.
type Services map[string][]Item

// Amount parses field as a decimal amount.
func (it Item) Amount(field string) (decimal.Decimal, bool) {
	return ParseAmount(it[field])
}

// Clone deep-copies the item.
func (it Item) Clone() Item {
	if it == nil {
		return nil
	}
	return Item(cloneMap(it))
}

// Blank reports whether field is absent, null or an empty string.
func (it Item) Blank(field string) bool {
	v, ok := it[field]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// ParseAmount reads a JSON number, float or numeric string as a decimal.
func ParseAmount(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}

// Normalize makes sure every fixed group exists. It is idempotent.
func (s Services) Normalize() Services {
	if s == nil {
		s = Services{}
	}
	for _, g := range Groups {
		if s[g] == nil {
			s[g] = []Item{}
		}
	}
	return s
}

// HasItems reports whether any group holds at least one line.
func (s Services) HasItems() bool {
	for _, items := range s {
		if len(items) > 0 {
			return true
		}
	}
	return false
}

// Count returns the total number of service lines.
func (s Services) Count() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}

// GroupNames returns the fixed groups followed by any extra groups, sorted.
func (s Services) GroupNames() []string {
	names := append([]string(nil), Groups...)
	var extra []string
	for g := range s {
		if !IsGroup(g) {
			extra = append(extra, g)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// Clone deep-copies every group.
func (s Services) Clone() Services {
	if s == nil {
		return nil
	}
	out := make(Services, len(s))
	for g, items := range s {
		if items == nil {
			out[g] = nil
			continue
		}
		cp := make([]Item, len(items))
		for i, it := range items {
			cp[i] = it.Clone()
		}
		out[g] = cp
	}
	return out
}

// IsGroup reports whether name is one of the fixed groups.
func IsGroup(name string) bool {
	for _, g := range Groups {
		if g == name {
			return true
		}
	}
	return false
}

func (s Services) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, g := range s.GroupNames() {
		items, ok := s[g]
		if !ok {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		key, _ := marshalNoEscape(g)
		buf.Write(key)
		buf.WriteByte(':')
		if items == nil {
			buf.WriteString("null")
			continue
		}
		raw, err := marshalNoEscape(items)
		if err != nil {
			return nil, fmt.Errorf("marshaling group %s: %w", g, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Services) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*s = nil
		return nil
	}
	var groups map[string]json.RawMessage
	if err := json.Unmarshal(b, &groups); err != nil {
		return fmt.Errorf("servicios: %w", err)
	}
	out := make(Services, len(groups))
	for g, raw := range groups {
		if isNull(raw) {
			out[g] = nil
			continue
		}
		var items []Item
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("servicios.%s: %w", g, err)
		}
		out[g] = items
	}
	*s = out
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Item:
		return Item(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return v
	}
}
