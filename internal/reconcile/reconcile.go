// Package reconcile completes a credit note claims document from the invoice
// it refers to: patients are matched by identification, missing
// demographics are filled in and empty service maps are copied over.
package reconcile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ripsnc/internal/rips"
)

// Options tune a reconciliation run.
type Options struct {
	// ForceSign multiplies copied amounts by +1 or -1. Zero leaves them.
	ForceSign int
	// TipoUsuario is the user-type code written on completed patients.
	// Empty selects rips.DefaultTipoUsuario.
	TipoUsuario string
}

// Summary reports what a reconciliation changed.
type Summary struct {
	TotalReference        int      `json:"total_reference"`
	TotalTarget           int      `json:"total_target"`
	Modified              int      `json:"modified"`
	AlreadyHadServices    int      `json:"already_had_services"`
	DemographicsCompleted int      `json:"demographics_completed"`
	Unmatched             []string `json:"unmatched"`
	Warnings              []string `json:"warnings,omitempty"`
}

// Index looks up reference patients by TYPE:NUMBER and by number alone.
type Index struct {
	exact    map[string]*rips.Patient
	byNumber map[string]*rips.Patient
	types    map[string][]string
}

// NewIndex indexes doc's patients. Patients without a document number are
// skipped. When several patients share a number the last one wins the
// number-only lookup.
func NewIndex(doc *rips.Document) *Index {
	idx := &Index{
		exact:    map[string]*rips.Patient{},
		byNumber: map[string]*rips.Patient{},
		types:    map[string][]string{},
	}
	if doc == nil {
		return idx
	}
	for _, p := range doc.Usuarios {
		if p == nil || p.DocNumber() == "" {
			continue
		}
		n := p.DocNumber()
		idx.exact[p.Key()] = p
		idx.byNumber[n] = p
		idx.types[n] = appendUnique(idx.types[n], p.DocType())
	}
	return idx
}

// Lookup returns the exact match, else the number-only match.
func (x *Index) Lookup(p *rips.Patient) (*rips.Patient, bool) {
	if p == nil || p.DocNumber() == "" {
		return nil, false
	}
	if m, ok := x.exact[p.Key()]; ok {
		return m, true
	}
	m, ok := x.byNumber[p.DocNumber()]
	return m, ok
}

// Ambiguous lists numbers registered under more than one document type.
func (x *Index) Ambiguous() []string {
	var out []string
	for n, types := range x.types {
		if len(types) > 1 {
			out = append(out, fmt.Sprintf("el documento %s aparece con tipos %s; la búsqueda solo por número usa el último",
				n, strings.Join(types, ", ")))
		}
	}
	sort.Strings(out)
	return out
}

// Reconcile returns a copy of target completed from reference. Neither
// input is modified.
func Reconcile(reference, target *rips.Document, opts Options) (*rips.Document, Summary) {
	ref := reference.Clone()
	if ref == nil {
		ref = &rips.Document{}
	}
	out := target.Clone()
	if out == nil {
		out = &rips.Document{}
	}

	idx := NewIndex(ref)
	sum := Summary{
		TotalReference: len(ref.Usuarios),
		TotalTarget:    len(out.Usuarios),
		Unmatched:      []string{},
		Warnings:       idx.Ambiguous(),
	}

	for _, p := range out.Usuarios {
		if p == nil {
			continue
		}
		match, ok := idx.Lookup(p)
		if !ok {
			sum.Unmatched = append(sum.Unmatched, p.Key())
			continue
		}
		if CompleteDemographics(p, match, opts.TipoUsuario) {
			sum.DemographicsCompleted++
		}

		match.EnsureServices()
		p.EnsureServices()
		if p.Servicios.HasItems() {
			sum.AlreadyHadServices++
			continue
		}
		p.Servicios = match.Servicios.Clone()
		ApplySign(p.Servicios, opts.ForceSign)
		sum.Modified++
	}
	return out, sum
}

// CompleteDemographics fills every blank demographic field of p from ref,
// normalized. Populated fields are never overwritten. A blank tipoUsuario
// receives the forced code even when ref has none. It reports whether any
// field was written.
func CompleteDemographics(p, ref *rips.Patient, tipoUsuario string) bool {
	changed := false
	for _, f := range rips.DemographicFields {
		if !p.Field(f).Blank() {
			continue
		}
		src := ref.Field(f)
		if f != rips.FieldTipoUsuario && src.Blank() {
			continue
		}
		p.SetField(f, rips.NormalizeDemographic(f, src, tipoUsuario))
		changed = true
	}
	return changed
}

// ApplySign multiplies every monetary field of every item by sign when sign
// is +1 or -1. Values that are not numbers are left alone.
func ApplySign(s rips.Services, sign int) {
	if sign != 1 && sign != -1 {
		return
	}
	for _, items := range s {
		for _, it := range items {
			for _, f := range rips.MoneyFields {
				if v, ok := it[f]; ok {
					it[f] = signed(v, sign)
				}
			}
		}
	}
}

// signed keeps the value's type and, for literals, its scale.
func signed(v any, sign int) any {
	if sign == 1 {
		return v
	}
	switch t := v.(type) {
	case json.Number:
		if d, ok := rips.ParseAmount(t); ok {
			return json.Number(negateLiteral(t.String(), d))
		}
	case string:
		if d, ok := rips.ParseAmount(t); ok {
			return negateLiteral(strings.TrimSpace(t), d)
		}
	case float64:
		return -t
	case int:
		return -t
	case int64:
		return -t
	}
	return v
}

func negateLiteral(s string, d decimal.Decimal) string {
	if d.IsZero() {
		return s
	}
	if strings.HasPrefix(s, "-") {
		return s[1:]
	}
	return "-" + strings.TrimPrefix(s, "+")
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
