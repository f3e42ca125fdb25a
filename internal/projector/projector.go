// Package projector maps the nested patient/service structure of a claims
// document to flat edit rows and back. Reference and target services are
// aligned by position: patient index, group name and item index.
package projector

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ripsnc/internal/normalize"
	"ripsnc/internal/reconcile"
	"ripsnc/internal/rips"
)

// Column names of the edit table.
const (
	ColIdxUsuario    = "idx_usuario"
	ColTipoServicio  = "tipo_servicio"
	ColIdxItem       = "idx_item"
	ColVrNota        = "vrServicio_nota"
	ColVrFactura     = "vrServicio_factura"
	ColFaltantes     = "campos_faltantes"
	ColSinEstructura = "sin_estructura_nota"
	ItemColumnPrefix = "srv."
)

// RequiredColumns must appear in a table given to Apply.
var RequiredColumns = []string{ColIdxUsuario, ColTipoServicio, ColIdxItem, ColVrNota}

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// Row is one flat edit row keyed by column name.
type Row map[string]any

// Table is an ordered set of columns and their rows.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Options tune Apply.
type Options struct {
	// TipoUsuario is the forced user-type code; empty selects the default.
	TipoUsuario string
}

// ExpectedFields returns the keys of the service item with the most keys,
// scanning reference first and then target. Ties keep the first item seen.
func ExpectedFields(target, reference *rips.Document) []string {
	var best rips.Item
	for _, doc := range []*rips.Document{reference, target} {
		if doc == nil {
			continue
		}
		for _, p := range doc.Usuarios {
			if p == nil {
				continue
			}
			for _, g := range p.Servicios.GroupNames() {
				for _, it := range p.Servicios[g] {
					if len(it) > len(best) {
						best = it
					}
				}
			}
		}
	}
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Columns returns the table header for the given item fields.
func Columns(fields []string) []string {
	cols := []string{ColIdxUsuario, ColTipoServicio, ColIdxItem}
	cols = append(cols, rips.PatientFields...)
	cols = append(cols, ColVrNota, ColVrFactura, ColFaltantes, ColSinEstructura)
	for _, f := range fields {
		cols = append(cols, ItemColumnPrefix+f)
	}
	return cols
}

// Flatten emits one row per target service item. A target patient without
// services but whose positional reference counterpart has some gets
// placeholder rows built from the reference, flagged sin_estructura_nota.
func Flatten(target, reference *rips.Document) Table {
	fields := ExpectedFields(target, reference)
	t := Table{Columns: Columns(fields), Rows: []Row{}}
	if target == nil {
		return t
	}
	for i, p := range target.Usuarios {
		if p == nil {
			continue
		}
		ref := reference.Patient(i)
		demo := demographics(p, ref)

		if p.Servicios.HasItems() {
			for _, g := range p.Servicios.GroupNames() {
				for j, it := range p.Servicios[g] {
					row := newRow(i, g, j, demo, it, fields)
					row[ColVrNota] = it[rips.FieldVrServicio]
					row[ColVrFactura] = refAmount(ref, g, j)
					row[ColSinEstructura] = false
					t.Rows = append(t.Rows, row)
				}
			}
			continue
		}
		if ref == nil || !ref.Servicios.HasItems() {
			continue
		}
		for _, g := range ref.Servicios.GroupNames() {
			for j, it := range ref.Servicios[g] {
				row := newRow(i, g, j, demo, it, fields)
				row[ColVrNota] = nil
				row[ColVrFactura] = it[rips.FieldVrServicio]
				row[ColSinEstructura] = true
				t.Rows = append(t.Rows, row)
			}
		}
	}
	return t
}

func newRow(i int, group string, j int, demo map[string]any, it rips.Item, fields []string) Row {
	row := Row{
		ColIdxUsuario:   i,
		ColTipoServicio: group,
		ColIdxItem:      j,
	}
	for k, v := range demo {
		row[k] = v
	}
	var missing []string
	for _, f := range fields {
		row[ItemColumnPrefix+f] = it[f]
		if it.Blank(f) {
			missing = append(missing, f)
		}
	}
	row[ColFaltantes] = strings.Join(missing, ",")
	return row
}

// demographics prefers target values and falls back to the reference.
func demographics(p, ref *rips.Patient) map[string]any {
	out := make(map[string]any, len(rips.PatientFields))
	for _, f := range rips.PatientFields {
		v := p.Field(f)
		if v.Blank() && ref != nil {
			v = ref.Field(f)
		}
		out[f] = cell(v)
	}
	return out
}

func cell(v *rips.Value) any {
	switch {
	case v == nil || v.IsNull():
		return nil
	case v.IsNumber():
		return json.Number(v.String())
	case v.IsBool():
		return v.String() == "true"
	default:
		return v.String()
	}
}

func refAmount(ref *rips.Patient, group string, j int) any {
	if ref == nil {
		return nil
	}
	items := ref.Servicios[group]
	if j >= len(items) {
		return nil
	}
	return items[j][rips.FieldVrServicio]
}

// Apply writes the edited amounts back into a copy of target. Rows with a
// blank vrServicio_nota are skipped. Demographic columns overwrite the
// patient's fields. A missing item is seeded from the reference item at
// the same position, or from the reference patient with the row's
// identification when those columns are filled. Row problems are returned
// as messages; a required column missing from the table aborts with the
// copy unchanged.
func Apply(target, reference *rips.Document, t Table, opts Options) (*rips.Document, []string) {
	out := target.Clone()
	if out == nil {
		out = &rips.Document{}
	}
	if len(t.Rows) == 0 {
		return out, nil
	}
	if col := missingColumn(t); col != "" {
		return out, []string{fmt.Sprintf("falta la columna requerida %q", col)}
	}

	refIdx := reconcile.NewIndex(reference)
	var errs []string
	for n, row := range t.Rows {
		raw, ok := row[ColVrNota]
		if !ok || blankCell(raw) {
			continue
		}
		if err := applyRow(out, reference, refIdx, row, raw, opts); err != nil {
			errs = append(errs, fmt.Sprintf("fila %d: %v", n+1, err))
		}
	}
	return out, errs
}

func applyRow(out, reference *rips.Document, refIdx *reconcile.Index, row Row, raw any, opts Options) error {
	ui, err := toIndex(row[ColIdxUsuario])
	if err != nil {
		return fmt.Errorf("%s inválido: %w", ColIdxUsuario, err)
	}
	group := strings.TrimSpace(cellText(row[ColTipoServicio]))
	if group == "" {
		return fmt.Errorf("%s vacío", ColTipoServicio)
	}
	si, err := toIndex(row[ColIdxItem])
	if err != nil {
		return fmt.Errorf("%s inválido: %w", ColIdxItem, err)
	}
	amount, err := toAmount(raw)
	if err != nil {
		return fmt.Errorf("%s inválido: %w", ColVrNota, err)
	}
	p := out.Patient(ui)
	if p == nil {
		return fmt.Errorf("%s %d fuera de rango", ColIdxUsuario, ui)
	}

	for _, f := range rips.PatientFields {
		v, ok := row[f]
		if !ok || blankCell(v) {
			continue
		}
		if cur := p.Field(f); cur != nil && strings.TrimSpace(cur.String()) == strings.TrimSpace(cellText(v)) {
			continue
		}
		p.SetField(f, rips.NormalizeDemographic(f, rips.ValueOf(v), opts.TipoUsuario))
	}

	p.EnsureServices()
	items := p.Servicios[group]
	switch {
	case si < len(items):
		if items[si] == nil {
			items[si] = rips.Item{}
		}
		items[si][rips.FieldVrServicio] = sameKind(items[si][rips.FieldVrServicio], amount)
		return nil
	case si > len(items):
		return fmt.Errorf("%s %d deja un hueco en %s (siguiente libre: %d)", ColIdxItem, si, group, len(items))
	}

	src := seedSource(reference, refIdx, row, ui)
	if src == nil || si >= len(src.Servicios[group]) {
		return fmt.Errorf("no hay servicio de referencia para usuario %d, %s, ítem %d", ui, group, si)
	}
	seed := src.Servicios[group][si].Clone()
	seed[rips.FieldVrServicio] = sameKind(seed[rips.FieldVrServicio], amount)
	p.Servicios[group] = append(items, seed)
	return nil
}

// seedSource finds the reference patient by the row's identification when
// both columns are filled, otherwise by position.
func seedSource(reference *rips.Document, refIdx *reconcile.Index, row Row, ui int) *rips.Patient {
	if reference == nil {
		return nil
	}
	docType := strings.TrimSpace(cellText(row[rips.FieldTipoDocumento]))
	docNum := strings.TrimSpace(cellText(row[rips.FieldNumDocumento]))
	if docType != "" && docNum != "" {
		lookup := &rips.Patient{
			TipoDocumentoIdentificacion: rips.NewText(docType),
			NumDocumentoIdentificacion:  rips.NewText(docNum),
		}
		if m, ok := refIdx.Lookup(lookup); ok {
			return m
		}
	}
	return reference.Patient(ui)
}

func missingColumn(t Table) string {
	present := map[string]bool{}
	for _, c := range t.Columns {
		present[c] = true
	}
	if len(t.Columns) == 0 {
		for _, r := range t.Rows {
			for k := range r {
				present[k] = true
			}
		}
	}
	for _, c := range RequiredColumns {
		if !present[c] {
			return c
		}
	}
	return ""
}

func blankCell(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toIndex(v any) (int, error) {
	s := strings.TrimSpace(cellText(v))
	if s == "" {
		return 0, fmt.Errorf("vacío")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("%q no es un entero", s)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("%d es negativo", n)
	}
	return n, nil
}

// sameKind returns amount in the JSON kind of current: a string amount stays
// a string, and an unchanged literal is returned as is.
func sameKind(current any, amount json.Number) any {
	if strings.TrimSpace(cellText(current)) == amount.String() {
		return current
	}
	if _, ok := current.(string); ok {
		return amount.String()
	}
	return amount
}

// toAmount keeps JSON number literals verbatim and otherwise parses the
// cell as a decimal, accepting a comma separator.
func toAmount(v any) (json.Number, error) {
	s := strings.TrimSpace(cellText(v))
	if jsonNumber.MatchString(s) {
		return json.Number(s), nil
	}
	d, err := normalize.ParseDecimal(s)
	if err != nil {
		return "", err
	}
	return json.Number(d.String()), nil
}
