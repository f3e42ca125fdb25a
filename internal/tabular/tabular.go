// Package tabular reads and writes the flat service edit table as XLSX or
// CSV so operators can edit amounts in a spreadsheet.
package tabular

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ripsnc/internal/domain"
	"ripsnc/internal/projector"
)

// SheetName is the worksheet holding the edit table.
const SheetName = "plantilla"

// FormatFromFilename picks the tabular format from a file extension.
func FormatFromFilename(name string) (domain.ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return domain.ExportFormatXLSX, nil
	case ".csv":
		return domain.ExportFormatCSV, nil
	case ".json":
		return domain.ExportFormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, name)
}

// Write encodes t in the given format.
func Write(w io.Writer, t projector.Table, format domain.ExportFormat) error {
	switch format {
	case domain.ExportFormatXLSX:
		return WriteXLSX(w, t)
	case domain.ExportFormatCSV:
		return WriteCSV(w, t)
	case domain.ExportFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}
	return fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, format)
}

// Read decodes a table in the given format.
func Read(r io.Reader, format domain.ExportFormat) (projector.Table, error) {
	switch format {
	case domain.ExportFormatXLSX:
		return ReadXLSX(r)
	case domain.ExportFormatCSV:
		return ReadCSV(r)
	case domain.ExportFormatJSON:
		var t projector.Table
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&t); err != nil {
			return projector.Table{}, fmt.Errorf("tabular.Read json: %w", err)
		}
		return t, nil
	}
	return projector.Table{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, format)
}

// cellString renders a table value as cell text. Numbers keep their
// literal form.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// rowsFromRecords turns a header row plus records into a table. Blank
// cells are left out of the row.
func rowsFromRecords(records [][]string) projector.Table {
	t := projector.Table{Rows: []projector.Row{}}
	if len(records) == 0 {
		return t
	}
	for _, h := range records[0] {
		t.Columns = append(t.Columns, strings.TrimSpace(h))
	}
	for _, rec := range records[1:] {
		row := projector.Row{}
		for i, cell := range rec {
			if i >= len(t.Columns) || t.Columns[i] == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			row[t.Columns[i]] = cell
		}
		if len(row) > 0 {
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func recordsFromTable(t projector.Table) [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Columns)
	for _, r := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = cellString(r[c])
		}
		out = append(out, rec)
	}
	return out
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "nota"
	}
	return s
}

// BuildFilename returns {sanitized base}_{YYYY-MM-DD}.{ext}.
func BuildFilename(base, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(base), time.Now().Format("2006-01-02"), ext)
}
