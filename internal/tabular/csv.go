package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"ripsnc/internal/projector"
)

// BOM is written first so Excel on Windows detects UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes t with a UTF-8 BOM and a header row.
func WriteCSV(w io.Writer, t projector.Table) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("tabular.WriteCSV: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(recordsFromTable(t)); err != nil {
		return fmt.Errorf("tabular.WriteCSV: %w", err)
	}
	return nil
}

// ReadCSV reads a table written by WriteCSV or saved by a spreadsheet. A
// leading BOM is skipped. Cells come back as strings.
func ReadCSV(r io.Reader) (projector.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(BOM)); err == nil && bytes.Equal(head, BOM) {
		_, _ = br.Discard(len(BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return projector.Table{}, fmt.Errorf("tabular.ReadCSV: %w", err)
	}
	return rowsFromRecords(records), nil
}
