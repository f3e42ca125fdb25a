package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ripsnc/internal/projector"
)

// WriteXLSX writes t to a workbook with a single "plantilla" sheet. Cells
// are written as text so amounts keep their exact literal.
func WriteXLSX(w io.Writer, t projector.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("tabular.WriteXLSX: %w", err)
	}

	for i, rec := range recordsFromTable(t) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("tabular.WriteXLSX: %w", err)
		}
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("tabular.WriteXLSX row %d: %w", i+1, err)
		}
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("tabular.WriteXLSX: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("tabular.WriteXLSX: %w", err)
	}
	return nil
}

// ReadXLSX reads the "plantilla" sheet, or the first sheet when it is
// missing.
func ReadXLSX(r io.Reader) (projector.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return projector.Table{}, fmt.Errorf("tabular.ReadXLSX: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := SheetName
	if idx, _ := f.GetSheetIndex(SheetName); idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return projector.Table{}, fmt.Errorf("tabular.ReadXLSX: %w", err)
	}
	return rowsFromRecords(rows), nil
}
