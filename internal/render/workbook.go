package render

import (
	"fmt"
	"io"

	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteWorkbook and WriteTemplate.
const SheetName = "Transfer Certificates"

// WriteWorkbook writes records as an .xlsx workbook with one header row of
// field labels followed by one row per record, in the order given. The
// column order matches the import layout so an export can be re-imported.
func WriteWorkbook(w io.Writer, records []schema.StoredRecord) error {
	f, err := newWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()

	for i, rec := range records {
		values := rec.Values()
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteTemplate writes an empty import workbook containing only the header row.
func WriteTemplate(w io.Writer) error {
	return WriteWorkbook(w, nil)
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C8C8C8"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	labels := schema.Labels()
	for i, label := range labels {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetName, cell, label)
		f.SetCellStyle(SheetName, cell, cell, headerStyle)
	}

	last, _ := excelize.ColumnNumberToName(len(labels))
	f.SetColWidth(SheetName, "A", last, 18)
	f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return f, nil
}
