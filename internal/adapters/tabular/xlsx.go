package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AlanFontoura/myscripts/internal/domain/frame"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// Sheet is one named frame of a workbook.
type Sheet struct {
	Name  string
	Frame *frame.Frame
}

// WriteXLSX writes one sheet per frame, in order, with a bold header row.
func WriteXLSX(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write %s: no sheets", path)
	}
	wb := excelize.NewFile()
	defer wb.Close()

	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, s := range sheets {
		name := sheetName(s.Name, i)
		if i == 0 {
			if err := wb.SetSheetName(wb.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := wb.NewSheet(name); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
		if err := writeSheet(wb, name, s.Frame, bold); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return wb.SaveAs(path)
}

func writeSheet(wb *excelize.File, name string, f *frame.Frame, headerStyle int) error {
	header := make([]any, 0, f.Width())
	for _, c := range f.Columns() {
		header = append(header, c)
	}
	if err := wb.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if f.Width() > 0 {
		last, err := excelize.CoordinatesToCellName(f.Width(), 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return err
		}
	}
	for r, row := range f.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = xlsxValue(v)
		}
		if err := wb.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return frame.Format(x)
	}
	if f, ok := frame.ToFloat(v); ok {
		return f
	}
	return v
}

func sheetName(name string, i int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

// ReadXLSX reads a sheet (the first one when sheet is empty) into a frame.
// The first row is the header; cells are typed with ParseCell.
func ReadXLSX(path, sheet string) (*frame.Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		return frame.Empty(), nil
	}
	f := frame.Empty(rows[0]...)
	for _, rec := range rows[1:] {
		row := make([]any, len(rec))
		for i, cell := range rec {
			row[i] = ParseCell(cell)
		}
		f.Append(row)
	}
	return f, nil
}
