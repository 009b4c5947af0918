// Package report renders cash ledger reports as xlsx workbooks.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// numFmtMoney is the built-in "#,##0.00" format
const numFmtMoney = 4

// RenderError represents an error while building a workbook
type RenderError struct {
	Document string
	Cause    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Document, e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// sheetWriter appends rows to one sheet and tracks the cursor.
// The first error sticks; later writes are no-ops.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	row    int
	header int
	money  int
	err    error
}

func newSheetWriter(f *excelize.File, sheet string) (*sheetWriter, error) {
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return nil, err
	}
	return &sheetWriter{f: f, sheet: sheet, row: 1, header: header, money: money}, nil
}

// cell returns the A1 reference of column col (1-based) on the current row
func (w *sheetWriter) cell(col int) string {
	name, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil && w.err == nil {
		w.err = err
	}
	return name
}

// headerRow writes bold column titles
func (w *sheetWriter) headerRow(titles ...string) {
	if w.err != nil {
		return
	}
	for i, title := range titles {
		w.set(i+1, title)
	}
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, w.cell(1), w.cell(len(titles)), w.header)
	}
	w.row++
}

// valueRow writes one data row. Decimal values get the money format;
// nil decimal pointers leave the cell empty.
func (w *sheetWriter) valueRow(values ...any) {
	if w.err != nil {
		return
	}
	for i, v := range values {
		col := i + 1
		switch val := v.(type) {
		case decimal.Decimal:
			w.setMoney(col, val)
		case *decimal.Decimal:
			if val != nil {
				w.setMoney(col, *val)
			}
		default:
			w.set(col, val)
		}
	}
	w.row++
}

// pair writes a label/value line used in document headers
func (w *sheetWriter) pair(label string, value any) {
	w.valueRow(label, value)
}

func (w *sheetWriter) skip() {
	w.row++
}

func (w *sheetWriter) set(col int, value any) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetCellValue(w.sheet, w.cell(col), value)
}

func (w *sheetWriter) setMoney(col int, amount decimal.Decimal) {
	w.set(col, amount.InexactFloat64())
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, w.cell(col), w.cell(col), w.money)
	}
}

// widths sets column widths starting at column A
func (w *sheetWriter) widths(widths ...float64) {
	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetColWidth(w.sheet, col, col, width)
	}
}

// finish serializes the workbook
func finish(f *excelize.File, w *sheetWriter, document string) ([]byte, error) {
	if w.err != nil {
		return nil, &RenderError{Document: document, Cause: w.err}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &RenderError{Document: document, Cause: err}
	}
	return buf.Bytes(), nil
}
