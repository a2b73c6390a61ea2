package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "napsidx/internal/errors"
)

// Sheet is a named grid of raw cell text. Rows may be ragged; missing
// cells read as the empty string.
type Sheet struct {
	Name string
	Rows [][]string
}

// NumRows returns the number of rows in the sheet.
func (s *Sheet) NumRows() int {
	return len(s.Rows)
}

// Row returns row r, or nil when r is out of range.
func (s *Sheet) Row(r int) []string {
	if r < 0 || r >= len(s.Rows) {
		return nil
	}
	return s.Rows[r]
}

// Cell returns the trimmed text at (r, c), both zero-based.
func (s *Sheet) Cell(r, c int) string {
	row := s.Row(r)
	if c < 0 || c >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[c])
}

// CellRef returns the value of an A1-style reference such as "D1".
func (s *Sheet) CellRef(ref string) (string, error) {
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return "", apperrors.NewParsingError(fmt.Sprintf("invalid cell reference %q", ref), err)
	}
	return s.Cell(row-1, col-1), nil
}

// Width returns the length of the longest row.
func (s *Sheet) Width() int {
	w := 0
	for _, row := range s.Rows {
		w = max(w, len(row))
	}
	return w
}

// Table is a header row plus the data rows below it, every row padded to
// the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

// TableFrom slices the sheet at headerRow. Cells beyond the header width are
// dropped and short rows are padded.
func (s *Sheet) TableFrom(headerRow int) (*Table, error) {
	if headerRow < 0 || headerRow >= len(s.Rows) {
		return nil, apperrors.NewStructuralError(
			fmt.Sprintf("header row %d outside sheet %q with %d rows", headerRow, s.Name, len(s.Rows)), nil)
	}

	header := make([]string, len(s.Rows[headerRow]))
	for i, h := range s.Rows[headerRow] {
		header[i] = strings.TrimSpace(h)
	}

	t := &Table{Header: header}
	for _, row := range s.Rows[headerRow+1:] {
		t.Rows = append(t.Rows, pad(row, len(header)))
	}
	return t, nil
}

// Column returns the index of the header equal to name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(row); i++ {
		out[i] = strings.TrimSpace(row[i])
	}
	return out
}

// Workbook is an opened spreadsheet file with its sheets in file order.
type Workbook struct {
	Path   string
	sheets []*Sheet
}

// New assembles a workbook from sheets already in memory.
func New(path string, sheets ...*Sheet) *Workbook {
	return &Workbook{Path: path, sheets: sheets}
}

// SheetNames returns the sheet names in file order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.Name
	}
	return names
}

// NumSheets returns the number of sheets.
func (w *Workbook) NumSheets() int {
	return len(w.sheets)
}

// HasSheet reports whether a sheet with exactly this name exists.
func (w *Workbook) HasSheet(name string) bool {
	for _, s := range w.sheets {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Sheet returns the sheet with the given name. A missing sheet is a
// structural error.
func (w *Workbook) Sheet(name string) (*Sheet, error) {
	for _, s := range w.sheets {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, apperrors.NewStructuralError(fmt.Sprintf("worksheet %q not found", name), nil).
		WithContext("file", w.Path)
}

// SheetAt returns the i-th sheet.
func (w *Workbook) SheetAt(i int) (*Sheet, error) {
	if i < 0 || i >= len(w.sheets) {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("worksheet %d not found", i), nil).
			WithContext("file", w.Path)
	}
	return w.sheets[i], nil
}
