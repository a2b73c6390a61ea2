package workbook

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	apperrors "napsidx/internal/errors"
)

// DefaultCharset is handed to the BIFF reader when none is configured.
const DefaultCharset = "utf-8"

// Open picks the reader from the file extension: .xls is legacy BIFF,
// everything else goes through excelize.
func Open(path string) (*Workbook, error) {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return OpenLegacy(path, DefaultCharset)
	}
	return OpenModern(path)
}

// OpenModern reads every sheet of an .xlsx workbook with raw cell values.
func OpenModern(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("failed to open workbook %s", path), err).
			WithContext("file", path)
	}
	defer f.Close()

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("failed to read workbook properties of %s", path), err).
			WithContext("file", path)
	}
	if props.Date1904 != nil && *props.Date1904 {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("%s uses the 1904 date system", path), nil).
			WithContext("file", path)
	}

	wb := &Workbook{Path: path}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, apperrors.NewStructuralError(fmt.Sprintf("failed to read worksheet %q", name), err).
				WithContext("file", path)
		}
		wb.sheets = append(wb.sheets, &Sheet{Name: name, Rows: rows})
	}
	return wb, nil
}

// OpenLegacy reads every sheet of a BIFF .XLS workbook. The reader panics on
// some malformed records, so a panic is reported as a structural error.
func OpenLegacy(path, charset string) (wb *Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = apperrors.NewStructuralError(fmt.Sprintf("corrupt legacy workbook %s: %v", path, r), nil).
				WithContext("file", path)
		}
	}()

	book, err := xls.Open(path, charset)
	if err != nil {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("failed to open workbook %s", path), err).
			WithContext("file", path)
	}
	if book == nil {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("%s has no workbook stream", path), nil).
			WithContext("file", path)
	}
	if book.NumSheets() == 0 {
		return nil, apperrors.NewStructuralError(fmt.Sprintf("%s has no worksheets", path), nil).
			WithContext("file", path)
	}

	// Drop number formats so date cells come back as serials like they do
	// from excelize. The reader keeps DATEMODE private, so serials are taken
	// as 1900-system.
	for _, xf := range book.Xfs {
		switch x := xf.(type) {
		case *xls.Xf5:
			x.Format = 0
		case *xls.Xf8:
			x.Format = 0
		}
	}

	wb = &Workbook{Path: path}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}
		wb.sheets = append(wb.sheets, &Sheet{Name: ws.Name, Rows: legacyRows(ws)})
	}
	return wb, nil
}

func legacyRows(ws *xls.WorkSheet) [][]string {
	if ws.MaxRow == 0 && legacyRow(ws, 0) == nil {
		return nil
	}
	rows := make([][]string, int(ws.MaxRow)+1)
	for i := range rows {
		rows[i] = legacyRow(ws, i)
	}
	return rows
}

// legacyRow returns nil for rows that are absent from the sheet.
func legacyRow(ws *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := ws.Row(i)
	if row == nil {
		return nil
	}
	last := row.LastCol()
	cells = make([]string, 0, last+1)
	for c := 0; c <= last; c++ {
		v := row.Col(c)
		if v == "FormulaCol" {
			v = ""
		}
		cells = append(cells, strings.TrimSpace(v))
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
