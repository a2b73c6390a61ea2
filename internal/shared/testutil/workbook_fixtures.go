package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetFixture describes one worksheet of a generated workbook. Rows are
// written from A1 downwards; nil cells are left empty.
type SheetFixture struct {
	Name string
	Rows [][]any
}

// WriteWorkbook saves an .xlsx file with the given sheets at path and returns
// the path. Parent directories are created.
func WriteWorkbook(t *testing.T, path string, sheets ...SheetFixture) string {
	t.Helper()

	if len(sheets) == 0 {
		t.Fatalf("WriteWorkbook: at least one sheet is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("WriteWorkbook: rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			t.Fatalf("WriteWorkbook: new sheet %q: %v", sheet.Name, err)
		}

		for r, row := range sheet.Rows {
			for c, value := range row {
				if value == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("WriteWorkbook: %v", err)
				}
				if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
					t.Fatalf("WriteWorkbook: set %s!%s: %v", sheet.Name, cell, err)
				}
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("WriteWorkbook: save: %v", err)
	}
	return path
}

// WriteFile writes content to dir/name, creating dir, and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// Serial returns the 1900-system spreadsheet serial for a calendar date.
func Serial(year, month, day int) float64 {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Sub(epoch).Hours() / 24
}
