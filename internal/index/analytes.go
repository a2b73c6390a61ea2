package index

import (
	"slices"
	"strings"

	"napsidx/internal/dataprocessing"
	"napsidx/internal/workbook"
)

// AnalytesLegacy lists the tracked analytes of a pre-2010 sheet that have at
// least one value below the header, sorted and lower-cased. Detection-limit
// columns are ignored.
func AnalytesLegacy(sheet *workbook.Sheet, year int, instrument Instrument) ([]string, error) {
	header, err := workbook.FindHeaderRow(sheet, workbook.LegacyMarkers, workbook.LegacyHeaderOffset(year))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, column := range columnsWithContent(sheet, header) {
		if dataprocessing.IsMDLColumn(column) {
			continue
		}
		names = append(names, strings.ToLower(strings.TrimSpace(column)))
	}
	return tracked(names, Whitelist(instrument)), nil
}

// AnalytesModern lists the tracked analytes of a 2010+ sheet. Flag and
// detection-limit columns are ignored and the symbol in parentheses is
// dropped, so "Aluminum (Al)" becomes "aluminum".
func AnalytesModern(sheet *workbook.Sheet, analyteType AnalyteType) ([]string, error) {
	header, err := workbook.FindHeaderRow(sheet, workbook.ModernMarkers, 0)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, column := range columnsWithContent(sheet, header) {
		if dataprocessing.IsMDLColumn(column) || strings.Contains(column, "Flag") {
			continue
		}
		names = append(names, dataprocessing.CanonicalAnalyte(column))
	}
	return tracked(names, Whitelist(InstrumentFor(analyteType))), nil
}

// columnsWithContent returns the header of every column holding at least one
// non-empty cell below the header row.
func columnsWithContent(sheet *workbook.Sheet, header int) []string {
	var out []string
	for c := 0; c < sheet.Width(); c++ {
		for r := header + 1; r < sheet.NumRows(); r++ {
			if sheet.Cell(r, c) != "" {
				out = append(out, sheet.Cell(header, c))
				break
			}
		}
	}
	return out
}

func tracked(names, whitelist []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if slices.Contains(whitelist, n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
