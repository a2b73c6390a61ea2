package workbook

import (
	"fmt"
	"slices"
	"strings"

	apperrors "napsidx/internal/errors"
)

// ErrHeaderNotFound matches the structural error returned when no row of a
// sheet satisfies the header markers.
var ErrHeaderNotFound = apperrors.ErrStructural

// Matcher decides whether a row is a header row.
type Matcher func(row []string) bool

// LegacyMarkers matches a pre-2010 header: one cell mentions "date" and one
// mentions "naps id", ignoring case.
func LegacyMarkers(row []string) bool {
	var hasDate, hasSite bool
	for _, cell := range row {
		v := strings.ToLower(cell)
		if strings.Contains(v, "date") {
			hasDate = true
		}
		if strings.Contains(v, "naps id") {
			hasSite = true
		}
	}
	return hasDate && hasSite
}

// ModernMarkers matches a 2010+ header: cells equal to "NAPS Site ID" and
// "Sampling Date", ignoring case.
func ModernMarkers(row []string) bool {
	lower := make([]string, len(row))
	for i, cell := range row {
		lower[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	return slices.Contains(lower, "naps site id") && slices.Contains(lower, "sampling date")
}

// FirstCellIs matches rows whose column A equals value exactly.
func FirstCellIs(value string) Matcher {
	return func(row []string) bool {
		return len(row) > 0 && strings.TrimSpace(row[0]) == value
	}
}

// FindHeaderRow returns the index of the first row at or after from that
// satisfies match.
func FindHeaderRow(sheet *Sheet, match Matcher, from int) (int, error) {
	for r := max(from, 0); r < sheet.NumRows(); r++ {
		if match(sheet.Rows[r]) {
			return r, nil
		}
	}
	return -1, apperrors.NewStructuralError(fmt.Sprintf("no header row in worksheet %q", sheet.Name), nil).
		WithContext("sheet", sheet.Name).
		WithContext("from_row", from)
}

// LegacyHeaderOffset is the row where the header scan starts in a
// pre-2010 workbook. The 2009 files carry an extra title row.
func LegacyHeaderOffset(year int) int {
	if year == 2009 {
		return 2
	}
	return 1
}

// ExpectColumns checks that every required name is present in header and
// returns their positions in the order requested.
func ExpectColumns(header []string, required ...string) ([]int, error) {
	idx := make([]int, len(required))
	var missing []string
	for i, name := range required {
		idx[i] = slices.Index(header, name)
		if idx[i] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewStructuralError(
			fmt.Sprintf("missing columns %s", strings.Join(missing, ", ")), nil).
			WithContext("header", header)
	}
	return idx, nil
}
