package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "napsidx/internal/errors"
)

// DateLayout is the sampling date format written to every output file.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"20060102",
	"2006/01/02",
}

// SerialToDate converts a 1900-system spreadsheet serial to a date. The
// time of day is dropped. OpenModern rejects 1904-system workbooks.
func SerialToDate(v string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return time.Time{}, apperrors.NewParsingError(fmt.Sprintf("%q is not a date serial", v), err)
	}
	if f <= 0 {
		return time.Time{}, apperrors.NewParsingError(fmt.Sprintf("%q is not a date serial", v), nil)
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, apperrors.NewParsingError(fmt.Sprintf("%q is not a date serial", v), err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseDate accepts either a spreadsheet serial or a textual date.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, apperrors.NewParsingError("empty date", nil)
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil && !looksCompact(v) {
		return SerialToDate(v)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, apperrors.NewParsingError(fmt.Sprintf("unrecognised date %q", v), nil)
}

// looksCompact reports whether an all-digit value is a YYYYMMDD date rather
// than a serial. Serials for the archive years have five digits.
func looksCompact(v string) bool {
	return len(v) == 8 && !strings.ContainsAny(v, ".-eE")
}

// FormatDate renders t with DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
