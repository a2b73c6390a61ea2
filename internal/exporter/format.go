package exporter

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat formats a measurement with the shortest exact representation,
// so 12.5 stays 12.5 and 3 stays 3.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatInt formats an integer value for CSV output
func FormatInt(i int) string {
	return strconv.Itoa(i)
}

// FormatOptionalFloat renders nil as an empty cell.
func FormatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return FormatFloat(*f)
}

// FormatOptionalInt renders nil as an empty cell.
func FormatOptionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return FormatInt(*i)
}

// ParseOptionalFloat parses a cell, treating blanks and non-numbers as
// missing.
func ParseOptionalFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return nil
	}
	return &f
}
