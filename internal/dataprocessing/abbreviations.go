package dataprocessing

import (
	"fmt"
	"sort"
	"strings"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
)

// MDLSuffix marks a method-detection-limit column.
const MDLSuffix = "-MDL"

// Abbreviations maps analyte full names to their short codes.
type Abbreviations struct {
	byName map[string]string
}

// NewAbbreviations builds a table from full name to abbreviation.
func NewAbbreviations(table map[string]string) *Abbreviations {
	a := &Abbreviations{byName: make(map[string]string, len(table))}
	for name, abbr := range table {
		a.byName[name] = abbr
	}
	return a
}

// LoadAbbreviations reads a full_name,abbreviation CSV.
func LoadAbbreviations(path string) (*Abbreviations, error) {
	frame, err := exporter.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if frame.Column("full_name") < 0 || frame.Column("abbreviation") < 0 {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("%s must have full_name and abbreviation columns", path), nil)
	}

	table := make(map[string]string, len(frame.Records))
	for i := range frame.Records {
		name := strings.TrimSpace(frame.Value(i, "full_name"))
		abbr := strings.TrimSpace(frame.Value(i, "abbreviation"))
		if name == "" || abbr == "" {
			continue
		}
		table[name] = abbr
	}
	return NewAbbreviations(table), nil
}

// Abbreviation returns the short code of an analyte.
func (a *Abbreviations) Abbreviation(analyte string) (string, bool) {
	abbr, ok := a.byName[analyte]
	return abbr, ok
}

// MDLColumn returns the detection-limit column of an analyte, e.g.
// "lead" -> "Pb-MDL".
func (a *Abbreviations) MDLColumn(analyte string) (string, error) {
	abbr, ok := a.byName[analyte]
	if !ok {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("abbreviation for %q", analyte))
	}
	return abbr + MDLSuffix, nil
}

// Names returns every known full name, sorted.
func (a *Abbreviations) Names() []string {
	names := make([]string, 0, len(a.byName))
	for n := range a.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsMDLColumn reports whether a header names a detection-limit column.
func IsMDLColumn(column string) bool {
	return strings.Contains(column, MDLSuffix)
}
