package continuous

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Years covered by the hourly PM2.5 files.
const (
	FirstYear = 2004
	LastYear  = 2019
)

// FilePrefix starts every raw file name, as in PM25_2004.csv.
const FilePrefix = "PM25_"

// Layout describes one generation of the raw hourly files.
type Layout struct {
	// SkipLines precede the header line.
	SkipLines  int
	SiteColumn string
	DateColumn string
	// Bilingual headers repeat each name after "//".
	Bilingual bool
	Decoder   *encoding.Decoder
}

// LayoutFor returns the file layout of a year. Files before 2005 are
// Latin-1 and have English-only headers; later files are bilingual.
func LayoutFor(year int) Layout {
	if year < 2005 {
		return Layout{
			SkipLines:  5,
			SiteColumn: "NAPSID",
			DateColumn: "Date",
			Decoder:    charmap.ISO8859_1.NewDecoder(),
		}
	}
	return Layout{
		SkipLines:  7,
		SiteColumn: "NAPS ID//Identifiant SNPA",
		DateColumn: "Date//Date",
		Bilingual:  true,
	}
}

// HourColumns returns the 24 hourly column names, H01 first.
func (l Layout) HourColumns() []string {
	cols := make([]string, 24)
	for i := range cols {
		cols[i] = fmt.Sprintf("H%02d", i+1)
		if l.Bilingual {
			cols[i] += "//" + cols[i]
		}
	}
	return cols
}

// Columns returns every column a file of this layout must have.
func (l Layout) Columns() []string {
	return append([]string{l.SiteColumn, l.DateColumn}, l.HourColumns()...)
}

// DateLayout picks the date format of a file from a sample cell:
// 2004-01-31 or 20040131.
func DateLayout(sample string) string {
	if strings.Contains(sample, "-") {
		return "2006-01-02"
	}
	return "20060102"
}
