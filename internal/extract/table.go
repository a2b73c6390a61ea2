package extract

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"napsidx/internal/dataprocessing"
	"napsidx/internal/exporter"
	"napsidx/internal/index"
	"napsidx/internal/workbook"
)

// Canonical column names of the processed tables.
const (
	ColSiteID       = "site_id"
	ColSamplingDate = "sampling_date"
	ColSamplingType = "sampling_type"
	ColSampler      = "sampler"
	ColAnalyteType  = "analyte_type"
	// ColCartridge flags blanks in the pre-2010 files.
	ColCartridge = "Cartridge"
	ColPM25      = "PM2.5"
	ColPM25MDL   = "PM2.5-MDL"
)

// Table is a wide per-(year, site) table: one row per sample, one column
// per analyte with {abbr}-MDL companions.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable returns an empty table with the given columns.
func NewTable(header ...string) *Table {
	return &Table{Header: slices.Clone(header)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the index of a column, or -1.
func (t *Table) Column(name string) int {
	return slices.Index(t.Header, name)
}

// Value returns the cell of row r in the named column, or "" when the
// column is absent.
func (t *Table) Value(r int, name string) string {
	c := t.Column(name)
	if c < 0 || c >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][c]
}

// SetColumn fills a column with a constant, appending it when missing.
func (t *Table) SetColumn(name, value string) {
	c := t.Column(name)
	if c < 0 {
		t.Header = append(t.Header, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], value)
		}
		return
	}
	for i := range t.Rows {
		t.Rows[i][c] = value
	}
}

// Rename applies a column mapping to the header.
func (t *Table) Rename(m *dataprocessing.ColumnMapping) {
	t.Header = m.Normalize(t.Header)
}

// Concat returns the rows of t followed by the rows of other over the union
// of both headers. Columns missing on one side are left empty.
func (t *Table) Concat(other *Table) *Table {
	if t == nil {
		return other
	}
	if other == nil {
		return t
	}

	header := slices.Clone(t.Header)
	for _, h := range other.Header {
		if !slices.Contains(header, h) {
			header = append(header, h)
		}
	}

	out := &Table{Header: header, Rows: make([][]string, 0, len(t.Rows)+len(other.Rows))}
	for _, src := range []*Table{t, other} {
		pos := make([]int, len(src.Header))
		for i, h := range src.Header {
			pos[i] = slices.Index(header, h)
		}
		for _, row := range src.Rows {
			r := make([]string, len(header))
			for i, v := range row {
				if i < len(pos) {
					r[pos[i]] = v
				}
			}
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Write saves the table at path. Empty tables are not written and false is
// returned.
func (t *Table) Write(w *exporter.CSVWriter, path string) (bool, error) {
	if t.Len() == 0 {
		return false, nil
	}
	return true, w.WriteSimpleCSV(path, t.Header, t.Rows)
}

// SamplingType classifies a sample.
type SamplingType string

const (
	Regular     SamplingType = "Regular"
	FieldBlank  SamplingType = "FieldBlank"
	TravelBlank SamplingType = "TravelBlank"
)

// ParseSamplingType maps the archive codes FB and TB to blanks. Every
// other code is a regular sample.
func ParseSamplingType(code string) SamplingType {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "FB":
		return FieldBlank
	case "TB":
		return TravelBlank
	default:
		return Regular
	}
}

// IsBlank reports whether a sampling type or cartridge code marks a blank.
func IsBlank(code string) bool {
	return ParseSamplingType(code) != Regular
}

// MeasurementRecord is one observation of one analyte in one sample.
type MeasurementRecord struct {
	SiteID       int
	SamplingDate time.Time
	Analyte      string
	AnalyteForm  index.AnalyteType
	Instrument   index.Instrument
	Sampler      *string
	Value        float64
	ValueFlag    *string
	MDL          *float64
	SamplingType SamplingType
}

// Records melts the table into one record per tracked analyte and sample.
// Cells that are empty or not numeric are dropped, as are rows without a
// readable site, date or analyte form. MDLs are looked up through abbr
// when it is not nil.
func (t *Table) Records(abbr *dataprocessing.Abbreviations) []MeasurementRecord {
	if t.Len() == 0 {
		return nil
	}

	type analyteColumn struct {
		name      string
		value     int
		mdl, flag int
	}
	var columns []analyteColumn
	for i, h := range t.Header {
		if !slices.Contains(index.MeasuredMetals, h) && !slices.Contains(index.MeasuredIons, h) {
			continue
		}
		col := analyteColumn{name: h, value: i, mdl: -1, flag: -1}
		if abbr != nil {
			if a, ok := abbr.Abbreviation(h); ok {
				col.mdl = t.Column(a + dataprocessing.MDLSuffix)
				col.flag = t.Column(a + "-Vflag")
			}
		}
		columns = append(columns, col)
	}

	var out []MeasurementRecord
	for r, row := range t.Rows {
		site, err := strconv.Atoi(t.Value(r, ColSiteID))
		if err != nil {
			continue
		}
		date, err := workbook.ParseDate(t.Value(r, ColSamplingDate))
		if err != nil {
			continue
		}
		form, err := index.ParseAnalyteType(t.Value(r, ColAnalyteType))
		if err != nil {
			continue
		}
		sampling := t.Value(r, ColSamplingType)
		if sampling == "" {
			sampling = t.Value(r, ColCartridge)
		}
		sampler := optional(t.Value(r, ColSampler))

		for _, col := range columns {
			if form == index.Total && !slices.Contains(index.MeasuredIons, col.name) {
				continue
			}
			if form != index.Total && !slices.Contains(index.MeasuredMetals, col.name) {
				continue
			}
			v := exporter.ParseOptionalFloat(row[col.value])
			if v == nil {
				continue
			}
			rec := MeasurementRecord{
				SiteID:       site,
				SamplingDate: date,
				Analyte:      col.name,
				AnalyteForm:  form,
				Instrument:   index.InstrumentFor(form),
				Sampler:      sampler,
				Value:        *v,
				SamplingType: ParseSamplingType(sampling),
			}
			if col.mdl >= 0 {
				rec.MDL = exporter.ParseOptionalFloat(row[col.mdl])
			}
			if col.flag >= 0 {
				rec.ValueFlag = optional(row[col.flag])
			}
			out = append(out, rec)
		}
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
