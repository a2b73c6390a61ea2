package index

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
)

// Header is the exact column list of the master index CSV.
var Header = []string{"year", "site_id", "analyte", "analyte_type", "instrument", "frequency"}

// Store reads and writes the master index CSV as a whole.
type Store struct {
	path   string
	writer *exporter.CSVWriter
}

// NewStore creates a store for the CSV at path.
func NewStore(path string, writer *exporter.CSVWriter) *Store {
	return &Store{path: path, writer: writer}
}

// Path returns the CSV location.
func (s *Store) Path() string {
	return s.path
}

// Load reads every entry, validating the enumerations.
func (s *Store) Load() ([]Entry, error) {
	frame, err := exporter.ReadCSV(s.path)
	if err != nil {
		return nil, err
	}
	if strings.Join(frame.Header, ",") != strings.Join(Header, ",") {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("unexpected index header %v", frame.Header), nil).WithContext("file", s.path)
	}

	entries := make([]Entry, 0, len(frame.Records))
	for i, rec := range frame.Records {
		e, err := parseEntry(rec)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("index line %d", i+2), err).
				WithContext("file", s.path)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Save replaces the CSV with entries in the given order.
func (s *Store) Save(entries []Entry) error {
	records := make([][]string, len(entries))
	for i, e := range entries {
		records[i] = []string{
			exporter.FormatInt(e.Year),
			exporter.FormatInt(e.SiteID),
			e.Analyte,
			string(e.AnalyteType),
			string(e.Instrument),
			exporter.FormatInt(e.Frequency),
		}
	}
	return s.writer.WriteSimpleCSV(s.path, Header, records)
}

func parseEntry(rec []string) (Entry, error) {
	if len(rec) != len(Header) {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(rec))
	}
	year, err := strconv.Atoi(rec[0])
	if err != nil {
		return Entry{}, fmt.Errorf("year: %w", err)
	}
	site, err := strconv.Atoi(rec[1])
	if err != nil {
		return Entry{}, fmt.Errorf("site_id: %w", err)
	}
	analyteType, err := ParseAnalyteType(rec[3])
	if err != nil {
		return Entry{}, err
	}
	instrument, err := ParseInstrument(rec[4])
	if err != nil {
		return Entry{}, err
	}
	freq, err := parseFrequency(rec[5])
	if err != nil {
		return Entry{}, fmt.Errorf("frequency: %w", err)
	}
	return Entry{
		Year:        year,
		SiteID:      site,
		Analyte:     rec[2],
		AnalyteType: analyteType,
		Instrument:  instrument,
		Frequency:   freq,
	}, nil
}

// parseFrequency also accepts "3.0", which older index files contain.
func parseFrequency(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
