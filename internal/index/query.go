package index

import (
	"slices"
)

// Index answers availability questions over a loaded set of entries.
type Index struct {
	entries []Entry
}

// New wraps entries. The slice is copied.
func New(entries []Entry) *Index {
	return &Index{entries: slices.Clone(entries)}
}

// Open loads the index from its store.
func Open(store *Store) (*Index, error) {
	entries, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Index{entries: entries}, nil
}

// Entries returns a copy of every entry.
func (ix *Index) Entries() []Entry {
	return slices.Clone(ix.entries)
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// AllIons returns every ion in the index, sorted.
func (ix *Index) AllIons() []string {
	return ix.analytesFor(IC)
}

// AllMetals returns every metal in the index, sorted.
func (ix *Index) AllMetals() []string {
	return ix.analytesFor(ICPMS)
}

func (ix *Index) analytesFor(instrument Instrument) []string {
	var out []string
	for _, e := range ix.entries {
		if e.Instrument == instrument {
			out = append(out, e.Analyte)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Filter narrows a query. Zero fields match everything.
type Filter struct {
	Analyte     string
	AnalyteType AnalyteType
	SiteID      int
}

func (f Filter) match(e Entry) bool {
	return (f.Analyte == "" || e.Analyte == f.Analyte) &&
		(f.AnalyteType == "" || e.AnalyteType == f.AnalyteType) &&
		(f.SiteID == 0 || e.SiteID == f.SiteID)
}

// SitesForYear returns the sorted, distinct sites with data in year.
func (ix *Index) SitesForYear(year int, f Filter) []int {
	var out []int
	for _, e := range ix.entries {
		if e.Year == year && f.match(e) {
			out = append(out, e.SiteID)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// YearsForSite returns the distinct years in which a site measured an
// analyte in the given form, in index order.
func (ix *Index) YearsForSite(siteID int, analyte string, analyteType AnalyteType) []int {
	var out []int
	for _, e := range ix.entries {
		if e.SiteID == siteID && e.Analyte == analyte && e.AnalyteType == analyteType &&
			!slices.Contains(out, e.Year) {
			out = append(out, e.Year)
		}
	}
	return out
}

// AllYearsMetadata returns the entries of an analyte measured by an
// instrument, optionally narrowed by form and site.
func (ix *Index) AllYearsMetadata(analyte string, instrument Instrument, f Filter) []Entry {
	f.Analyte = analyte
	var out []Entry
	for _, e := range ix.entries {
		if e.Instrument == instrument && f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Combination is an index entry without the analyte: one sampled
// (year, site, form) with its frequency.
type Combination struct {
	Year        int
	SiteID      int
	AnalyteType AnalyteType
	Instrument  Instrument
	Frequency   int
}

func (e Entry) combination() Combination {
	return Combination{
		Year:        e.Year,
		SiteID:      e.SiteID,
		AnalyteType: e.AnalyteType,
		Instrument:  e.Instrument,
		Frequency:   e.Frequency,
	}
}

// AllYearsPM25Metadata returns the distinct (year, site, form, instrument,
// frequency) rows of an instrument. An empty analyteType or sites list
// matches everything.
func (ix *Index) AllYearsPM25Metadata(instrument Instrument, analyteType AnalyteType, sites []int) []Combination {
	return ix.combinations(func(e Entry) bool {
		return e.Instrument == instrument &&
			(analyteType == "" || e.AnalyteType == analyteType) &&
			(len(sites) == 0 || slices.Contains(sites, e.SiteID))
	})
}

// Combinations returns the distinct sampled (site, form) pairs of a year.
func (ix *Index) Combinations(year int) []Combination {
	return ix.combinations(func(e Entry) bool { return e.Year == year })
}

func (ix *Index) combinations(keep func(Entry) bool) []Combination {
	var out []Combination
	seen := make(map[Combination]struct{})
	for _, e := range ix.entries {
		if !keep(e) {
			continue
		}
		c := e.combination()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Forms returns the analyte forms sampled at a site in a year, in
// NT, WS, total order.
func (ix *Index) Forms(year, siteID int) []AnalyteType {
	var out []AnalyteType
	for _, t := range AnalyteTypes() {
		for _, e := range ix.entries {
			if e.Year == year && e.SiteID == siteID && e.AnalyteType == t {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Years returns the distinct years in the index, sorted.
func (ix *Index) Years() []int {
	var out []int
	for _, e := range ix.entries {
		out = append(out, e.Year)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
