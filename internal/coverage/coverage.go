// Package coverage summarises which metal forms exist per site and year.
package coverage

import (
	"slices"

	"napsidx/internal/exporter"
	"napsidx/internal/index"
)

// Cell values besides the analyte forms themselves.
const (
	Both         = "Both"
	NotAvailable = "n/a"
)

// Row is one site of the report. Cells align with Report.Years.
type Row struct {
	SiteID      int      `json:"site_id"`
	StationName string   `json:"station_name"`
	Cells       []string `json:"cells"`
}

// Report is the site by year coverage table.
type Report struct {
	Years []int `json:"years"`
	Rows  []Row `json:"rows"`
	// Unnamed lists sites left out because no station carries their id.
	Unnamed []int `json:"unnamed,omitempty"`
}

// Build tabulates the ICPMS entries of ix, restricted to one analyte when
// analyte is not empty. Years are every year of the index; a cell is Both
// when near-total and water-soluble rows exist, the single form when one
// does and NotAvailable otherwise. Sites are sorted and only those named
// in names are kept.
func Build(ix *index.Index, names map[int]string, analyte string) *Report {
	forms := make(map[int]map[int][]index.AnalyteType)
	for _, e := range ix.Entries() {
		if e.Instrument != index.ICPMS || (analyte != "" && e.Analyte != analyte) {
			continue
		}
		bySite, ok := forms[e.SiteID]
		if !ok {
			bySite = make(map[int][]index.AnalyteType)
			forms[e.SiteID] = bySite
		}
		if !slices.Contains(bySite[e.Year], e.AnalyteType) {
			bySite[e.Year] = append(bySite[e.Year], e.AnalyteType)
		}
	}

	sites := make([]int, 0, len(forms))
	for site := range forms {
		sites = append(sites, site)
	}
	slices.Sort(sites)

	report := &Report{Years: ix.Years()}
	for _, site := range sites {
		name, ok := names[site]
		if !ok {
			report.Unnamed = append(report.Unnamed, site)
			continue
		}
		row := Row{SiteID: site, StationName: name, Cells: make([]string, len(report.Years))}
		for i, year := range report.Years {
			row.Cells[i] = cell(forms[site][year])
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

func cell(forms []index.AnalyteType) string {
	switch len(forms) {
	case 0:
		return NotAvailable
	case 1:
		return string(forms[0])
	default:
		return Both
	}
}

// Header returns the CSV header: station_name, site_id, then the years.
func (r *Report) Header() []string {
	header := []string{"station_name", "site_id"}
	for _, y := range r.Years {
		header = append(header, exporter.FormatInt(y))
	}
	return header
}

// Records returns the report body in Header order.
func (r *Report) Records() [][]string {
	records := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		records[i] = append([]string{row.StationName, exporter.FormatInt(row.SiteID)}, row.Cells...)
	}
	return records
}

// Write saves the report as CSV.
func (r *Report) Write(w *exporter.CSVWriter, path string) error {
	return w.WriteSimpleCSV(path, r.Header(), r.Records())
}
