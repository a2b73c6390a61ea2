// Package stations extracts the NAPS station listing into the station
// metadata CSV and reads it back for the coverage report, the catalog and
// the query API.
package stations

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"napsidx/internal/config"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
	"napsidx/internal/infrastructure"
	"napsidx/internal/workbook"
)

// Columns are the raw listing fields kept, in output order.
var Columns = []string{
	"NAPS_ID", "Station_Name", "Status", "City",
	"Latitude", "Longitude", "Elevation", "Start_Year", "End_Year", "Combined_Stations",
	"SO2", "CO", "NO2", "NO", "NOX", "O3", "PM_25_Continuous", "PM_10_Continuous",
	"PM_2.5_RM", "PM10-2.5", "PM2.5_Speciation", "VOC", "Carbonyl", "PAH",
	"Site_Type", "Urbanization", "Neighbourhood", "Land_Use", "Scale",
}

var renames = map[string]string{
	"NAPS_ID":      "site_id",
	"Station_Name": "station_name",
	"Site_Type":    "site_type",
	"Land_Use":     "land_use",
}

// Header returns the station metadata CSV header.
func Header() []string {
	header := make([]string, len(Columns))
	for i, c := range Columns {
		if r, ok := renames[c]; ok {
			c = r
		}
		header[i] = c
	}
	return header
}

// Extractor converts the raw station listing.
type Extractor struct {
	paths  *config.Paths
	writer *exporter.CSVWriter
	bounds config.StationsConfig
	logger *slog.Logger
}

// NewExtractor creates an extractor reading paths.StationsRawCSV.
func NewExtractor(paths *config.Paths, writer *exporter.CSVWriter, bounds config.StationsConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		paths:  paths,
		writer: writer,
		bounds: bounds,
		logger: infrastructure.WithComponent(logger, "stations"),
	}
}

// Skip reports whether a raw row lies outside the station table.
func (e *Extractor) Skip(row int) bool {
	return row < e.bounds.HeaderRow || row == e.bounds.SkipRow || row > e.bounds.LastRow
}

// Extract writes the station metadata CSV and returns the number of
// stations written.
func (e *Extractor) Extract(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	frame, err := exporter.ReadCSVWith(e.paths.StationsRawCSV, exporter.ReadOptions{Skip: e.Skip})
	if err != nil {
		return 0, err
	}
	cols, err := workbook.ExpectColumns(frame.Header, Columns...)
	if err != nil {
		return 0, err
	}

	records := make([][]string, 0, len(frame.Records))
	for _, rec := range frame.Records {
		out := make([]string, len(cols))
		for i, c := range cols {
			if c < len(rec) {
				out[i] = rec[c]
			}
		}
		records = append(records, out)
	}

	if err := e.writer.WriteSimpleCSV(e.paths.StationsCSV, Header(), records); err != nil {
		return 0, err
	}
	e.logger.InfoContext(ctx, "station metadata written",
		slog.String("file", e.paths.StationsCSV),
		slog.Int("stations", len(records)))
	if len(records) > 0 {
		e.logger.DebugContext(ctx, "station range",
			slog.String("first", records[0][0]),
			slog.String("last", records[len(records)-1][0]))
	}
	return len(records), nil
}

// Station is one row of the station metadata CSV. Attributes holds every
// column by its output name, including those mapped to fields.
type Station struct {
	SiteID        int               `json:"site_id"`
	Name          string            `json:"station_name"`
	Status        string            `json:"status,omitempty"`
	City          string            `json:"city,omitempty"`
	Latitude      *float64          `json:"latitude,omitempty"`
	Longitude     *float64          `json:"longitude,omitempty"`
	Elevation     *float64          `json:"elevation,omitempty"`
	StartYear     *int              `json:"start_year,omitempty"`
	EndYear       *int              `json:"end_year,omitempty"`
	SiteType      string            `json:"site_type,omitempty"`
	Urbanization  string            `json:"urbanization,omitempty"`
	Neighbourhood string            `json:"neighbourhood,omitempty"`
	LandUse       string            `json:"land_use,omitempty"`
	Scale         string            `json:"scale,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Directory is the station metadata keyed by site.
type Directory struct {
	stations []Station
	byID     map[int]int
}

// NewDirectory indexes stations by site. The first row of a duplicated
// site wins.
func NewDirectory(stations []Station) *Directory {
	d := &Directory{byID: make(map[int]int, len(stations))}
	for _, s := range stations {
		if _, dup := d.byID[s.SiteID]; dup {
			continue
		}
		d.byID[s.SiteID] = len(d.stations)
		d.stations = append(d.stations, s)
	}
	return d
}

// Load reads the station metadata CSV.
func Load(path string) (*Directory, error) {
	frame, err := exporter.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if _, err := workbook.ExpectColumns(frame.Header, "site_id", "station_name"); err != nil {
		return nil, err
	}

	stations := make([]Station, 0, len(frame.Records))
	for i := range frame.Records {
		id, err := strconv.Atoi(frame.Value(i, "site_id"))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("stations line %d: site_id", i+2), err).
				WithContext("file", path)
		}
		attrs := make(map[string]string, len(frame.Header))
		for _, h := range frame.Header {
			attrs[h] = frame.Value(i, h)
		}
		stations = append(stations, Station{
			SiteID:        id,
			Name:          attrs["station_name"],
			Status:        attrs["Status"],
			City:          attrs["City"],
			Latitude:      exporter.ParseOptionalFloat(attrs["Latitude"]),
			Longitude:     exporter.ParseOptionalFloat(attrs["Longitude"]),
			Elevation:     exporter.ParseOptionalFloat(attrs["Elevation"]),
			StartYear:     optionalInt(attrs["Start_Year"]),
			EndYear:       optionalInt(attrs["End_Year"]),
			SiteType:      attrs["site_type"],
			Urbanization:  attrs["Urbanization"],
			Neighbourhood: attrs["Neighbourhood"],
			LandUse:       attrs["land_use"],
			Scale:         attrs["Scale"],
			Attributes:    attrs,
		})
	}
	return NewDirectory(stations), nil
}

// optionalInt also accepts "1974.0".
func optionalInt(s string) *int {
	f := exporter.ParseOptionalFloat(s)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// Lookup returns the station of a site.
func (d *Directory) Lookup(siteID int) (Station, bool) {
	i, ok := d.byID[siteID]
	if !ok {
		return Station{}, false
	}
	return d.stations[i], true
}

// Get is Lookup returning a NOT_FOUND error.
func (d *Directory) Get(siteID int) (Station, error) {
	s, ok := d.Lookup(siteID)
	if !ok {
		return Station{}, apperrors.NewNotFoundError(fmt.Sprintf("station %d", siteID))
	}
	return s, nil
}

// All returns the stations in file order.
func (d *Directory) All() []Station {
	return slices.Clone(d.stations)
}

// Len returns the number of stations.
func (d *Directory) Len() int {
	return len(d.stations)
}

// Names maps site to station name.
func (d *Directory) Names() map[int]string {
	names := make(map[int]string, len(d.stations))
	for _, s := range d.stations {
		names[s.SiteID] = s.Name
	}
	return names
}
