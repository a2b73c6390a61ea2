// Package continuous reshapes the yearly hourly PM2.5 files, one row per
// site and day with 24 hour columns, into one time series CSV per site.
package continuous

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"napsidx/internal/config"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
	"napsidx/internal/files"
	"napsidx/internal/infrastructure"
	"napsidx/internal/workbook"
)

// TimeLayout formats sampling_date in the per-site files.
const TimeLayout = "2006-01-02 15:04:05"

// Header of the per-site files.
var Header = []string{"sampling_date", "site_id", "PM2.5"}

// Reading is one hourly value. PM25 is nil when the cell was empty, or
// negative after LoadSite.
type Reading struct {
	Time   time.Time
	SiteID int
	PM25   *float64
}

// Summary totals one reshaping run.
type Summary struct {
	Years    []int
	Readings int
	Written  []string
	Skipped  []string
}

// Extractor reads the raw hourly files and writes the per-site series.
type Extractor struct {
	paths   *config.Paths
	writer  *exporter.CSVWriter
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewExtractor creates an extractor over paths.ContinuousRawDir.
func NewExtractor(paths *config.Paths, writer *exporter.CSVWriter, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Extractor {
	return &Extractor{
		paths:   paths,
		writer:  writer,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "continuous"),
	}
}

// Run reshapes the given years and writes one file per site. When sites is
// empty every site is written. A year whose file is missing or unreadable
// is logged and skipped.
func (e *Extractor) Run(ctx context.Context, years, sites []int) (*Summary, error) {
	available, err := files.NewDiscovery(e.paths.ContinuousRawDir).FindYearFiles(".", FilePrefix)
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	bySite := make(map[int][][]string)
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, ok := available[year]
		if !ok {
			e.skip(ctx, sum, fmt.Sprintf("%s%d.csv", FilePrefix, year), year, apperrors.NewNotFoundError("continuous PM2.5 file"))
			continue
		}
		e.metrics.FileScanned(ctx, "continuous")

		readings, err := ReadYear(file.Path, year)
		if err != nil {
			e.skip(ctx, sum, file.Name, year, err)
			continue
		}
		sum.Years = append(sum.Years, year)
		e.logger.InfoContext(ctx, "continuous year read",
			slog.Int("year", year),
			slog.Int("readings", len(readings)))

		for _, r := range readings {
			if len(sites) > 0 && !slices.Contains(sites, r.SiteID) {
				continue
			}
			bySite[r.SiteID] = append(bySite[r.SiteID], []string{
				r.Time.Format(TimeLayout),
				exporter.FormatInt(r.SiteID),
				exporter.FormatOptionalFloat(r.PM25),
			})
			sum.Readings++
		}
	}

	groups := make([]exporter.Group, 0, len(bySite))
	for site, records := range bySite {
		groups = append(groups, exporter.Group{Key: strconv.Itoa(site), Records: records})
	}
	written, err := exporter.NewGroupExporter(e.writer).ExportGroups(e.paths.ContinuousDir, Header, groups,
		func(key string) string { return key + ".csv" }, 0)
	sum.Written = written
	if err != nil {
		return sum, err
	}
	e.metrics.Rows(ctx, "continuous", sum.Readings)

	e.logger.InfoContext(ctx, "continuous series written",
		slog.Int("sites", len(written)),
		slog.Int("readings", sum.Readings),
		slog.Int("skipped", len(sum.Skipped)))
	return sum, nil
}

func (e *Extractor) skip(ctx context.Context, sum *Summary, file string, year int, err error) {
	sum.Skipped = append(sum.Skipped, file)
	e.metrics.FileSkipped(ctx, "continuous")
	e.logger.ErrorContext(ctx, "skipping file",
		slog.String("file", file),
		slog.Int("year", year),
		slog.String("error", err.Error()))
}

// ReadYear reads one raw file and melts it into hourly readings, H01 being
// hour 0. Rows without a numeric site or a readable date are dropped.
func ReadYear(path string, year int) ([]Reading, error) {
	layout := LayoutFor(year)
	frame, err := exporter.ReadCSVWith(path, exporter.ReadOptions{
		Skip:    func(row int) bool { return row < layout.SkipLines },
		Decoder: layout.Decoder,
	})
	if err != nil {
		return nil, err
	}
	cols, err := workbook.ExpectColumns(frame.Header, layout.Columns()...)
	if err != nil {
		return nil, err
	}
	if len(frame.Records) == 0 {
		return nil, nil
	}

	dateLayout := DateLayout(cell(frame.Records[0], cols[1]))
	readings := make([]Reading, 0, len(frame.Records)*24)
	for _, rec := range frame.Records {
		site, err := strconv.Atoi(cell(rec, cols[0]))
		if err != nil {
			continue
		}
		day, err := time.Parse(dateLayout, cell(rec, cols[1]))
		if err != nil {
			continue
		}
		for h, c := range cols[2:] {
			readings = append(readings, Reading{
				Time:   day.Add(time.Duration(h) * time.Hour),
				SiteID: site,
				PM25:   exporter.ParseOptionalFloat(cell(rec, c)),
			})
		}
	}
	return readings, nil
}

func cell(rec []string, c int) string {
	if c >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[c])
}

// LoadSite reads a per-site series back, keeping the readings of
// firstYear..lastYear. Negative values mark invalid hours and become nil.
func LoadSite(path string, firstYear, lastYear int) ([]Reading, error) {
	frame, err := exporter.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	cols, err := workbook.ExpectColumns(frame.Header, Header...)
	if err != nil {
		return nil, err
	}

	var readings []Reading
	for i, rec := range frame.Records {
		ts, err := time.Parse(TimeLayout, cell(rec, cols[0]))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d: sampling_date", i+2), err).
				WithContext("file", path)
		}
		if ts.Year() < firstYear || ts.Year() > lastYear {
			continue
		}
		site, err := strconv.Atoi(cell(rec, cols[1]))
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("line %d: site_id", i+2), err).
				WithContext("file", path)
		}
		v := exporter.ParseOptionalFloat(cell(rec, cols[2]))
		if v != nil && *v < 0 {
			v = nil
		}
		readings = append(readings, Reading{Time: ts, SiteID: site, PM25: v})
	}
	return readings, nil
}
