// Package apportion prepares per-site inputs for positive matrix
// factorization: one concentration series per near-total metal and per
// ion, plus the gravimetric PM2.5 mass of the first sampler. Blanks and
// non-positive values are left out; PM2.5 and ions are converted from
// µg/m³ to ng/m³ to match the metals.
package apportion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"napsidx/internal/archive"
	"napsidx/internal/config"
	"napsidx/internal/dataprocessing"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
	"napsidx/internal/extract"
	"napsidx/internal/index"
	"napsidx/internal/infrastructure"
)

// PM25File is the PM2.5 series written for every site.
const PM25File = "PM2.5_Sampler1.csv"

// MetalFile names the near-total series of a metal.
func MetalFile(analyte string) string {
	return "NT_" + analyte + ".csv"
}

// IonFile names the series of an ion.
func IonFile(ion string) string {
	return "ion_" + ion + ".csv"
}

// Result lists what BuildSite wrote.
type Result struct {
	SiteID  int
	Written []string
	Rows    int
}

// Builder writes the PMF inputs of a site from its processed tables.
type Builder struct {
	paths   *config.Paths
	ix      *index.Index
	abbr    *dataprocessing.Abbreviations
	writer  *exporter.CSVWriter
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger

	frames map[string]*exporter.Frame
}

// NewBuilder creates a builder reading the processed tables below
// paths.ProcessedDir.
func NewBuilder(paths *config.Paths, ix *index.Index, abbr *dataprocessing.Abbreviations, writer *exporter.CSVWriter,
	metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Builder {
	return &Builder{
		paths:   paths,
		ix:      ix,
		abbr:    abbr,
		writer:  writer,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "apportion"),
	}
}

// Build runs BuildSite for every site in turn.
func (b *Builder) Build(ctx context.Context, sites []int) ([]*Result, error) {
	results := make([]*Result, 0, len(sites))
	for _, site := range sites {
		res, err := b.BuildSite(ctx, site)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// BuildSite writes NT_{analyte}.csv, PM2.5_Sampler1.csv and ion_{ion}.csv
// into the site's PMF directory. Series without a single usable value are
// not written. A site absent from the index is NOT_FOUND.
func (b *Builder) BuildSite(ctx context.Context, siteID int) (*Result, error) {
	b.frames = make(map[string]*exporter.Frame)
	defer func() { b.frames = nil }()

	var metals, ions []string
	var ntYears []int
	for _, e := range b.ix.Entries() {
		if e.SiteID != siteID {
			continue
		}
		switch e.AnalyteType {
		case index.NearTotal:
			metals = appendUnique(metals, e.Analyte)
			ntYears = appendUnique(ntYears, e.Year)
		case index.Total:
			ions = appendUnique(ions, e.Analyte)
		}
	}
	if len(metals) == 0 && len(ions) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("site %d in index", siteID))
	}

	res := &Result{SiteID: siteID}
	dir := b.paths.PMFDir(siteID)

	for _, metal := range metals {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		mdl, err := b.abbr.MDLColumn(metal)
		if err != nil {
			b.logger.ErrorContext(ctx, "skipping analyte",
				slog.Int("site_id", siteID),
				slog.String("analyte", metal),
				slog.String("error", err.Error()))
			continue
		}
		records := b.collect(ctx, siteID, b.ix.YearsForSite(siteID, metal, index.NearTotal), false,
			index.NearTotal, metal, func(f *exporter.Frame, r, year int, v float64) []string {
				return []string{f.Value(r, extract.ColSamplingDate), f.Value(r, metal), f.Value(r, mdl)}
			})
		if err := b.write(ctx, res, filepath.Join(dir, MetalFile(metal)),
			[]string{extract.ColSamplingDate, metal, mdl}, records); err != nil {
			return res, err
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	records := b.collect(ctx, siteID, ntYears, false, index.NearTotal, extract.ColPM25,
		func(f *exporter.Frame, r, year int, v float64) []string {
			mdl := ""
			if !archive.IsLegacyYear(year) {
				mdl = nano(f.Value(r, extract.ColPM25MDL))
			}
			return []string{f.Value(r, extract.ColSamplingDate), exporter.FormatFloat(dataprocessing.MicroToNano(v)), mdl}
		})
	if err := b.write(ctx, res, filepath.Join(dir, PM25File),
		[]string{extract.ColSamplingDate, extract.ColPM25, extract.ColPM25MDL}, records); err != nil {
		return res, err
	}

	for _, ion := range ions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		mdl, err := b.abbr.MDLColumn(ion)
		if err != nil {
			b.logger.ErrorContext(ctx, "skipping analyte",
				slog.Int("site_id", siteID),
				slog.String("analyte", ion),
				slog.String("error", err.Error()))
			continue
		}
		records := b.collect(ctx, siteID, b.ix.YearsForSite(siteID, ion, index.Total), true,
			index.Total, ion, func(f *exporter.Frame, r, year int, v float64) []string {
				return []string{f.Value(r, extract.ColSamplingDate),
					exporter.FormatFloat(dataprocessing.MicroToNano(v)), nano(f.Value(r, mdl))}
			})
		if err := b.write(ctx, res, filepath.Join(dir, IonFile(ion)),
			[]string{extract.ColSamplingDate, ion, mdl}, records); err != nil {
			return res, err
		}
	}

	b.metrics.Rows(ctx, "pmf", res.Rows)
	b.logger.InfoContext(ctx, "PMF inputs written",
		slog.Int("site_id", siteID),
		slog.Int("files", len(res.Written)),
		slog.Int("rows", res.Rows))
	return res, nil
}

// collect gathers the usable rows of column over years. A row is usable
// when it has the requested form, is not a blank and its value is
// positive. Pre-2010 PM2.5 carries no blank flag and is not filtered.
func (b *Builder) collect(ctx context.Context, siteID int, years []int, ions bool, form index.AnalyteType, column string,
	row func(f *exporter.Frame, r, year int, v float64) []string) [][]string {
	var records [][]string
	for _, year := range years {
		frame, err := b.frame(b.paths.ProcessedCSV(year, siteID, ions))
		if err != nil {
			b.logger.WarnContext(ctx, "processed table unavailable",
				slog.Int("year", year),
				slog.Int("site_id", siteID),
				slog.String("error", err.Error()))
			continue
		}
		if frame.Column(column) < 0 {
			continue
		}

		blankCol := extract.ColSamplingType
		if archive.IsLegacyYear(year) {
			blankCol = extract.ColCartridge
			if column == extract.ColPM25 {
				blankCol = ""
			}
		}
		for r := range frame.Records {
			if frame.Value(r, extract.ColAnalyteType) != string(form) {
				continue
			}
			if blankCol != "" && extract.IsBlank(frame.Value(r, blankCol)) {
				continue
			}
			v := exporter.ParseOptionalFloat(frame.Value(r, column))
			if v == nil || *v <= 0 {
				continue
			}
			records = append(records, row(frame, r, year, *v))
		}
	}
	return records
}

func (b *Builder) frame(path string) (*exporter.Frame, error) {
	if f, ok := b.frames[path]; ok {
		return f, nil
	}
	f, err := exporter.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	b.frames[path] = f
	return f, nil
}

func (b *Builder) write(ctx context.Context, res *Result, path string, header []string, records [][]string) error {
	if len(records) == 0 {
		return nil
	}
	if err := b.writer.WriteSimpleCSV(path, header, records); err != nil {
		return err
	}
	res.Written = append(res.Written, path)
	res.Rows += len(records)
	b.logger.DebugContext(ctx, "PMF series written",
		slog.String("file", filepath.Base(path)),
		slog.Int("rows", len(records)))
	return nil
}

// nano converts a µg/m³ cell, leaving blanks and non-numbers empty.
func nano(cell string) string {
	v := exporter.ParseOptionalFloat(cell)
	if v == nil {
		return ""
	}
	return exporter.FormatFloat(dataprocessing.MicroToNano(*v))
}

func appendUnique[T comparable](s []T, v T) []T {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}
