package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"napsidx/internal/archive"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/files"
	"napsidx/internal/frequency"
	"napsidx/internal/infrastructure"
	"napsidx/internal/workbook"
)

// Opener loads a workbook from disk.
type Opener func(path string) (*workbook.Workbook, error)

// Builder scans the speciation archive and produces index entries.
type Builder struct {
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
	open    Opener
}

// Option configures a Builder.
type Option func(*Builder)

// WithOpener replaces the workbook reader, e.g. with in-memory sheets.
func WithOpener(open Opener) Option {
	return func(b *Builder) { b.open = open }
}

// WithMetrics records scan counters.
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// NewBuilder creates a builder reading legacy workbooks with charset.
func NewBuilder(logger *slog.Logger, charset string, opts ...Option) *Builder {
	b := &Builder{
		logger: infrastructure.WithComponent(logger, "index_builder"),
		open:   DefaultOpener(charset),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultOpener picks the BIFF reader for .XLS files and excelize otherwise.
func DefaultOpener(charset string) Opener {
	return func(path string) (*workbook.Workbook, error) {
		if strings.EqualFold(filepath.Ext(path), ".xls") {
			return workbook.OpenLegacy(path, charset)
		}
		return workbook.OpenModern(path)
	}
}

// LegacyForm maps a pre-2010 file kind to what it measures.
func LegacyForm(kind archive.LegacyKind) (AnalyteType, Instrument) {
	switch kind {
	case archive.LegacyWaterSoluble:
		return WaterSoluble, ICPMS
	case archive.LegacyIons:
		return Total, IC
	default:
		return NearTotal, ICPMS
	}
}

// Build scans every year under root and returns the index sorted by year,
// site_id and analyte. A year directory that cannot be listed aborts the
// build; a single unreadable file is logged and skipped.
func (b *Builder) Build(ctx context.Context, root string, years []int) ([]Entry, error) {
	var entries []Entry
	seen := make(map[Key]struct{})

	for _, year := range years {
		dir, err := archive.ResolveDirectory(year, archive.PM25)
		if err != nil {
			return nil, err
		}
		full := filepath.Join(root, filepath.FromSlash(dir))
		found, err := files.NewDiscovery(root).FindWorkbooks(filepath.FromSlash(dir), func(name string) bool {
			return archive.IsRelevantFile(name, year)
		})
		if err != nil {
			return nil, err
		}

		b.logger.InfoContext(ctx, "scanning archive year",
			slog.Int("year", year),
			slog.String("dir", dir))

		for _, name := range files.Names(found) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			b.metrics.FileScanned(ctx, "index")

			rows, err := b.scanFile(filepath.Join(full, name), name, year)
			if err != nil {
				b.metrics.FileSkipped(ctx, "index")
				attrs := []any{
					slog.String("file", name),
					slog.Int("year", year),
					slog.String("error", err.Error()),
				}
				if site, perr := archive.SiteIDFromFilename(name); perr == nil {
					attrs = append(attrs, slog.Int("site_id", site))
				}
				b.logger.ErrorContext(ctx, "skipping file", attrs...)
				continue
			}

			for _, e := range rows {
				if _, dup := seen[e.Key()]; dup {
					b.logger.WarnContext(ctx, "duplicate index entry ignored",
						slog.String("file", name),
						slog.Int("year", e.Year),
						slog.Int("site_id", e.SiteID),
						slog.String("analyte", e.Analyte),
						slog.String("analyte_type", string(e.AnalyteType)))
					continue
				}
				seen[e.Key()] = struct{}{}
				entries = append(entries, e)
			}
		}
	}

	Sort(entries)

	undetermined := CountUndetermined(entries)
	if undetermined > 0 {
		b.logger.WarnContext(ctx, "frequency undetermined",
			slog.Int("count", undetermined),
			slog.Int("sentinel", frequency.Undetermined))
	}
	b.metrics.Undetermined(ctx, undetermined)
	b.metrics.IndexSize(ctx, len(entries))

	b.logger.InfoContext(ctx, "index built",
		slog.Int("entries", len(entries)),
		slog.Int("years", len(years)))
	return entries, nil
}

// CountUndetermined returns how many entries carry the sentinel frequency.
func CountUndetermined(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if e.Frequency == frequency.Undetermined {
			n++
		}
	}
	return n
}

func (b *Builder) scanFile(path, name string, year int) ([]Entry, error) {
	siteID, err := archive.SiteIDFromFilename(name)
	if err != nil {
		return nil, err
	}

	wb, err := b.open(path)
	if err != nil {
		return nil, err
	}

	if archive.IsLegacyYear(year) {
		return legacyRows(wb, name, year, siteID)
	}
	return modernRows(wb, year, siteID)
}

// legacyRows builds the entries of one pre-2010 instrument file.
func legacyRows(wb *workbook.Workbook, name string, year, siteID int) ([]Entry, error) {
	kind, ok := archive.ClassifyLegacy(name)
	if !ok {
		return nil, apperrors.NewStructuralError(
			fmt.Sprintf("%s is neither an ICPMS nor an IC file", name), nil)
	}
	analyteType, instrument := LegacyForm(kind)

	sheet, err := wb.SheetAt(0)
	if err != nil {
		return nil, err
	}
	analytes, err := AnalytesLegacy(sheet, year, instrument)
	if err != nil {
		return nil, err
	}
	freq := frequency.Infer(sheet, instrument.frequencyInstrument(), year)

	rows := make([]Entry, 0, len(analytes))
	for _, a := range analytes {
		rows = append(rows, Entry{
			Year:        year,
			SiteID:      siteID,
			Analyte:     a,
			AnalyteType: analyteType,
			Instrument:  instrument,
			Frequency:   freq,
		})
	}
	return rows, nil
}

// modernRows builds the entries of one 2010+ workbook, one group per
// analyte-form worksheet present.
func modernRows(wb *workbook.Workbook, year, siteID int) ([]Entry, error) {
	var rows []Entry
	for _, t := range AnalyteTypes() {
		if !wb.HasSheet(SheetFor(t)) {
			continue
		}
		sheet, err := wb.Sheet(SheetFor(t))
		if err != nil {
			return nil, err
		}
		analytes, err := AnalytesModern(sheet, t)
		if err != nil {
			return nil, err
		}
		freq := frequency.InferModern(sheet)

		for _, a := range analytes {
			rows = append(rows, Entry{
				Year:        year,
				SiteID:      siteID,
				Analyte:     a,
				AnalyteType: t,
				Instrument:  InstrumentFor(t),
				Frequency:   freq,
			})
		}
	}
	return rows, nil
}
