package extract

import (
	"context"
	"log/slog"
	"path/filepath"

	"napsidx/internal/archive"
	"napsidx/internal/config"
	"napsidx/internal/exporter"
	"napsidx/internal/index"
	"napsidx/internal/infrastructure"
)

// Summary totals one extraction run.
type Summary struct {
	Written []string
	Skipped []Skip
	Rows    int
}

// Runner extracts every (year, site) listed in the index and writes the
// processed tables.
type Runner struct {
	root    string
	paths   *config.Paths
	writer  *exporter.CSVWriter
	legacy  *Legacy
	modern  *Modern
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewRunner creates a runner over the speciation archive at root.
func NewRunner(root string, paths *config.Paths, writer *exporter.CSVWriter, legacy *Legacy, modern *Modern,
	metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Runner {
	return &Runner{
		root:    root,
		paths:   paths,
		writer:  writer,
		legacy:  legacy,
		modern:  modern,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "extract_runner"),
	}
}

// Run extracts the given years. Files that fail are skipped and reported;
// only an unresolvable layout, a write failure or cancellation stops the run.
func (r *Runner) Run(ctx context.Context, ix *index.Index, years []int) (*Summary, error) {
	sum := &Summary{}

	for _, year := range years {
		dir, err := archive.ResolveDirectory(year, archive.PM25)
		if err != nil {
			return sum, err
		}
		dir = filepath.Join(r.root, filepath.FromSlash(dir))

		sites := ix.SitesForYear(year, index.Filter{})
		r.logger.InfoContext(ctx, "extracting year",
			slog.Int("year", year),
			slog.Int("sites", len(sites)))

		for _, site := range sites {
			res, err := r.extractSite(ctx, dir, year, site, ix.Forms(year, site))
			if err != nil {
				return sum, err
			}
			for range res.Skipped {
				r.metrics.FileSkipped(ctx, "extract")
			}
			sum.Skipped = append(sum.Skipped, res.Skipped...)

			if err := r.write(ctx, sum, res.Metals, r.paths.ProcessedCSV(year, site, false), "metals"); err != nil {
				return sum, err
			}
			if err := r.write(ctx, sum, res.Ions, r.paths.ProcessedCSV(year, site, true), "ions"); err != nil {
				return sum, err
			}
		}
	}

	r.logger.InfoContext(ctx, "extraction finished",
		slog.Int("files_written", len(sum.Written)),
		slog.Int("rows", sum.Rows),
		slog.Int("skipped", len(sum.Skipped)))
	return sum, nil
}

func (r *Runner) extractSite(ctx context.Context, dir string, year, site int, forms []index.AnalyteType) (*Result, error) {
	if archive.IsLegacyYear(year) {
		files := make([]string, 0, len(forms))
		for _, f := range forms {
			files = append(files, filepath.Join(dir, archive.LegacyFilename(site, LegacyKind(f))))
			r.metrics.FileScanned(ctx, "extract")
		}
		return r.legacy.Extract(ctx, year, site, files)
	}

	name, err := archive.ResolveFilename(year, site, archive.PM25)
	if err != nil {
		return nil, err
	}
	r.metrics.FileScanned(ctx, "extract")
	return r.modern.Extract(ctx, filepath.Join(dir, name), year, site, forms)
}

func (r *Runner) write(ctx context.Context, sum *Summary, t *Table, path, kind string) error {
	ok, err := t.Write(r.writer, path)
	if err != nil || !ok {
		return err
	}
	sum.Written = append(sum.Written, path)
	sum.Rows += t.Len()
	r.metrics.Rows(ctx, kind, t.Len())
	r.logger.DebugContext(ctx, "processed table written",
		slog.String("file", filepath.Base(path)),
		slog.Int("rows", t.Len()))
	return nil
}

// LegacyKind returns the pre-2010 instrument file suffix of an analyte form.
func LegacyKind(t index.AnalyteType) archive.LegacyKind {
	switch t {
	case index.WaterSoluble:
		return archive.LegacyWaterSoluble
	case index.Total:
		return archive.LegacyIons
	default:
		return archive.LegacyNearTotal
	}
}
