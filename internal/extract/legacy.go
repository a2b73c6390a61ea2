package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"napsidx/internal/archive"
	"napsidx/internal/dataprocessing"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/index"
	"napsidx/internal/infrastructure"
	"napsidx/internal/workbook"
)

// legacySiteColumn holds the site id in the pre-2010 files. Some rows leave
// it blank.
const legacySiteColumn = "NAPS ID"

// Legacy extracts the per-instrument .XLS files of 2003-2009.
type Legacy struct {
	general *dataprocessing.ColumnMapping
	ions    *dataprocessing.ColumnMapping
	open    index.Opener
	logger  *slog.Logger
}

// NewLegacy creates a legacy extractor. Ion files are renamed with their
// own mapping.
func NewLegacy(general, ions *dataprocessing.ColumnMapping, open index.Opener, logger *slog.Logger) *Legacy {
	return &Legacy{
		general: general,
		ions:    ions,
		open:    open,
		logger:  infrastructure.WithComponent(logger, "legacy_extractor"),
	}
}

// Extract reads the instrument files of one site and year. Near-total and
// water-soluble files are stacked into Metals; the ion file becomes Ions.
// A file that cannot be read is logged and reported in Skipped.
func (l *Legacy) Extract(ctx context.Context, year, siteID int, files []string) (*Result, error) {
	res := &Result{Year: year, SiteID: siteID}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		kind, ok := archive.ClassifyLegacy(name)
		if !ok {
			res.skip(ctx, l.logger, name, apperrors.NewStructuralError(
				fmt.Sprintf("%s is not an instrument file", name), nil))
			continue
		}
		analyteType, _ := index.LegacyForm(kind)

		table, err := l.readFile(path, year, siteID)
		if err != nil {
			res.skip(ctx, l.logger, name, err)
			continue
		}

		if analyteType == index.Total {
			table.Rename(l.ions)
			table.SetColumn(ColAnalyteType, string(index.Total))
			table.SetColumn(ColSampler, "")
			res.Ions = res.Ions.Concat(table)
		} else {
			table.Rename(l.general)
			table.SetColumn(ColAnalyteType, string(analyteType))
			table.SetColumn(ColSampler, "")
			res.Metals = res.Metals.Concat(table)
		}

		l.logger.DebugContext(ctx, "legacy file extracted",
			slog.String("file", name),
			slog.Int("rows", table.Len()))
	}
	return res, nil
}

// readFile turns the first sheet into a table: the header is located from
// the year's offset, rows whose first cell is not a date are dropped, dates
// are formatted as YYYY-MM-DD and the site column is forced to siteID.
func (l *Legacy) readFile(path string, year, siteID int) (*Table, error) {
	wb, err := l.open(path)
	if err != nil {
		return nil, err
	}
	sheet, err := wb.SheetAt(0)
	if err != nil {
		return nil, err
	}
	header, err := workbook.FindHeaderRow(sheet, workbook.LegacyMarkers, workbook.LegacyHeaderOffset(year))
	if err != nil {
		return nil, err
	}
	raw, err := sheet.TableFrom(header)
	if err != nil {
		return nil, err
	}
	cols, err := workbook.ExpectColumns(raw.Header, legacySiteColumn)
	if err != nil {
		return nil, err
	}
	siteCol := cols[0]

	t := NewTable(raw.Header...)
	site := strconv.Itoa(siteID)
	for _, row := range raw.Rows {
		date, err := workbook.ParseDate(row[0])
		if err != nil {
			continue
		}
		row[0] = workbook.FormatDate(date)
		row[siteCol] = site
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
