package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"napsidx/internal/dataprocessing"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/index"
	"napsidx/internal/infrastructure"
	"napsidx/internal/workbook"
)

// SheetPM25 holds the gravimetric PM2.5 results of both samplers side by
// side.
const SheetPM25 = "PM2.5"

// Samplers of the 2010+ workbooks. Near-total metals come from the first
// sampler and water-soluble metals from the second.
const (
	Sampler1 = "S-1"
	Sampler2 = "S-2"
)

const (
	siteHeader  = "NAPS Site ID"
	samplerCell = "D1"
)

// PM25Columns are the PM2.5 sheet fields kept for one sampler, in sheet
// order.
var PM25Columns = []string{
	"NAPS Site ID", "Sampling Date", "Sample Type",
	"PM2.5", "PM2.5-MDL", "PM2.5-Vflag",
	"Pres.", "Temp.", "Start Time", "End Time", "Actual Volume",
}

var joinKeys = []string{ColSiteID, ColSamplingDate, ColSamplingType, ColSampler}

var samplerPattern = regexp.MustCompile(`^S-\d+$`)

// SamplerFor returns the sampler of a metal form and the one to mask out
// of the PM2.5 sheet.
func SamplerFor(t index.AnalyteType) (use, mask string) {
	if t == index.WaterSoluble {
		return Sampler2, Sampler1
	}
	return Sampler1, Sampler2
}

// Modern extracts the multi-sheet .xlsx workbooks of 2010 onwards.
type Modern struct {
	mapping *dataprocessing.ColumnMapping
	open    index.Opener
	logger  *slog.Logger
}

// NewModern creates a modern extractor.
func NewModern(mapping *dataprocessing.ColumnMapping, open index.Opener, logger *slog.Logger) *Modern {
	return &Modern{
		mapping: mapping,
		open:    open,
		logger:  infrastructure.WithComponent(logger, "modern_extractor"),
	}
}

// Extract reads one site's workbook. Every requested metal form is joined
// with its sampler's PM2.5 results and stacked into Metals; the ion sheet,
// when present, becomes Ions. A missing sheet or marker skips that part
// only; an unreadable workbook skips everything.
func (m *Modern) Extract(ctx context.Context, path string, year, siteID int, forms []index.AnalyteType) (*Result, error) {
	res := &Result{Year: year, SiteID: siteID}
	name := filepath.Base(path)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb, err := m.open(path)
	if err != nil {
		res.skip(ctx, m.logger, name, err)
		return res, nil
	}

	for _, form := range forms {
		if form == index.Total {
			continue
		}
		table, err := m.metals(wb, form)
		if err != nil {
			res.skip(ctx, m.logger, name, fmt.Errorf("%s: %w", index.SheetFor(form), err))
			continue
		}
		res.Metals = res.Metals.Concat(table)
		m.logger.DebugContext(ctx, "metal sheet extracted",
			slog.String("file", name),
			slog.String("analyte_type", string(form)),
			slog.Int("rows", table.Len()))
	}

	if wb.HasSheet(index.SheetIons) {
		table, err := m.ions(wb)
		if err != nil {
			res.skip(ctx, m.logger, name, fmt.Errorf("%s: %w", index.SheetIons, err))
		} else {
			res.Ions = table
		}
	}
	return res, nil
}

func (m *Modern) metals(wb *workbook.Workbook, form index.AnalyteType) (*Table, error) {
	sheet, err := wb.Sheet(index.SheetFor(form))
	if err != nil {
		return nil, err
	}
	pmSheet, err := wb.Sheet(SheetPM25)
	if err != nil {
		return nil, err
	}

	pm, err := pm25Table(pmSheet, form)
	if err != nil {
		return nil, err
	}
	pm.Rename(m.mapping)
	normalizeDates(pm)

	use, _ := SamplerFor(form)
	if s, _ := sheet.CellRef(samplerCell); s != use {
		return nil, apperrors.NewStructuralError(
			fmt.Sprintf("%s sheet sampler %q, want %s", sheet.Name, s, use), nil)
	}
	metal, err := analyteTable(sheet, form)
	if err != nil {
		return nil, err
	}
	metal.Rename(m.mapping)
	normalizeDates(metal)

	return innerJoin(pm, metal, joinKeys)
}

func (m *Modern) ions(wb *workbook.Workbook) (*Table, error) {
	sheet, err := wb.Sheet(index.SheetIons)
	if err != nil {
		return nil, err
	}
	t, err := analyteTable(sheet, index.Total)
	if err != nil {
		return nil, err
	}
	t.Rename(m.mapping)
	normalizeDates(t)
	return t, nil
}

// pm25Table keeps the PM2.5 columns of one sampler: a column is dropped
// when its first cell names the other sampler or its header cell is empty.
// Exactly the PM25Columns must remain.
func pm25Table(sheet *workbook.Sheet, form index.AnalyteType) (*Table, error) {
	header, err := workbook.FindHeaderRow(sheet, workbook.FirstCellIs(siteHeader), 0)
	if err != nil {
		return nil, err
	}
	use, mask := SamplerFor(form)

	var keep []int
	var names []string
	for c := 0; c < sheet.Width(); c++ {
		if sheet.Cell(0, c) == mask || sheet.Cell(header, c) == "" {
			continue
		}
		keep = append(keep, c)
		names = append(names, sheet.Cell(header, c))
	}
	if !slices.Equal(names, PM25Columns) {
		return nil, apperrors.NewStructuralError(
			fmt.Sprintf("PM2.5 sheet for sampler %s has columns [%s]", use, strings.Join(names, ", ")), nil).
			WithContext("expected", PM25Columns)
	}

	t := NewTable(names...)
	for r := header + 1; r < sheet.NumRows(); r++ {
		if sheet.Cell(r, 0) == "" {
			continue
		}
		row := make([]string, len(keep))
		for i, c := range keep {
			row[i] = sheet.Cell(r, c)
		}
		t.Rows = append(t.Rows, row)
	}
	t.SetColumn(ColSampler, use)
	return t, nil
}

// analyteTable reads a metal or ion sheet below its header row and tags it
// with the sampler named in D1 and the analyte form.
func analyteTable(sheet *workbook.Sheet, form index.AnalyteType) (*Table, error) {
	sampler, err := sheet.CellRef(samplerCell)
	if err != nil {
		return nil, err
	}
	if !samplerPattern.MatchString(sampler) {
		return nil, apperrors.NewStructuralError(
			fmt.Sprintf("worksheet %q has no sampler in %s (found %q)", sheet.Name, samplerCell, sampler), nil)
	}

	header, err := workbook.FindHeaderRow(sheet, workbook.FirstCellIs(siteHeader), 0)
	if err != nil {
		return nil, err
	}
	raw, err := sheet.TableFrom(header)
	if err != nil {
		return nil, err
	}

	var keep []int
	for c, h := range raw.Header {
		if h != "" {
			keep = append(keep, c)
		}
	}
	t := NewTable()
	for _, c := range keep {
		t.Header = append(t.Header, raw.Header[c])
	}
	for _, row := range raw.Rows {
		if row[0] == "" {
			continue
		}
		r := make([]string, len(keep))
		for i, c := range keep {
			r[i] = row[c]
		}
		t.Rows = append(t.Rows, r)
	}
	t.SetColumn(ColSampler, sampler)
	t.SetColumn(ColAnalyteType, string(form))
	return t, nil
}

// normalizeDates rewrites readable sampling dates as YYYY-MM-DD.
func normalizeDates(t *Table) {
	c := t.Column(ColSamplingDate)
	if c < 0 {
		return
	}
	for _, row := range t.Rows {
		if d, err := workbook.ParseDate(row[c]); err == nil {
			row[c] = workbook.FormatDate(d)
		}
	}
}

// innerJoin pairs every left row with the right rows sharing its keys, in
// left order. Right columns already present on the left are dropped.
func innerJoin(left, right *Table, keys []string) (*Table, error) {
	lk, err := workbook.ExpectColumns(left.Header, keys...)
	if err != nil {
		return nil, err
	}
	rk, err := workbook.ExpectColumns(right.Header, keys...)
	if err != nil {
		return nil, err
	}

	var extra []int
	header := slices.Clone(left.Header)
	for c, h := range right.Header {
		if !slices.Contains(header, h) {
			extra = append(extra, c)
			header = append(header, h)
		}
	}

	key := func(row []string, cols []int) string {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = row[c]
		}
		return strings.Join(parts, "\x00")
	}
	byKey := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		k := key(row, rk)
		byKey[k] = append(byKey[k], i)
	}

	out := NewTable(header...)
	for _, lrow := range left.Rows {
		for _, i := range byKey[key(lrow, lk)] {
			row := slices.Clone(lrow)
			for _, c := range extra {
				row = append(row, right.Rows[i][c])
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
