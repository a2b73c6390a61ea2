package exporter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
)

// GroupExporter writes one CSV per group key, e.g. one file per site or per
// analyte.
type GroupExporter struct {
	csvWriter *CSVWriter
}

// NewGroupExporter creates a new grouped exporter
func NewGroupExporter(w *CSVWriter) *GroupExporter {
	return &GroupExporter{csvWriter: w}
}

// Group is the content of one output file.
type Group struct {
	Key     string
	Records [][]string
}

// ExportGroups writes each non-empty group to outputDir/filename(key) with
// the shared headers. Records inside a group are sorted on sortColumn
// (string order, stable) when sortColumn >= 0. It returns the files written.
func (g *GroupExporter) ExportGroups(outputDir string, headers []string, groups []Group, filename func(key string) string, sortColumn int) ([]string, error) {
	ordered := slices.Clone(groups)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })

	var written []string
	for _, group := range ordered {
		if len(group.Records) == 0 {
			continue
		}

		records := group.Records
		if sortColumn >= 0 {
			records = slices.Clone(records)
			sort.SliceStable(records, func(i, j int) bool {
				return cell(records[i], sortColumn) < cell(records[j], sortColumn)
			})
		}

		path := filepath.Join(outputDir, filename(group.Key))
		if err := g.stream(path, headers, records); err != nil {
			return written, fmt.Errorf("failed to write file for %s: %w", group.Key, err)
		}
		g.csvWriter.logger.Debug("group exported",
			slog.String("key", group.Key),
			slog.String("file", path),
			slog.Int("records", len(records)))
		written = append(written, path)
	}
	return written, nil
}

// stream writes one group record by record.
func (g *GroupExporter) stream(path string, headers []string, records [][]string) error {
	sw, err := g.csvWriter.CreateStreamWriter(path, headers)
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := sw.WriteRecord(record); err != nil {
			sw.Close()
			return err
		}
	}
	return sw.Close()
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}
