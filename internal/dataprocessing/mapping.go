package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
)

// Mapping file headers.
const (
	OldNameColumn = "old_name"
	NewNameColumn = "new_name"
)

// Rename is one row of a mapping file.
type Rename struct {
	Old string
	New string
}

// ColumnMapping renames raw spreadsheet headers to canonical names.
// It is immutable once built.
type ColumnMapping struct {
	renames []Rename
	forward map[string]string
}

// NewColumnMapping builds a mapping from rows in file order. A repeated old
// name keeps its first target.
func NewColumnMapping(renames ...Rename) *ColumnMapping {
	m := &ColumnMapping{forward: make(map[string]string, len(renames))}
	for _, r := range renames {
		if _, dup := m.forward[r.Old]; dup {
			continue
		}
		m.forward[r.Old] = r.New
		m.renames = append(m.renames, r)
	}
	return m
}

// LoadColumnMapping reads an old_name,new_name CSV.
func LoadColumnMapping(path string) (*ColumnMapping, error) {
	frame, err := exporter.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	oldCol, newCol := frame.Column(OldNameColumn), frame.Column(NewNameColumn)
	if oldCol < 0 || newCol < 0 {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("%s must have %s and %s columns", path, OldNameColumn, NewNameColumn), nil)
	}

	renames := make([]Rename, 0, len(frame.Records))
	for i := range frame.Records {
		old := strings.TrimSpace(frame.Value(i, OldNameColumn))
		if old == "" {
			continue
		}
		renames = append(renames, Rename{Old: old, New: strings.TrimSpace(frame.Value(i, NewNameColumn))})
	}
	return NewColumnMapping(renames...), nil
}

// Rename returns the canonical name for one column.
func (m *ColumnMapping) Rename(column string) string {
	if n, ok := m.forward[column]; ok {
		return n
	}
	return column
}

// Normalize renames every column. The input slice is not modified.
func (m *ColumnMapping) Normalize(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = m.Rename(c)
	}
	return out
}

// Inverse maps canonical names back to raw headers. Several raw names may
// share a target; the first one listed wins.
func (m *ColumnMapping) Inverse() *ColumnMapping {
	inv := make([]Rename, len(m.renames))
	for i, r := range m.renames {
		inv[i] = Rename{Old: r.New, New: r.Old}
	}
	return NewColumnMapping(inv...)
}

// Len returns the number of mapped names.
func (m *ColumnMapping) Len() int {
	return len(m.renames)
}
