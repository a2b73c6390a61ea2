package archive

import (
	"fmt"
	"strconv"
)

// SheetRef points at a worksheet either by position or by name.
type SheetRef struct {
	Index int
	Name  string
}

// ByName reports whether the reference uses a sheet name.
func (r SheetRef) ByName() bool { return r.Name != "" }

func (r SheetRef) String() string {
	if r.ByName() {
		return strconv.Quote(r.Name)
	}
	return fmt.Sprintf("#%d", r.Index)
}

type columnRule struct {
	from, to int
	column   string
}

type skipRule struct {
	from, to int
	rows     int
}

type sheetRule struct {
	from, to int
	sheet    SheetRef
}

var datetimeColumns = map[Category][]columnRule{
	PAH: {
		{2003, 2005, "COMPOUNDS"},
		{2006, 2006, "Compounds"},
		{2007, 2009, "COMPOUNDS"},
		{2010, 2019, "Sampling Date"},
	},
	VOC: {
		{2003, 2013, "Sample Date"},
		{2014, 2019, "Sampling Date"},
	},
}

var skipRows = map[Category][]skipRule{
	PAH: {
		{2003, 2009, 2},
		{2010, 2019, 9},
	},
	VOC: {
		{2003, 2007, 1},
		{2008, 2013, 2},
		{2014, 2017, 0},
		{2018, 2019, 8},
	},
}

var worksheets = map[Category][]sheetRule{
	PAH: {
		{2003, 2009, SheetRef{Index: 0}},
		{2010, 2019, SheetRef{Name: "PAH (TP+G)"}},
	},
	VOC: {
		{2003, 2013, SheetRef{Index: 0}},
		{2014, 2017, SheetRef{Name: "Data"}},
		{2018, 2019, SheetRef{Name: "VOC"}},
	},
}

// DatetimeColumn returns the header of the sampling date column for the
// PAH and VOC workbooks of year.
func DatetimeColumn(year int, category Category) (string, error) {
	for _, r := range datetimeColumns[category] {
		if year >= r.from && year <= r.to {
			return r.column, nil
		}
	}
	return "", unknownLayout("date column", year, category)
}

// SkipRows returns how many leading rows precede the header row.
func SkipRows(year int, category Category) (int, error) {
	for _, r := range skipRows[category] {
		if year >= r.from && year <= r.to {
			return r.rows, nil
		}
	}
	return 0, unknownLayout("header offset", year, category)
}

// Worksheet returns the sheet holding the measurements.
func Worksheet(year int, category Category) (SheetRef, error) {
	for _, r := range worksheets[category] {
		if year >= r.from && year <= r.to {
			return r.sheet, nil
		}
	}
	return SheetRef{}, unknownLayout("worksheet", year, category)
}
