// Package frequency infers the sampling interval of a measurement file from
// the gaps between consecutive sampling dates.
package frequency

import (
	"slices"
	"time"

	"napsidx/internal/workbook"
)

// Undetermined is recorded when no gap pattern can be trusted. Rows carrying
// it are fixed by the manual corrections.
const Undetermined = 100

// Instrument selects the row pairs to compare.
type Instrument string

const (
	ICPMS Instrument = "ICPMS"
	IC    Instrument = "IC"
)

type rowPair struct{ start, end int }

// ICPMS files list one sample per row. IC files alternate a sample with a
// field blank, so every other row is compared.
var rowPairs = map[Instrument][3]rowPair{
	ICPMS: {{2, 3}, {3, 4}, {4, 5}},
	IC:    {{2, 4}, {4, 6}, {6, 8}},
}

// Minimum sheet row counts before the second and third pair are read.
const (
	minRowsSecondGap = 5
	minRowsThirdGap  = 6
)

// canonical holds the regular intervals of the NAPS sampling schedule.
var canonical = []int{3, 6}

// Resolve turns up to three day gaps into a frequency:
//
//   - gap0 == gap1 gives gap0;
//   - with a third gap, gap1 == gap2 gives gap1, otherwise gap0 == gap2 gives gap2;
//   - still undetermined, a gap0 of 3 or 6 is taken as is;
//   - anything else is Undetermined.
func Resolve(gaps []int) int {
	if len(gaps) == 0 {
		return Undetermined
	}

	freq := Undetermined
	if len(gaps) >= 2 {
		if gaps[0] == gaps[1] {
			freq = gaps[0]
		}
	}
	if len(gaps) >= 3 {
		if gaps[1] == gaps[2] {
			freq = gaps[1]
		} else if gaps[0] == gaps[2] {
			freq = gaps[2]
		}
	}
	if freq == Undetermined && slices.Contains(canonical, gaps[0]) {
		freq = gaps[0]
	}
	return freq
}

// Infer reads the date column (column A) of a pre-2010 sheet at the fixed
// row pairs of the instrument. The 2009 files are shifted down one row. The
// second and third gaps are only read when the sheet is long enough. Any
// unreadable date leaves the frequency Undetermined.
func Infer(sheet *workbook.Sheet, instrument Instrument, year int) int {
	pairs, ok := rowPairs[instrument]
	if !ok {
		return Undetermined
	}
	shift := 0
	if year == 2009 {
		shift = 1
	}

	n := 1
	if sheet.NumRows() >= minRowsSecondGap {
		n = 2
	}
	if sheet.NumRows() >= minRowsThirdGap {
		n = 3
	}

	gaps := make([]int, 0, n)
	for _, p := range pairs[:n] {
		gap, ok := dayGap(sheet.Cell(p.start+shift, 0), sheet.Cell(p.end+shift, 0))
		if !ok {
			return Undetermined
		}
		gaps = append(gaps, gap)
	}
	return Resolve(gaps)
}

// InferModern reads the sampling dates in B15 and B16 of a 2010+ sheet and
// returns their day difference.
func InferModern(sheet *workbook.Sheet) int {
	d0, err := sheet.CellRef("B15")
	if err != nil {
		return Undetermined
	}
	d1, err := sheet.CellRef("B16")
	if err != nil {
		return Undetermined
	}
	gap, ok := dayGap(d0, d1)
	if !ok {
		return Undetermined
	}
	return gap
}

func dayGap(from, to string) (int, bool) {
	if from == "" || to == "" {
		return 0, false
	}
	start, err := workbook.ParseDate(from)
	if err != nil {
		return 0, false
	}
	end, err := workbook.ParseDate(to)
	if err != nil {
		return 0, false
	}
	return int(end.Sub(start) / (24 * time.Hour)), true
}
