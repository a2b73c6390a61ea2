package frequency

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"napsidx/internal/shared/testutil"
	"napsidx/internal/workbook"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		gaps []int
		want int
	}{
		{"three equal gaps", []int{3, 3, 3}, 3},
		{"outer gaps agree", []int{3, 6, 3}, 3},
		{"no agreement and no canonical gap", []int{5, 7, 9}, Undetermined},
		{"last two agree", []int{5, 6, 6}, 6},
		{"third gap disagrees", []int{3, 3, 6}, 3},
		{"first two agree only", []int{6, 6, 2}, 6},
		{"canonical first gap fallback", []int{6, 1, 2}, 6},
		{"two gaps agree", []int{1, 1}, 1},
		{"two gaps disagree", []int{4, 5}, Undetermined},
		{"single canonical gap", []int{3}, 3},
		{"single odd gap", []int{12}, Undetermined},
		{"no gaps", nil, Undetermined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.gaps))
		})
	}
}

// legacySheet puts dates (as serials) in column A starting at row start.
func legacySheet(start int, days ...int) *workbook.Sheet {
	rows := make([][]string, start)
	for i := range rows {
		rows[i] = []string{"header"}
	}
	base := testutil.Serial(2008, 1, 1)
	for _, d := range days {
		rows = append(rows, []string{strconv.FormatFloat(base+float64(d), 'f', -1, 64), "10102"})
	}
	return &workbook.Sheet{Name: "S10102", Rows: rows}
}

func TestInfer(t *testing.T) {
	t.Run("icpms every third day", func(t *testing.T) {
		s := legacySheet(2, 0, 3, 6, 9, 12)
		assert.Equal(t, 3, Infer(s, ICPMS, 2008))
	})

	t.Run("ic skips field blank rows", func(t *testing.T) {
		// sample, blank, sample, blank ... each sample six days apart
		s := legacySheet(2, 0, 0, 6, 6, 12, 12, 18, 18)
		assert.Equal(t, 6, Infer(s, IC, 2007))
	})

	t.Run("2009 files are shifted by one row", func(t *testing.T) {
		s := legacySheet(3, 0, 3, 6, 9, 12)
		assert.Equal(t, 3, Infer(s, ICPMS, 2009))
		assert.Equal(t, Undetermined, Infer(s, ICPMS, 2008))
	})

	t.Run("short sheet uses first gap only", func(t *testing.T) {
		s := legacySheet(2, 0, 6)
		assert.Equal(t, 4, s.NumRows())
		assert.Equal(t, 6, Infer(s, ICPMS, 2005))
	})

	t.Run("unreadable date", func(t *testing.T) {
		s := legacySheet(2, 0, 3, 6)
		s.Rows[3][0] = "Field Blank"
		assert.Equal(t, Undetermined, Infer(s, ICPMS, 2005))
	})

	t.Run("unknown instrument", func(t *testing.T) {
		assert.Equal(t, Undetermined, Infer(legacySheet(2, 0, 3, 6, 9), Instrument("XRF"), 2005))
	})
}

func TestInferModern(t *testing.T) {
	rows := make([][]string, 16)
	for i := range rows {
		rows[i] = []string{"60104", ""}
	}
	rows[14][1] = strconv.FormatFloat(testutil.Serial(2012, 1, 3), 'f', -1, 64)
	rows[15][1] = strconv.FormatFloat(testutil.Serial(2012, 1, 6), 'f', -1, 64)
	s := &workbook.Sheet{Name: "Metals_ICPMS (Near-Total)", Rows: rows}

	assert.Equal(t, 3, InferModern(s))

	rows[15][1] = ""
	assert.Equal(t, Undetermined, InferModern(s))
	assert.Equal(t, Undetermined, InferModern(&workbook.Sheet{}))
}
