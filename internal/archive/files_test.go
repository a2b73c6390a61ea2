package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRelevantFile(t *testing.T) {
	tests := []struct {
		name string
		year int
		want bool
	}{
		{"S60104_ICPMS.XLS", 2008, true},
		{"S60104_WICPMS.XLS", 2008, true},
		{"S60104_IC.XLS", 2008, true},
		{"S60104_OC-EC.XLS", 2008, false},
		{"S60104_PM25_2012.xlsx", 2012, true},
		{"S60104_PM25_2016_EN.xlsx", 2016, true},
		{"S60104_PM25_2016_FR.xlsx", 2016, false},
		{"S60104_PM25_2015.xlsx", 2016, false},
		{"S60104_PM25_2012.xlsx", 2008, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRelevantFile(tt.name, tt.year), "%s/%d", tt.name, tt.year)
	}
}

func TestClassifyLegacy(t *testing.T) {
	kind, ok := ClassifyLegacy("S60104_WICPMS.XLS")
	require.True(t, ok)
	assert.Equal(t, LegacyWaterSoluble, kind)

	kind, ok = ClassifyLegacy("S60104_ICPMS.XLS")
	require.True(t, ok)
	assert.Equal(t, LegacyNearTotal, kind)

	kind, ok = ClassifyLegacy("S60104_IC.XLS")
	require.True(t, ok)
	assert.Equal(t, LegacyIons, kind)

	_, ok = ClassifyLegacy("S60104_PM25_2012.xlsx")
	assert.False(t, ok)

	assert.Equal(t, "S60104_WICPMS.XLS", LegacyFilename(60104, LegacyWaterSoluble))
}

func TestSiteIDFromFilename(t *testing.T) {
	id, err := SiteIDFromFilename("S129003_PM25_2016_EN.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 129003, id)

	id, err = SiteIDFromFilename("S60104_IC.XLS")
	require.NoError(t, err)
	assert.Equal(t, 60104, id)

	for _, bad := range []string{"60104_IC.XLS", "S60104.XLS", "Sabc_IC.XLS"} {
		_, err := SiteIDFromFilename(bad)
		assert.Error(t, err, bad)
	}
}

func TestSheetLookups(t *testing.T) {
	col, err := DatetimeColumn(2006, PAH)
	require.NoError(t, err)
	assert.Equal(t, "Compounds", col)

	col, err = DatetimeColumn(2008, PAH)
	require.NoError(t, err)
	assert.Equal(t, "COMPOUNDS", col)

	col, err = DatetimeColumn(2014, VOC)
	require.NoError(t, err)
	assert.Equal(t, "Sampling Date", col)

	rows, err := SkipRows(2007, VOC)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	rows, err = SkipRows(2018, VOC)
	require.NoError(t, err)
	assert.Equal(t, 8, rows)

	rows, err = SkipRows(2010, PAH)
	require.NoError(t, err)
	assert.Equal(t, 9, rows)

	ref, err := Worksheet(2009, PAH)
	require.NoError(t, err)
	assert.False(t, ref.ByName())

	ref, err = Worksheet(2016, VOC)
	require.NoError(t, err)
	assert.Equal(t, "Data", ref.Name)

	_, err = Worksheet(2012, PM25)
	assert.ErrorIs(t, err, ErrUnknownLayout)
}
