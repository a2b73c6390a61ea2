package dataprocessing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/shared/testutil"
)

const mappingCSV = `old_name,new_name
NAPS Site ID,site_id
Sampling Date,sampling_date
Sample Type,sampling_type
NAPS ID,site_id
Aluminum (Al),aluminum
Aluminum (Al),ignored
`

func TestLoadColumnMapping(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "column_names.csv", mappingCSV)

	m, err := LoadColumnMapping(path)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Len(), "duplicate old names keep the first row")
	assert.Equal(t, "aluminum", m.Rename("Aluminum (Al)"))
}

func TestLoadColumnMapping_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadColumnMapping(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	bad := testutil.WriteFile(t, dir, "bad.csv", "from,to\na,b\n")
	_, err = LoadColumnMapping(bad)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestColumnMapping_RoundTrip(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "column_names.csv", mappingCSV)
	m, err := LoadColumnMapping(path)
	require.NoError(t, err)

	original := []string{"NAPS Site ID", "Sampling Date", "Foo"}
	normalized := m.Normalize(original)

	assert.Equal(t, []string{"site_id", "sampling_date", "Foo"}, normalized)
	assert.Equal(t, original, m.Inverse().Normalize(normalized))
	assert.Equal(t, []string{"NAPS Site ID", "Sampling Date", "Foo"}, original, "input must not be modified")
}

func TestColumnMapping_InverseFirstWins(t *testing.T) {
	m := NewColumnMapping(
		Rename{Old: "NAPS Site ID", New: "site_id"},
		Rename{Old: "NAPS ID", New: "site_id"},
	)
	assert.Equal(t, "NAPS Site ID", m.Inverse().Rename("site_id"))
	assert.Equal(t, "site_id", m.Rename("NAPS ID"))
}

func TestAbbreviations(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "abbreviations.csv",
		"full_name,abbreviation\nlead,Pb\naluminum,Al\nsulphate,SO4\n,X\n")

	abbr, err := LoadAbbreviations(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"aluminum", "lead", "sulphate"}, abbr.Names())

	mdl, err := abbr.MDLColumn("lead")
	require.NoError(t, err)
	assert.Equal(t, "Pb-MDL", mdl)

	code, ok := abbr.Abbreviation("sulphate")
	assert.True(t, ok)
	assert.Equal(t, "SO4", code)

	_, err = abbr.MDLColumn("unobtainium")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	bad := testutil.WriteFile(t, t.TempDir(), "bad.csv", "name,code\n")
	_, err = LoadAbbreviations(bad)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestIsMDLColumn(t *testing.T) {
	assert.True(t, IsMDLColumn("Pb-MDL"))
	assert.True(t, IsMDLColumn("lead-MDL"))
	assert.False(t, IsMDLColumn("lead"))
}

func TestTextTransforms(t *testing.T) {
	tests := []struct {
		in, removed, canonical string
	}{
		{"Aluminum (Al)", "Aluminum", "aluminum"},
		{"Sulphate (SO4) (IC)", "Sulphate", "sulphate"},
		{"Lead", "Lead", "lead"},
		{" MSA (CH3SO3) ", " MSA ", "msa"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.removed, RemoveParentheses(tt.in))
			assert.Equal(t, tt.canonical, CanonicalAnalyte(tt.in))
		})
	}

	assert.Equal(t, 300.0, MicroToNano(0.3))
	assert.Equal(t, 12500.0, MicroToNano(12.5))
	assert.Equal(t, 1.234, MicroToNano(0.001234))
}
