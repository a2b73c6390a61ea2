package index

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/shared/testutil"
)

const checkedCSV = `year,site_id,analyte_type,instrument,frequency
2008,10102,NT,ICPMS,6
2008,10102,total,IC,3.0
2008,10102,NT,ICPMS,3
`

const rulesYAML = `drop:
  - year: 2007
    site_id: 70301
    analyte_type: WS
    reason: only a handful of samples
override:
  - year: 2014
    site_id: 129003
    analyte_type: NT
    frequency: 3
`

func loadTestCorrections(t *testing.T, checked, rules string) (*Corrections, *testutil.BufferedSlogHandler, error) {
	t.Helper()
	dir := t.TempDir()
	logger, logs := testutil.NewTestLogger(t)
	c, err := LoadCorrections(
		testutil.WriteFile(t, dir, "checked_frequency.csv", checked),
		testutil.WriteFile(t, dir, "corrections.yaml", rules),
		logger)
	return c, logs, err
}

func TestLoadCorrections(t *testing.T) {
	c, logs, err := loadTestCorrections(t, checkedCSV, rulesYAML)
	require.NoError(t, err)

	require.Len(t, c.Frequencies, 2)
	assert.Equal(t, 6, c.Frequencies[0].Frequency)
	assert.Equal(t, IC, c.Frequencies[1].Instrument)
	assert.Equal(t, 3, c.Frequencies[1].Frequency)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "duplicate checked frequency")

	require.Len(t, c.Drop, 1)
	assert.Equal(t, Rule{Year: 2007, SiteID: 70301, AnalyteType: WaterSoluble, Reason: "only a handful of samples"}, c.Drop[0])
	require.Len(t, c.Override, 1)
	assert.Equal(t, 129003, c.Override[0].SiteID)
	assert.Empty(t, c.Override[0].Instrument)
}

func TestLoadCorrections_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		checked string
		rules   string
	}{
		{
			name:    "unknown analyte type",
			checked: checkedCSV,
			rules:   "drop:\n  - year: 2007\n    site_id: 70301\n    analyte_type: PM\n",
		},
		{
			name:    "year out of range",
			checked: checkedCSV,
			rules:   "drop:\n  - year: 1999\n    site_id: 70301\n    analyte_type: WS\n",
		},
		{
			name:    "missing override frequency",
			checked: checkedCSV,
			rules:   "override:\n  - year: 2014\n    site_id: 129003\n    analyte_type: NT\n",
		},
		{
			name:    "unknown key",
			checked: checkedCSV,
			rules:   "remove: []\n",
		},
		{
			name:    "non-numeric frequency",
			checked: "year,site_id,analyte_type,instrument,frequency\n2008,10102,NT,ICPMS,weekly\n",
			rules:   rulesYAML,
		},
		{
			name:    "missing column",
			checked: "year,site_id,analyte_type,frequency\n2008,10102,NT,6\n",
			rules:   rulesYAML,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := loadTestCorrections(t, tt.checked, tt.rules)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig), "got %v", err)
		})
	}
}

func TestCorrections_ApplyAll(t *testing.T) {
	c, _, err := loadTestCorrections(t, checkedCSV, rulesYAML)
	require.NoError(t, err)

	store := newTestStore(t)
	require.NoError(t, store.Save(sampleEntries()))

	logger, logs := testutil.NewTestLogger(t)
	require.NoError(t, c.ApplyAll(context.Background(), store, logger))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Year: 2008, SiteID: 10102, Analyte: "aluminum", AnalyteType: NearTotal, Instrument: ICPMS, Frequency: 6},
		{Year: 2008, SiteID: 10102, Analyte: "sulphate", AnalyteType: Total, Instrument: IC, Frequency: 3},
		{Year: 2014, SiteID: 129003, Analyte: "lead", AnalyteType: NearTotal, Instrument: ICPMS, Frequency: 3},
		{Year: 2014, SiteID: 129003, Analyte: "nitrate", AnalyteType: Total, Instrument: IC, Frequency: 3},
	}, got)

	for _, e := range got {
		assert.False(t, e.Year == 2007 && e.SiteID == 70301 && e.AnalyteType == WaterSoluble)
	}
	assert.Equal(t, 0, CountUndetermined(got))
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "correction pass applied")
	assert.True(t, logs.ContainsAttr("pass", "drop"))
}

func TestCorrections_PassesAreIdempotent(t *testing.T) {
	c, _, err := loadTestCorrections(t, checkedCSV, rulesYAML)
	require.NoError(t, err)

	store := newTestStore(t)
	require.NoError(t, store.Save(sampleEntries()))
	logger, _ := testutil.NewTestLogger(t)

	for _, pass := range c.Passes() {
		_, err := Apply(context.Background(), store, pass, logger)
		require.NoError(t, err)
	}
	first, err := store.Load()
	require.NoError(t, err)

	for _, pass := range c.Passes() {
		n, err := Apply(context.Background(), store, pass, logger)
		require.NoError(t, err)
		assert.Zero(t, n, pass.Name)
	}
	second, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCorrections_InstrumentScopedRule(t *testing.T) {
	c := &Corrections{Frequencies: []FrequencyRule{{
		Rule:       Rule{Year: 2008, SiteID: 10102, AnalyteType: Total},
		Instrument: ICPMS,
		Frequency:  6,
	}}}

	out, n := c.Passes()[0].Run(sampleEntries())
	assert.Zero(t, n)
	assert.Equal(t, sampleEntries(), out)
}

func TestCorrections_ApplyAllCancelled(t *testing.T) {
	c, _, err := loadTestCorrections(t, checkedCSV, rulesYAML)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.ApplyAll(ctx, newTestStore(t), nil), context.Canceled)
}
