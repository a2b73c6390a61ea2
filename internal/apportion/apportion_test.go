package apportion

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"napsidx/internal/config"
	"napsidx/internal/dataprocessing"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
	"napsidx/internal/index"
	"napsidx/internal/shared/testutil"
)

const site = 10102

func fixture(t *testing.T) (*Builder, *config.Paths, *testutil.BufferedSlogHandler) {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(filepath.Join(dir, "data"), filepath.Join(dir, "logs"))
	require.NoError(t, err)

	writeProcessed(t, paths, 2008, false,
		"sampling_date,site_id,Cartridge,analyte_type,PM2.5,aluminum,Al-MDL,lead,Pb-MDL",
		"2008-01-03,10102,A,NT,12.5,40,2,3,0.1",
		"2008-01-06,10102,FB,NT,0.5,1,2,0.2,0.1",
		"2008-01-09,10102,A,NT,-999,0,2,4,0.1",
		"2008-01-03,10102,A,WS,12.5,20,1,2,0.1",
	)
	writeProcessed(t, paths, 2012, false,
		"sampling_date,site_id,sampling_type,sampler,analyte_type,PM2.5,PM2.5-MDL,aluminum,Al-MDL",
		"2012-01-02,10102,R,S-1,NT,8.25,0.3,35,2.5",
		"2012-01-05,10102,TB,S-1,NT,0.1,0.3,1,2.5",
		"2012-01-08,10102,R,S-1,NT,,0.3,,2.5",
	)
	writeProcessed(t, paths, 2012, true,
		"sampling_date,site_id,sampling_type,sampler,analyte_type,sulphate,SO4-MDL",
		"2012-01-02,10102,R,S-1,total,1.25,0.02",
		"2012-01-05,10102,FB,S-1,total,0.5,0.02",
		"2012-01-08,10102,R,S-1,total,0,0.02",
	)

	ix := index.New([]index.Entry{
		{Year: 2008, SiteID: site, Analyte: "aluminum", AnalyteType: index.NearTotal, Instrument: index.ICPMS, Frequency: 3},
		{Year: 2008, SiteID: site, Analyte: "aluminum", AnalyteType: index.WaterSoluble, Instrument: index.ICPMS, Frequency: 3},
		{Year: 2008, SiteID: site, Analyte: "lead", AnalyteType: index.NearTotal, Instrument: index.ICPMS, Frequency: 3},
		{Year: 2012, SiteID: site, Analyte: "aluminum", AnalyteType: index.NearTotal, Instrument: index.ICPMS, Frequency: 3},
		{Year: 2012, SiteID: site, Analyte: "sulphate", AnalyteType: index.Total, Instrument: index.IC, Frequency: 3},
		{Year: 2012, SiteID: site, Analyte: "zinc", AnalyteType: index.NearTotal, Instrument: index.ICPMS, Frequency: 3},
		{Year: 2013, SiteID: site, Analyte: "nickel", AnalyteType: index.NearTotal, Instrument: index.ICPMS, Frequency: 3},
	})
	abbr := dataprocessing.NewAbbreviations(map[string]string{
		"aluminum": "Al", "lead": "Pb", "sulphate": "SO4", "nickel": "Ni",
	})

	logger, handler := testutil.NewTestLogger(t)
	return NewBuilder(paths, ix, abbr, exporter.NewCSVWriter(paths, logger), nil, logger), paths, handler
}

func writeProcessed(t *testing.T, paths *config.Paths, year int, ions bool, lines ...string) {
	t.Helper()
	path := paths.ProcessedCSV(year, site, ions)
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	testutil.WriteFile(t, filepath.Dir(path), filepath.Base(path), content)
}

func read(t *testing.T, path string) *exporter.Frame {
	t.Helper()
	frame, err := exporter.ReadCSV(path)
	require.NoError(t, err)
	return frame
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "NT_lead.csv", MetalFile("lead"))
	assert.Equal(t, "ion_sulphate.csv", IonFile("sulphate"))
}

func TestBuilder_BuildSite(t *testing.T) {
	b, paths, handler := fixture(t)
	dir := paths.PMFDir(site)

	res, err := b.BuildSite(context.Background(), site)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "NT_aluminum.csv"),
		filepath.Join(dir, "NT_lead.csv"),
		filepath.Join(dir, PM25File),
		filepath.Join(dir, "ion_sulphate.csv"),
	}, res.Written)
	assert.Equal(t, 2+2+3+1, res.Rows)

	t.Run("near-total metal", func(t *testing.T) {
		frame := read(t, filepath.Join(dir, "NT_aluminum.csv"))
		assert.Equal(t, []string{"sampling_date", "aluminum", "Al-MDL"}, frame.Header)
		assert.Equal(t, [][]string{
			{"2008-01-03", "40", "2"},
			{"2012-01-02", "35", "2.5"},
		}, frame.Records)

		frame = read(t, filepath.Join(dir, "NT_lead.csv"))
		assert.Equal(t, [][]string{
			{"2008-01-03", "3", "0.1"},
			{"2008-01-09", "4", "0.1"},
		}, frame.Records)
	})

	t.Run("PM2.5 in ng/m3", func(t *testing.T) {
		frame := read(t, filepath.Join(dir, PM25File))
		assert.Equal(t, []string{"sampling_date", "PM2.5", "PM2.5-MDL"}, frame.Header)
		assert.Equal(t, [][]string{
			{"2008-01-03", "12500", ""},
			{"2008-01-06", "500", ""},
			{"2012-01-02", "8250", "300"},
		}, frame.Records)
	})

	t.Run("ion in ng/m3", func(t *testing.T) {
		frame := read(t, filepath.Join(dir, "ion_sulphate.csv"))
		assert.Equal(t, []string{"sampling_date", "sulphate", "SO4-MDL"}, frame.Header)
		assert.Equal(t, [][]string{{"2012-01-02", "1250", "20"}}, frame.Records)
	})

	assert.NoFileExists(t, filepath.Join(dir, "NT_zinc.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "NT_nickel.csv"))
	assert.True(t, handler.ContainsMessage("skipping analyte"))
	assert.True(t, handler.ContainsAttr("analyte", "zinc"))
	assert.True(t, handler.ContainsMessage("processed table unavailable"))
}

func TestBuilder_UnknownSite(t *testing.T) {
	b, _, _ := fixture(t)

	_, err := b.BuildSite(context.Background(), 99999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	results, err := b.Build(context.Background(), []int{site, 99999})
	assert.Error(t, err)
	assert.Len(t, results, 1)
}

func TestBuilder_Cancelled(t *testing.T) {
	b, _, _ := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.BuildSite(ctx, site)
	assert.ErrorIs(t, err, context.Canceled)
}
