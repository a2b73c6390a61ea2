package stations

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"napsidx/internal/config"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
	"napsidx/internal/shared/testutil"
)

func rawListing(stations ...string) string {
	header := strings.Join(append([]string{"Extra"}, Columns...), ",")
	units := strings.Repeat(",", len(Columns))
	var b strings.Builder
	b.WriteString("National Air Pollution Surveillance Program\n")
	b.WriteString("Stations\n")
	b.WriteString("Source,ECCC\n")
	b.WriteString("Updated yearly\n")
	b.WriteString(header + "\n")
	b.WriteString("SNPA_ID" + units + "\n")
	for _, s := range stations {
		b.WriteString(s + "\n")
	}
	b.WriteString("Footnote,,,\n")
	return b.String()
}

func station(id, name, lat string) string {
	fields := make([]string, len(Columns)+1)
	fields[0] = "x"
	fields[1] = id
	fields[2] = name
	fields[3] = "Active"
	fields[4] = "St. John's"
	fields[5] = lat
	fields[6] = "-52.7"
	fields[8] = "1974.0"
	fields[25] = "PE"
	fields[28] = "Residential"
	return strings.Join(fields, ",")
}

func setup(t *testing.T, content string, lastRow int) (*Extractor, *config.Paths) {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.NewPaths(filepath.Join(dir, "data"), filepath.Join(dir, "logs"))
	require.NoError(t, err)
	testutil.WriteFile(t, filepath.Dir(paths.StationsRawCSV), filepath.Base(paths.StationsRawCSV), content)

	logger, _ := testutil.NewTestLogger(t)
	bounds := config.StationsConfig{HeaderRow: 4, SkipRow: 5, LastRow: lastRow}
	return NewExtractor(paths, exporter.NewCSVWriter(paths, logger), bounds, logger), paths
}

func TestHeader(t *testing.T) {
	header := Header()
	assert.Len(t, header, 29)
	assert.Equal(t, "site_id", header[0])
	assert.Equal(t, "station_name", header[1])
	assert.Equal(t, "site_type", header[24])
	assert.Equal(t, "land_use", header[27])
	assert.Equal(t, "Scale", header[28])
}

func TestExtractor_Skip(t *testing.T) {
	e := &Extractor{bounds: config.StationsConfig{HeaderRow: 4, SkipRow: 5, LastRow: 790}}
	for row, want := range map[int]bool{0: true, 3: true, 4: false, 5: true, 6: false, 790: false, 791: true} {
		assert.Equal(t, want, e.Skip(row), "row %d", row)
	}
}

func TestExtractor_Extract(t *testing.T) {
	content := rawListing(
		station("10101", "\"ST. JOHN'S-WATER STREET\"", "47.56"),
		station("10102", "ST. JOHN'S-DUCKWORTH", "47.56"),
	)
	// rows 6 and 7 hold stations, the footnote is row 8
	e, paths := setup(t, content, 7)

	n, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	frame, err := exporter.ReadCSV(paths.StationsCSV)
	require.NoError(t, err)
	assert.Equal(t, Header(), frame.Header)
	require.Len(t, frame.Records, 2)
	assert.Equal(t, "10101", frame.Value(0, "site_id"))
	assert.Equal(t, "ST. JOHN'S-WATER STREET", frame.Value(0, "station_name"))
	assert.Equal(t, "PE", frame.Value(1, "site_type"))
}

func TestExtractor_MissingColumn(t *testing.T) {
	content := strings.Replace(rawListing(station("10101", "A", "1")), "Land_Use", "LandUse", 1)
	e, _ := setup(t, content, 6)

	_, err := e.Extract(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStructural))
}

func TestExtractor_MissingFile(t *testing.T) {
	dir := t.TempDir()
	paths, err := config.NewPaths(dir, dir)
	require.NoError(t, err)
	e := NewExtractor(paths, exporter.NewCSVWriter(paths, nil), config.StationsConfig{HeaderRow: 4, SkipRow: 5, LastRow: 790}, nil)

	_, err = e.Extract(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoad(t *testing.T) {
	content := rawListing(
		station("10101", "WATER STREET", "47.56"),
		station("10102", "DUCKWORTH", ""),
		station("10101", "DUPLICATE", "0"),
	)
	e, paths := setup(t, content, 8)
	_, err := e.Extract(context.Background())
	require.NoError(t, err)

	dir, err := Load(paths.StationsCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.Len())

	s, ok := dir.Lookup(10101)
	require.True(t, ok)
	assert.Equal(t, "WATER STREET", s.Name)
	assert.Equal(t, "Active", s.Status)
	require.NotNil(t, s.Latitude)
	assert.InDelta(t, 47.56, *s.Latitude, 1e-9)
	require.NotNil(t, s.StartYear)
	assert.Equal(t, 1974, *s.StartYear)
	assert.Nil(t, s.EndYear)
	assert.Equal(t, "Residential", s.LandUse)
	assert.Equal(t, "PE", s.Attributes["site_type"])

	s, err = dir.Get(10102)
	require.NoError(t, err)
	assert.Nil(t, s.Latitude)

	_, err = dir.Get(99999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, map[int]string{10101: "WATER STREET", 10102: "DUCKWORTH"}, dir.Names())
}

func TestLoad_BadSiteID(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "stations.csv", "site_id,station_name\nabc,X\n")
	_, err := Load(path)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}
