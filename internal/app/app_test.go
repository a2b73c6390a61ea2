package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"napsidx/internal/app"
	"napsidx/internal/config"
	"napsidx/internal/operations"
	sharedtestutil "napsidx/internal/shared/testutil"
	"napsidx/internal/stations"
)

func newApp(t *testing.T) (*app.Application, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NAPS_DATA_DIR", "")
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.Telemetry.MetricsFile = filepath.Join(dir, "napsidx.prom")
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = time.Second

	var console bytes.Buffer
	a, err := app.New(app.Options{Config: cfg, Console: &console})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, &console
}

func TestNew(t *testing.T) {
	a, _ := newApp(t)
	assert.DirExists(t, a.Paths.MetadataDir)
	assert.DirExists(t, a.Paths.ProcessedDir)

	manager, err := a.Manager(false)
	require.NoError(t, err)
	assert.Equal(t, 8, manager.GetRegistry().Count())
}

func writeStationListing(t *testing.T, a *app.Application) {
	t.Helper()
	row := make([]string, len(stations.Columns))
	row[0], row[1] = "10102", "Harbour"
	listing := strings.Join([]string{
		"National Air Pollution Surveillance Program",
		"Stations",
		"Source,ECCC",
		"Updated yearly",
		strings.Join(stations.Columns, ","),
		"SNPA_ID" + strings.Repeat(",", len(stations.Columns)-1),
		strings.Join(row, ","),
	}, "\n") + "\n"
	sharedtestutil.WriteFile(t, filepath.Dir(a.Paths.StationsRawCSV), filepath.Base(a.Paths.StationsRawCSV), listing)
}

func TestRunStepsWritesMetrics(t *testing.T) {
	a, console := newApp(t)
	writeStationListing(t, a)

	resp, err := a.RunSteps(context.Background(), operations.OperationRequest{
		Steps: []string{operations.StepIDStations},
	}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.FileExists(t, a.Paths.StationsCSV)

	data, err := os.ReadFile(a.Paths.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "napsidx_step_duration")
	assert.Contains(t, string(data), `step="stations"`)
	assert.Contains(t, console.String(), resp.ID, "run id is the trace id of the log lines")
}

func TestRunStepsFailure(t *testing.T) {
	a, _ := newApp(t)

	resp, err := a.RunSteps(context.Background(), operations.OperationRequest{
		Steps: []string{operations.StepIDStations},
	}, false)
	require.Error(t, err, "no raw station listing")
	require.NotNil(t, resp)
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, operations.StepStatusFailed, resp.Steps[operations.StepIDStations].Status)
}

func TestServeStopsOnCancel(t *testing.T) {
	a, console := newApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	require.NoError(t, a.Serve(ctx))
	assert.Contains(t, console.String(), "shutting down query API")
	assert.FileExists(t, a.Paths.CatalogDB)
}
