package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/operations"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"stations", "index", "correct", "extract", "apportion", "continuous", "coverage", "catalog", "run", "serve", "resolve"} {
		assert.Contains(t, names, want)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   []string
		absent []string
	}{
		{
			"pm25 modern",
			[]string{"resolve", "--year", "2017", "--category", "pm25", "--site", "60104"},
			[]string{"2017/2017_IntegratedPM2.5-PM2.5Ponctuelles/PM2.5/S60104_PM25_2017_EN.xlsx"},
			[]string{"sheet="},
		},
		{
			"pah file with sheet layout",
			[]string{"resolve", "--year", "2012", "--category", "pah", "--site", "10102"},
			[]string{"2012/PAH/S10102_PAH_2012.xlsx", `sheet="PAH (TP+G)" skip_rows=9 date_column="Sampling Date"`},
			nil,
		},
		{
			"voc legacy directory with sheet layout",
			[]string{"resolve", "--year", "2005", "--category", "voc"},
			[]string{"2005/VOC", `sheet=#0 skip_rows=1 date_column="Sample Date"`},
			nil,
		},
		{
			"pm25 legacy lists instrument files",
			[]string{"resolve", "--year", "2005", "--site", "30118"},
			[]string{"2005/SPECIATION/S30118_ICPMS.XLS", "2005/SPECIATION/S30118_WICPMS.XLS", "2005/SPECIATION/S30118_IC.XLS"},
			nil,
		},
		{
			"directory only",
			[]string{"resolve", "--year", "2015", "--category", "pah"},
			[]string{"2015/2015_PAH/PAH", `sheet="PAH (TP+G)"`},
			nil,
		},
		{
			"all categories",
			[]string{"resolve", "--year", "2013"},
			[]string{"2013/PM2.5/PM2.5", "2013/CARBONYLS", "2013/PAH", "2013/VOC", `date_column="Sample Date"`},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, a := range tt.absent {
				assert.NotContains(t, out, a)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	_, err := runCLI(t, "resolve", "--year", "2021", "--category", "pm25")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrResolution)

	_, err = runCLI(t, "resolve", "--year", "2015", "--category", "metals")
	assert.ErrorIs(t, err, apperrors.ErrResolution)

	_, err = runCLI(t, "resolve")
	assert.ErrorContains(t, err, "year")
}

func TestApportionRequiresSite(t *testing.T) {
	_, err := runCLI(t, "apportion")
	assert.ErrorContains(t, err, "site")
}

func TestPrintResponse(t *testing.T) {
	extract := operations.NewStepState(operations.StepIDExtract, operations.StepNameExtract)
	extract.Start()
	extract.SetMetadata("files_written", 12)
	extract.SetMetadata("rows", 3400)
	extract.Complete()
	apportion := operations.NewStepState(operations.StepIDApportion, operations.StepNameApportion)
	apportion.Skip("dependency extract failed")

	var out bytes.Buffer
	printResponse(&out, &operations.OperationResponse{
		ID:       "run-1",
		Status:   operations.OperationStatusFailed,
		Duration: 1500 * time.Millisecond,
		Order:    []string{operations.StepIDExtract, operations.StepIDApportion},
		Steps: map[string]*operations.StepState{
			operations.StepIDExtract:   extract,
			operations.StepIDApportion: apportion,
		},
		Error: "boom",
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "run run-1: failed in 1.5s", lines[0])
	assert.Contains(t, lines[1], "files_written=12 rows=3400")
	assert.Contains(t, lines[2], "dependency extract failed")
	assert.Equal(t, "error: boom", lines[3])
}
