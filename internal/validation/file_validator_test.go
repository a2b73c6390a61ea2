package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/shared/testutil"
)

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	tests := []struct {
		name            string
		setupFunc       func(t *testing.T) string
		requiredPattern string
		wantErr         apperrors.ErrorType
	}{
		{
			name: "valid directory with files",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				testutil.WriteFile(t, dir, "S10102_PM25_2012.xlsx", "test")
				return dir
			},
			requiredPattern: "*.xlsx",
		},
		{
			name: "valid directory without files",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			requiredPattern: "*.xlsx",
		},
		{
			name: "non-existent directory",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
			wantErr: apperrors.ErrTypeNotFound,
		},
		{
			name: "path is file not directory",
			setupFunc: func(t *testing.T) string {
				return testutil.WriteFile(t, t.TempDir(), "test.txt", "test")
			},
			wantErr: apperrors.ErrTypeValidation,
		},
		{
			name: "bad pattern",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			requiredPattern: "[",
			wantErr:         apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default())
			dir := tt.setupFunc(t)

			err := validator.ValidateInputDirectory(dir, tt.requiredPattern)

			if tt.wantErr != "" {
				assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ValidateArchive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2008", "SPECIATION"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2012", "PM2.5"), 0755))

	logger, handler := testutil.NewTestLogger(t)
	validator := NewFileValidator(logger)

	assert.NoError(t, validator.ValidateArchive(root, []int{2008, 2012}))

	err := validator.ValidateArchive(root, []int{2008, 2009, 2013})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "2009/SPECIATION")
	assert.Contains(t, err.Error(), "2013/PM2.5")
	testutil.AssertLogContains(t, handler, slog.LevelError, "Archive year directories missing")

	err = validator.ValidateArchive(root, []int{2021})
	assert.ErrorIs(t, err, apperrors.ErrResolution)
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	validator := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "processed", "10102_for_PMF")
	require.NoError(t, validator.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))

	blocker := testutil.WriteFile(t, t.TempDir(), "file", "x")
	err := validator.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	dir := t.TempDir()
	validator := NewFileValidator(nil)

	assert.NoError(t, validator.ValidateCSVFile(testutil.WriteFile(t, dir, "index.csv", "year\n")))

	err := validator.ValidateCSVFile(testutil.WriteFile(t, dir, "index.txt", "year\n"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	err = validator.ValidateCSVFile(dir)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestFileValidator_CountFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"PM25_2004.csv", "PM25_2005.csv", "stations.csv"} {
		testutil.WriteFile(t, dir, name, "x")
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "PM25_dir.csv"), 0755))

	count, err := NewFileValidator(nil).CountFiles(dir, "PM25_*.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
