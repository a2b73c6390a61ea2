package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	DataDir      string
	RawDir       string
	ConfigDir    string
	MetadataDir  string
	ProcessedDir string
	ReportsDir   string
	LogsDir      string

	// Raw inputs
	SpeciationDir    string
	ContinuousRawDir string
	StationsRawCSV   string

	// Continuous per-site outputs
	ContinuousDir string

	// Versioned configuration data
	ColumnNamesCSV            string
	ColumnNamesPre2010IonsCSV string
	AbbreviationsCSV          string
	CheckedFrequencyCSV       string
	CorrectionsYAML           string

	// Well-known outputs
	IndexCSV    string
	StationsCSV string
	CatalogDB   string
	CoverageCSV string
	MetricsFile string
}

// NewPaths resolves the directory layout below dataDir. Relative roots are
// resolved against the working directory.
func NewPaths(dataDir, logsDir string) (*Paths, error) {
	data, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir %q: %w", dataDir, err)
	}
	logs, err := filepath.Abs(logsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve logs dir %q: %w", logsDir, err)
	}

	// data/
	//   ├── raw/          (unpacked archive, stations listing, continuous files)
	//   ├── config/       (column names, abbreviations, corrections)
	//   ├── metadata/     (index, stations, catalog)
	//   ├── processed/    (per-(year, site) tables, PMF inputs, continuous)
	//   └── reports/      (coverage, metrics)
	raw := filepath.Join(data, "raw")
	cfg := filepath.Join(data, "config")
	meta := filepath.Join(data, "metadata")
	processed := filepath.Join(data, "processed")
	reports := filepath.Join(data, "reports")

	return &Paths{
		DataDir:      data,
		RawDir:       raw,
		ConfigDir:    cfg,
		MetadataDir:  meta,
		ProcessedDir: processed,
		ReportsDir:   reports,
		LogsDir:      logs,

		SpeciationDir:    filepath.Join(raw, "integrated_pm25"),
		ContinuousRawDir: filepath.Join(raw, "continuous_pm25"),
		StationsRawCSV:   filepath.Join(raw, "StationsNAPS-StationsSNPA.csv"),

		ContinuousDir: filepath.Join(processed, "continuous_pm25"),

		ColumnNamesCSV:            filepath.Join(cfg, "column_names.csv"),
		ColumnNamesPre2010IonsCSV: filepath.Join(cfg, "column_names_pre_2010_ions.csv"),
		AbbreviationsCSV:          filepath.Join(cfg, "abbreviations.csv"),
		CheckedFrequencyCSV:       filepath.Join(cfg, "checked_frequency.csv"),
		CorrectionsYAML:           filepath.Join(cfg, "corrections.yaml"),

		IndexCSV:    filepath.Join(meta, "index.csv"),
		StationsCSV: filepath.Join(meta, "stations_metadata.csv"),
		CatalogDB:   filepath.Join(meta, "catalog.db"),
		CoverageCSV: filepath.Join(reports, "coverage.csv"),
		MetricsFile: filepath.Join(reports, "napsidx.prom"),
	}, nil
}

// GetPaths resolves paths from the configuration. NAPS_DATA_DIR overrides
// the configured data directory.
func (c *Config) GetPaths() (*Paths, error) {
	dataDir := c.Paths.DataDir
	if env := os.Getenv(EnvPrefix + "_DATA_DIR"); env != "" {
		dataDir = env
	}
	paths, err := NewPaths(dataDir, c.Paths.LogsDir)
	if err != nil {
		return nil, err
	}
	if c.Telemetry.MetricsFile != "" {
		paths.MetricsFile = c.Telemetry.MetricsFile
	}
	return paths, nil
}

// EnsureDirectories creates the output directories if they don't exist.
// Raw input directories are never created.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.MetadataDir,
		p.ProcessedDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// ProcessedCSV returns the per-(year, site) output path. The ion table
// carries an _IC suffix.
func (p *Paths) ProcessedCSV(year, siteID int, ions bool) string {
	name := strconv.Itoa(year) + "_" + strconv.Itoa(siteID)
	if ions {
		name += "_IC"
	}
	return filepath.Join(p.ProcessedDir, name+".csv")
}

// PMFDir returns the source-apportionment output directory for a site.
func (p *Paths) PMFDir(siteID int) string {
	return filepath.Join(p.ProcessedDir, fmt.Sprintf("%d_for_PMF", siteID))
}

// ContinuousRawCSV returns the raw hourly PM2.5 file for a year.
func (p *Paths) ContinuousRawCSV(year int) string {
	return filepath.Join(p.ContinuousRawDir, fmt.Sprintf("PM25_%d.csv", year))
}

// ContinuousSiteCSV returns the reshaped hourly PM2.5 file for a site.
func (p *Paths) ContinuousSiteCSV(siteID int) string {
	return filepath.Join(p.ContinuousDir, fmt.Sprintf("%d.csv", siteID))
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}

	wd, _ := os.Getwd()
	logger.Info("Path resolution summary",
		slog.String("working_dir", wd),
		slog.Group("directories",
			slog.String("data", p.DataDir),
			slog.String("raw", p.RawDir),
			slog.String("config", p.ConfigDir),
			slog.String("metadata", p.MetadataDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("config_files",
			slog.Bool("column_names", FileExists(p.ColumnNamesCSV)),
			slog.Bool("abbreviations", FileExists(p.AbbreviationsCSV)),
			slog.Bool("checked_frequency", FileExists(p.CheckedFrequencyCSV)),
			slog.Bool("corrections", FileExists(p.CorrectionsYAML)),
		),
		slog.Group("outputs",
			slog.String("index_csv", p.IndexCSV),
			slog.String("stations_csv", p.StationsCSV),
			slog.String("catalog_db", p.CatalogDB),
		))
}
