package operations

import (
	"context"
	"log/slog"

	"napsidx/internal/apportion"
	"napsidx/internal/config"
	"napsidx/internal/continuous"
	"napsidx/internal/coverage"
	"napsidx/internal/dataprocessing"
	apperrors "napsidx/internal/errors"
	"napsidx/internal/exporter"
	"napsidx/internal/extract"
	"napsidx/internal/index"
	"napsidx/internal/infrastructure"
	"napsidx/internal/stations"
	"napsidx/internal/store"
	"napsidx/internal/validation"
)

// Env is what every pipeline step needs.
type Env struct {
	Config  *config.Config
	Paths   *config.Paths
	Writer  *exporter.CSVWriter
	Metrics *infrastructure.PipelineMetrics
	Logger  *slog.Logger
	// Opener overrides the workbook reader; nil reads from disk.
	Opener index.Opener
}

func (e *Env) opener() index.Opener {
	if e.Opener != nil {
		return e.Opener
	}
	return index.DefaultOpener(e.Config.Archive.Charset)
}

func (e *Env) years(state *OperationState) []int {
	if len(state.Request.Years) > 0 {
		return state.Request.Years
	}
	return e.Config.Archive.Years()
}

func (e *Env) indexStore() *index.Store {
	return index.NewStore(e.Paths.IndexCSV, e.Writer)
}

func (e *Env) validator() *validation.FileValidator {
	return validation.NewFileValidator(e.Logger)
}

// NewPipeline registers every napsidx step on a fresh registry.
func NewPipeline(env *Env) (*Registry, error) {
	registry := NewRegistry()
	for _, step := range []Step{
		NewStationsStep(env),
		NewIndexStep(env),
		NewCorrectStep(env),
		NewExtractStep(env),
		NewApportionStep(env),
		NewContinuousStep(env),
		NewCoverageStep(env),
		NewCatalogStep(env),
	} {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// StationsStep writes the station metadata CSV.
type StationsStep struct {
	BaseStep
	env *Env
}

func NewStationsStep(env *Env) *StationsStep {
	return &StationsStep{BaseStep: NewBaseStep(StepIDStations, StepNameStations), env: env}
}

func (s *StationsStep) Validate(*OperationState) error {
	return s.env.validator().ValidateCSVFile(s.env.Paths.StationsRawCSV)
}

func (s *StationsStep) Execute(ctx context.Context, state *OperationState) error {
	n, err := stations.NewExtractor(s.env.Paths, s.env.Writer, s.env.Config.Stations, s.env.Logger).Extract(ctx)
	if err != nil {
		return err
	}
	state.GetStep(s.ID()).SetMetadata("stations", n)
	state.SetContext(ContextKeyStations, n)
	return nil
}

// IndexStep scans the speciation archive and writes the master index.
type IndexStep struct {
	BaseStep
	env *Env
}

func NewIndexStep(env *Env) *IndexStep {
	return &IndexStep{BaseStep: NewBaseStep(StepIDIndex, StepNameIndex), env: env}
}

func (s *IndexStep) Validate(state *OperationState) error {
	return s.env.validator().ValidateArchive(s.env.Paths.SpeciationDir, s.env.years(state))
}

func (s *IndexStep) Execute(ctx context.Context, state *OperationState) error {
	builder := index.NewBuilder(s.env.Logger, s.env.Config.Archive.Charset,
		index.WithOpener(s.env.opener()),
		index.WithMetrics(s.env.Metrics))

	entries, err := builder.Build(ctx, s.env.Paths.SpeciationDir, s.env.years(state))
	if err != nil {
		return err
	}
	if err := s.env.indexStore().Save(entries); err != nil {
		return err
	}

	st := state.GetStep(s.ID())
	st.SetMetadata("entries", len(entries))
	st.SetMetadata("undetermined", index.CountUndetermined(entries))
	state.SetContext(ContextKeyIndexEntries, len(entries))
	return nil
}

// CorrectStep applies the checked-frequency, drop and override passes.
type CorrectStep struct {
	BaseStep
	env *Env
}

func NewCorrectStep(env *Env) *CorrectStep {
	return &CorrectStep{BaseStep: NewBaseStep(StepIDCorrect, StepNameCorrect, StepIDIndex), env: env}
}

func (s *CorrectStep) Validate(*OperationState) error {
	v := s.env.validator()
	for _, path := range []string{s.env.Paths.IndexCSV, s.env.Paths.CheckedFrequencyCSV, s.env.Paths.CorrectionsYAML} {
		if err := v.ValidateFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *CorrectStep) Execute(ctx context.Context, state *OperationState) error {
	corrections, err := index.LoadCorrections(s.env.Paths.CheckedFrequencyCSV, s.env.Paths.CorrectionsYAML, s.env.Logger)
	if err != nil {
		return err
	}
	st := s.env.indexStore()
	if err := corrections.ApplyAll(ctx, st, s.env.Logger); err != nil {
		return err
	}

	entries, err := st.Load()
	if err != nil {
		return err
	}
	s.env.Metrics.IndexSize(ctx, len(entries))
	state.GetStep(s.ID()).SetMetadata("entries", len(entries))
	state.SetContext(ContextKeyIndexEntries, len(entries))
	return nil
}

// ExtractStep writes the processed per-(year, site) tables.
type ExtractStep struct {
	BaseStep
	env *Env
}

func NewExtractStep(env *Env) *ExtractStep {
	return &ExtractStep{BaseStep: NewBaseStep(StepIDExtract, StepNameExtract, StepIDCorrect), env: env}
}

func (s *ExtractStep) Validate(state *OperationState) error {
	v := s.env.validator()
	for _, path := range []string{s.env.Paths.IndexCSV, s.env.Paths.ColumnNamesCSV, s.env.Paths.ColumnNamesPre2010IonsCSV} {
		if err := v.ValidateFile(path); err != nil {
			return err
		}
	}
	return v.ValidateOutputDirectory(s.env.Paths.ProcessedDir)
}

func (s *ExtractStep) Execute(ctx context.Context, state *OperationState) error {
	general, err := dataprocessing.LoadColumnMapping(s.env.Paths.ColumnNamesCSV)
	if err != nil {
		return err
	}
	ions, err := dataprocessing.LoadColumnMapping(s.env.Paths.ColumnNamesPre2010IonsCSV)
	if err != nil {
		return err
	}
	ix, err := index.Open(s.env.indexStore())
	if err != nil {
		return err
	}

	open := s.env.opener()
	runner := extract.NewRunner(s.env.Paths.SpeciationDir, s.env.Paths, s.env.Writer,
		extract.NewLegacy(general, ions, open, s.env.Logger),
		extract.NewModern(general, open, s.env.Logger),
		s.env.Metrics, s.env.Logger)

	sum, err := runner.Run(ctx, ix, s.env.years(state))
	if sum != nil {
		st := state.GetStep(s.ID())
		st.SetMetadata("files_written", len(sum.Written))
		st.SetMetadata("rows", sum.Rows)
		st.SetMetadata("files_skipped", len(sum.Skipped))
		state.SetContext(ContextKeyFilesWritten, sum.Written)
	}
	return err
}

// ApportionStep writes the PMF input files of the requested sites.
type ApportionStep struct {
	BaseStep
	env *Env
}

func NewApportionStep(env *Env) *ApportionStep {
	return &ApportionStep{BaseStep: NewBaseStep(StepIDApportion, StepNameApportion, StepIDExtract), env: env}
}

func (s *ApportionStep) Validate(state *OperationState) error {
	if len(state.Request.Sites) == 0 {
		return apperrors.NewAppValidationError("apportion needs at least one site")
	}
	v := s.env.validator()
	if err := v.ValidateFile(s.env.Paths.IndexCSV); err != nil {
		return err
	}
	return v.ValidateFile(s.env.Paths.AbbreviationsCSV)
}

func (s *ApportionStep) Execute(ctx context.Context, state *OperationState) error {
	abbr, err := dataprocessing.LoadAbbreviations(s.env.Paths.AbbreviationsCSV)
	if err != nil {
		return err
	}
	ix, err := index.Open(s.env.indexStore())
	if err != nil {
		return err
	}

	results, err := apportion.NewBuilder(s.env.Paths, ix, abbr, s.env.Writer, s.env.Metrics, s.env.Logger).
		Build(ctx, state.Request.Sites)
	files, rows := 0, 0
	for _, r := range results {
		files += len(r.Written)
		rows += r.Rows
	}
	st := state.GetStep(s.ID())
	st.SetMetadata("sites", len(results))
	st.SetMetadata("files_written", files)
	st.SetMetadata("rows", rows)
	return err
}

// ContinuousStep reshapes the hourly PM2.5 files into per-site tables.
type ContinuousStep struct {
	BaseStep
	env *Env
}

func NewContinuousStep(env *Env) *ContinuousStep {
	return &ContinuousStep{BaseStep: NewBaseStep(StepIDContinuous, StepNameContinuous), env: env}
}

func (s *ContinuousStep) Validate(*OperationState) error {
	return s.env.validator().ValidateInputDirectory(s.env.Paths.ContinuousRawDir, continuous.FilePrefix+"*.csv")
}

func (s *ContinuousStep) Execute(ctx context.Context, state *OperationState) error {
	years := state.Request.Years
	if len(years) == 0 {
		years = s.env.Config.Archive.ContinuousYears()
	}
	sum, err := continuous.NewExtractor(s.env.Paths, s.env.Writer, s.env.Metrics, s.env.Logger).
		Run(ctx, years, state.Request.Sites)
	if err != nil {
		return err
	}
	st := state.GetStep(s.ID())
	st.SetMetadata("readings", sum.Readings)
	st.SetMetadata("files_written", len(sum.Written))
	st.SetMetadata("files_skipped", len(sum.Skipped))
	return nil
}

// CoverageStep writes the site by year availability report.
type CoverageStep struct {
	BaseStep
	env *Env
}

func NewCoverageStep(env *Env) *CoverageStep {
	return &CoverageStep{BaseStep: NewBaseStep(StepIDCoverage, StepNameCoverage, StepIDCorrect, StepIDStations), env: env}
}

func (s *CoverageStep) Validate(*OperationState) error {
	v := s.env.validator()
	if err := v.ValidateFile(s.env.Paths.IndexCSV); err != nil {
		return err
	}
	return v.ValidateFile(s.env.Paths.StationsCSV)
}

func (s *CoverageStep) Execute(ctx context.Context, state *OperationState) error {
	ix, err := index.Open(s.env.indexStore())
	if err != nil {
		return err
	}
	dir, err := stations.Load(s.env.Paths.StationsCSV)
	if err != nil {
		return err
	}

	report := coverage.Build(ix, dir.Names(), state.Request.Analyte)
	if err := report.Write(s.env.Writer, s.env.Paths.CoverageCSV); err != nil {
		return err
	}
	if len(report.Unnamed) > 0 {
		s.env.Logger.WarnContext(ctx, "sites without station metadata left out of coverage",
			slog.Any("site_ids", report.Unnamed))
	}
	st := state.GetStep(s.ID())
	st.SetMetadata("sites", len(report.Rows))
	st.SetMetadata("years", len(report.Years))
	return nil
}

// CatalogStep mirrors the corrected index and the stations into SQLite.
type CatalogStep struct {
	BaseStep
	env *Env
}

func NewCatalogStep(env *Env) *CatalogStep {
	return &CatalogStep{BaseStep: NewBaseStep(StepIDCatalog, StepNameCatalog, StepIDCorrect, StepIDStations), env: env}
}

func (s *CatalogStep) Validate(*OperationState) error {
	v := s.env.validator()
	if err := v.ValidateFile(s.env.Paths.IndexCSV); err != nil {
		return err
	}
	return v.ValidateFile(s.env.Paths.StationsCSV)
}

func (s *CatalogStep) Execute(ctx context.Context, state *OperationState) error {
	entries, err := s.env.indexStore().Load()
	if err != nil {
		return err
	}
	dir, err := stations.Load(s.env.Paths.StationsCSV)
	if err != nil {
		return err
	}

	catalog, err := store.Open(s.env.Paths.CatalogDB, s.env.Logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	if err := catalog.ReplaceIndex(ctx, entries); err != nil {
		return err
	}
	if err := catalog.ReplaceStations(ctx, dir.All()); err != nil {
		return err
	}
	st := state.GetStep(s.ID())
	st.SetMetadata("entries", len(entries))
	st.SetMetadata("stations", dir.Len())
	return nil
}
