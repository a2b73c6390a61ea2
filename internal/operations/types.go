package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDStations   = "stations"
	StepIDIndex      = "index"
	StepIDCorrect    = "correct"
	StepIDExtract    = "extract"
	StepIDApportion  = "apportion"
	StepIDContinuous = "continuous"
	StepIDCoverage   = "coverage"
	StepIDCatalog    = "catalog"
)

// Pipeline step names
const (
	StepNameStations   = "Station Metadata"
	StepNameIndex      = "Index Build"
	StepNameCorrect    = "Index Corrections"
	StepNameExtract    = "Workbook Extraction"
	StepNameApportion  = "Source Apportionment Inputs"
	StepNameContinuous = "Continuous PM2.5"
	StepNameCoverage   = "Coverage Report"
	StepNameCatalog    = "Catalog Load"
)

// DefaultPipeline is what `run` executes when no step is named.
var DefaultPipeline = []string{StepIDStations, StepIDIndex, StepIDCorrect, StepIDExtract}

// Context keys for values handed from one step to the next
const (
	ContextKeyIndexEntries = "index_entries"
	ContextKeyStations     = "stations"
	ContextKeyFilesWritten = "files_written"
)

// Default timeouts
const (
	DefaultStepTimeout    = 30 * time.Minute
	DefaultIndexTimeout   = 60 * time.Minute
	DefaultExtractTimeout = 90 * time.Minute
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay" yaml:"max_delay"`
	Multiplier   float64       `json:"multiplier" yaml:"multiplier"`
}

// NewRetryConfig returns the default retry configuration: a step runs
// once, and a retryable failure is tried once more after a second.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest selects the steps of one run and their parameters.
type OperationRequest struct {
	ID string `json:"id"`
	// Steps to run; empty means DefaultPipeline.
	Steps []string `json:"steps,omitempty"`
	// Years to index and extract; empty means the configured archive range.
	Years []int `json:"years,omitempty"`
	// Sites for apportion and continuous.
	Sites []int `json:"sites,omitempty"`
	// Analyte narrows the coverage report.
	Analyte string `json:"analyte,omitempty"`
}

// OperationResponse summarises a finished run.
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Order    []string              `json:"order"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
