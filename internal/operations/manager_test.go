package operations_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "napsidx/internal/errors"
	"napsidx/internal/operations"
	"napsidx/internal/operations/testutil"
	sharedtestutil "napsidx/internal/shared/testutil"
)

func newManager(t *testing.T, config *operations.Config, steps ...operations.Step) (*operations.Manager, *sharedtestutil.BufferedSlogHandler) {
	t.Helper()
	registry := operations.NewRegistry()
	for _, s := range steps {
		require.NoError(t, registry.Register(s))
	}
	logger, logs := sharedtestutil.NewTestLogger(t)
	return operations.NewManager(registry, config, nil, logger), logs
}

func noRetry() *operations.Config {
	return operations.NewConfigBuilder().
		WithRetryConfig(operations.RetryConfig{MaxAttempts: 1}).
		Build()
}

func TestManagerExecute(t *testing.T) {
	var rec testutil.Recorder
	index := rec.NewStep("index")
	index.ExecuteFunc = func(_ context.Context, state *operations.OperationState) error {
		state.GetStep("index").SetMetadata("entries", 42)
		state.SetContext(operations.ContextKeyIndexEntries, 42)
		return nil
	}
	correct := rec.NewStep("correct", "index")
	correct.ExecuteFunc = func(_ context.Context, state *operations.OperationState) error {
		n, ok := state.GetContext(operations.ContextKeyIndexEntries)
		require.True(t, ok)
		assert.Equal(t, 42, n)
		return nil
	}
	m, logs := newManager(t, nil, correct, index, rec.NewStep("extract", "correct"))

	resp, err := m.Execute(context.Background(), operations.OperationRequest{
		ID:    "run-1",
		Steps: []string{"extract", "correct", "index"},
		Years: []int{2015},
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.Equal(t, []string{"index", "correct", "extract"}, resp.Order)
	assert.Equal(t, []string{"index", "correct", "extract"}, rec.Order)
	for _, id := range resp.Order {
		assert.Equal(t, operations.StepStatusCompleted, resp.Steps[id].Status, id)
		assert.Equal(t, 1, resp.Steps[id].Attempts, id)
	}
	assert.Equal(t, 42, resp.Steps["index"].Metadata["entries"])
	assert.Empty(t, resp.Error)

	sharedtestutil.AssertLogContains(t, logs, slog.LevelInfo, "operation finished")
	assert.True(t, logs.ContainsAttr("entries", int64(42)))
}

func TestManagerExecuteDefaults(t *testing.T) {
	var rec testutil.Recorder
	var steps []operations.Step
	for _, id := range operations.DefaultPipeline {
		steps = append(steps, rec.NewStep(id))
	}
	steps = append(steps, rec.NewStep(operations.StepIDCoverage))
	m, _ := newManager(t, nil, steps...)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, operations.DefaultPipeline, rec.Order)
}

func TestManagerFailureSkipsRest(t *testing.T) {
	var rec testutil.Recorder
	boom := apperrors.NewResolutionError("no layout for 2021")
	m, logs := newManager(t, noRetry(),
		rec.NewStep("stations"),
		rec.NewFailingStep("index", boom),
		rec.NewStep("correct", "index"),
		rec.NewStep("continuous"),
	)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{
		Steps: []string{"stations", "index", "correct", "continuous"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrResolution))
	assert.Equal(t, operations.ErrorTypeExecution, operations.GetErrorType(err))

	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, []string{"stations", "index"}, rec.Order)
	assert.Equal(t, operations.StepStatusFailed, resp.Steps["index"].Status)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["correct"].Status)
	assert.Contains(t, resp.Steps["correct"].Message, "dependency index")
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["continuous"].Status)
	assert.Contains(t, resp.Error, "no layout for 2021")

	sharedtestutil.AssertLogContains(t, logs, slog.LevelError, "step failed")
	assert.True(t, logs.ContainsAttr("step", "index"))
}

func TestManagerContinueOnError(t *testing.T) {
	var rec testutil.Recorder
	config := noRetry()
	config.ContinueOnError = true
	m, _ := newManager(t, config,
		rec.NewFailingStep("index", testutil.ErrMock),
		rec.NewStep("correct", "index"),
		rec.NewStep("continuous"),
	)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{
		Steps: []string{"index", "correct", "continuous"},
	})
	require.ErrorIs(t, err, testutil.ErrMock)
	assert.Equal(t, []string{"index", "continuous"}, rec.Order)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["correct"].Status)
	assert.Equal(t, operations.StepStatusCompleted, resp.Steps["continuous"].Status)
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
}

func TestManagerValidationFailure(t *testing.T) {
	var rec testutil.Recorder
	apportion := rec.NewStep("apportion")
	apportion.ValidateFunc = func(state *operations.OperationState) error {
		if len(state.Request.Sites) == 0 {
			return apperrors.NewAppValidationError("apportion needs at least one site")
		}
		return nil
	}
	m, _ := newManager(t, nil, apportion)

	_, err := m.Execute(context.Background(), operations.OperationRequest{Steps: []string{"apportion"}})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Zero(t, apportion.ExecuteCalls())

	_, err = m.Execute(context.Background(), operations.OperationRequest{Steps: []string{"apportion"}, Sites: []int{10102}})
	require.NoError(t, err)
	assert.Equal(t, 1, apportion.ExecuteCalls())
}

func TestManagerRetriesStorageErrors(t *testing.T) {
	var rec testutil.Recorder
	attempts := 0
	flaky := rec.NewStep("catalog")
	flaky.ExecuteFunc = func(context.Context, *operations.OperationState) error {
		attempts++
		if attempts == 1 {
			return apperrors.NewStorageError("database is locked", nil)
		}
		return nil
	}
	config := operations.NewConfigBuilder().
		WithRetryConfig(operations.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}).
		Build()
	m, logs := newManager(t, config, flaky)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{Steps: []string{"catalog"}})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, resp.Steps["catalog"].Attempts)
	sharedtestutil.AssertLogContains(t, logs, slog.LevelWarn, "step retry")

	t.Run("data errors are not retried", func(t *testing.T) {
		var rec testutil.Recorder
		bad := rec.NewFailingStep("extract", apperrors.NewDataError("no usable rows"))
		m, _ := newManager(t, config, bad)
		_, err := m.Execute(context.Background(), operations.OperationRequest{Steps: []string{"extract"}})
		require.Error(t, err)
		assert.Equal(t, 1, bad.ExecuteCalls())
	})
}

func TestManagerTimeout(t *testing.T) {
	var rec testutil.Recorder
	slow := rec.NewStep("index")
	slow.ExecuteFunc = func(ctx context.Context, _ *operations.OperationState) error {
		<-ctx.Done()
		return ctx.Err()
	}
	config := noRetry()
	config.SetStepTimeout("index", 10*time.Millisecond)
	m, _ := newManager(t, config, slow)

	resp, err := m.Execute(context.Background(), operations.OperationRequest{Steps: []string{"index"}})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeTimeout, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
}

func TestManagerCancellation(t *testing.T) {
	var rec testutil.Recorder
	ctx, cancel := context.WithCancel(context.Background())
	first := rec.NewStep("stations")
	first.ExecuteFunc = func(context.Context, *operations.OperationState) error {
		cancel()
		return nil
	}
	m, _ := newManager(t, nil, first, rec.NewStep("index"))

	resp, err := m.Execute(ctx, operations.OperationRequest{Steps: []string{"stations", "index"}})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusCancelled, resp.Status)
	assert.Equal(t, []string{"stations"}, rec.Order)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["index"].Status)
}

func TestManagerUnknownStep(t *testing.T) {
	m, _ := newManager(t, nil)
	resp, err := m.Execute(context.Background(), operations.OperationRequest{Steps: []string{"plot"}})
	require.Error(t, err)
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, operations.ErrorTypeNotFound, operations.GetErrorType(err))
}
