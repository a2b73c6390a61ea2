package operations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"napsidx/internal/operations"
	"napsidx/internal/operations/testutil"
)

func stepIDs(steps []operations.Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID()
	}
	return ids
}

func TestRegistryRegister(t *testing.T) {
	var rec testutil.Recorder
	registry := operations.NewRegistry()

	require.NoError(t, registry.Register(rec.NewStep("a")))
	require.NoError(t, registry.Register(rec.NewStep("b")))
	assert.Equal(t, 2, registry.Count())
	assert.Equal(t, []string{"a", "b"}, registry.ListIDs())
	assert.True(t, registry.Has("a"))

	assert.Error(t, registry.Register(rec.NewStep("a")), "duplicate id")
	assert.Error(t, registry.Register(rec.NewStep("")), "empty id")
	assert.Error(t, registry.Register(nil))

	_, err := registry.Get("missing")
	assert.Equal(t, operations.ErrorTypeNotFound, operations.GetErrorType(err))
}

func TestRegistryPlan(t *testing.T) {
	var rec testutil.Recorder
	registry := operations.NewRegistry()
	// registered out of dependency order on purpose
	for _, s := range []operations.Step{
		rec.NewStep("extract", "correct"),
		rec.NewStep("stations"),
		rec.NewStep("correct", "index"),
		rec.NewStep("index"),
		rec.NewStep("coverage", "correct", "stations"),
	} {
		require.NoError(t, registry.Register(s))
	}

	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"everything", registry.ListIDs(), []string{"stations", "index", "correct", "extract", "coverage"}},
		{"subset keeps dependency order", []string{"extract", "index", "correct"}, []string{"index", "correct", "extract"}},
		{"dependencies outside the run are ignored", []string{"extract"}, []string{"extract"}},
		{"independent steps keep registration order", []string{"index", "stations"}, []string{"stations", "index"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := registry.Plan(tt.ids)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stepIDs(steps))
		})
	}

	t.Run("unknown step", func(t *testing.T) {
		_, err := registry.Plan([]string{"index", "plot"})
		assert.Equal(t, operations.ErrorTypeNotFound, operations.GetErrorType(err))
	})
}

func TestRegistryPlanErrors(t *testing.T) {
	var rec testutil.Recorder

	t.Run("missing dependency", func(t *testing.T) {
		registry := operations.NewRegistry()
		require.NoError(t, registry.Register(rec.NewStep("correct", "index")))
		_, err := registry.GetDependencyOrder()
		assert.ErrorContains(t, err, "non-existent step index")
	})

	t.Run("cycle", func(t *testing.T) {
		registry := operations.NewRegistry()
		require.NoError(t, registry.Register(rec.NewStep("a", "b")))
		require.NoError(t, registry.Register(rec.NewStep("b", "a")))
		_, err := registry.GetDependencyOrder()
		assert.ErrorContains(t, err, "cycle")
	})
}

func TestRegistryGetDependents(t *testing.T) {
	var rec testutil.Recorder
	registry := operations.NewRegistry()
	require.NoError(t, registry.Register(rec.NewStep("index")))
	require.NoError(t, registry.Register(rec.NewStep("correct", "index")))
	require.NoError(t, registry.Register(rec.NewStep("extract", "correct")))
	require.NoError(t, registry.Register(rec.NewStep("continuous")))

	assert.Equal(t, []string{"correct", "extract"}, registry.GetDependents("index"))
	assert.Empty(t, registry.GetDependents("continuous"))
}
