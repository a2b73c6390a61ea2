// Package operations runs the napsidx pipeline as a sequence of steps.
//
// The batch order stations → index → correct → extract → apportion is
// not hard-coded in a scheduler: every Step names the steps it depends on
// and the Registry orders whatever subset a run asks for. A dependency
// that is not part of the run is assumed to have produced its files in an
// earlier run; each step's Validate checks that those files exist.
//
// Core components:
//
// Manager: executes a run sequentially, wraps it and every step in an
// OpenTelemetry span, records step durations, retries storage failures
// and skips the dependents of a failed step.
//
// Step: one unit of work. Steps in steps.go wrap the domain packages
// (stations, index, extract, apportion, continuous, coverage, store).
//
// Registry: registration order plus dependency-aware planning.
//
// State: the runtime record of a run and of each step, including the
// figures a step reports in its metadata.
//
// Example usage:
//
//	registry, err := operations.NewPipeline(env)
//	manager := operations.NewManager(registry, nil, tracer, logger)
//	resp, err := manager.Execute(ctx, operations.OperationRequest{
//		Steps: operations.DefaultPipeline,
//		Years: []int{2015, 2016},
//	})
package operations
