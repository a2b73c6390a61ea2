// Package testutil provides configurable steps for exercising the
// operations manager without touching the archive.
package testutil

import (
	"context"
	"errors"
	"sync"

	"napsidx/internal/operations"
)

// MockStep is a configurable implementation of operations.Step
type MockStep struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string

	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	mu           sync.Mutex
	executeCalls int
	log          *[]string
}

// ID returns the step ID
func (m *MockStep) ID() string {
	return m.IDValue
}

// Name returns the step name
func (m *MockStep) Name() string {
	if m.NameValue == "" {
		return m.IDValue
	}
	return m.NameValue
}

// GetDependencies returns the step dependencies
func (m *MockStep) GetDependencies() []string {
	return m.DependenciesValue
}

// Execute records the call and runs ExecuteFunc when set
func (m *MockStep) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.executeCalls++
	if m.log != nil {
		*m.log = append(*m.log, m.IDValue)
	}
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate runs ValidateFunc when set
func (m *MockStep) Validate(state *operations.OperationState) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// ExecuteCalls returns the number of Execute calls
func (m *MockStep) ExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executeCalls
}

// Recorder collects the order in which steps execute.
type Recorder struct {
	Order []string
}

// NewStep creates a succeeding step that records into r.
func (r *Recorder) NewStep(id string, deps ...string) *MockStep {
	return &MockStep{IDValue: id, DependenciesValue: deps, log: &r.Order}
}

// NewFailingStep creates a step whose Execute returns err.
func (r *Recorder) NewFailingStep(id string, err error, deps ...string) *MockStep {
	s := r.NewStep(id, deps...)
	s.ExecuteFunc = func(context.Context, *operations.OperationState) error { return err }
	return s
}

// ErrMock is the default failure of mock steps.
var ErrMock = errors.New("mock step failed")
