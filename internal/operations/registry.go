package operations

import (
	"fmt"
	"slices"
	"sync"
)

// Registry manages registered pipeline steps
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string // registration order
}

// NewRegistry creates an empty step registry
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]Step),
	}
}

// Register adds a step to the registry
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}

	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("step with ID %s already registered", id)
	}

	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a step by ID
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[id]
	if !exists {
		return nil, NewStepNotFoundError(id)
	}
	return step, nil
}

// Has checks if a step is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.steps[id]
	return exists
}

// ListIDs returns all registered step IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Count returns the number of registered steps
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

// GetDependencyOrder returns every registered step ordered by dependencies
func (r *Registry) GetDependencyOrder() ([]Step, error) {
	return r.Plan(r.ListIDs())
}

// Plan orders the named steps so each follows the dependencies that are
// also named. Dependencies outside ids are assumed to have run before;
// ties keep registration order.
func (r *Registry) Plan(ids []string) ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.steps[id]; !ok {
			return nil, NewStepNotFoundError(id)
		}
		selected[id] = true
	}

	graph := make(map[string][]string)
	inDegree := make(map[string]int)
	for id := range selected {
		for _, dep := range r.steps[id].GetDependencies() {
			if _, ok := r.steps[dep]; !ok {
				return nil, fmt.Errorf("step %s depends on non-existent step %s", id, dep)
			}
			if !selected[dep] {
				continue
			}
			graph[dep] = append(graph[dep], id)
			inDegree[id]++
		}
	}

	// Kahn's algorithm; ready steps are drained in registration order
	var ordered []Step
	done := make(map[string]bool, len(selected))
	for len(ordered) < len(selected) {
		progressed := false
		for _, id := range r.order {
			if !selected[id] || done[id] || inDegree[id] > 0 {
				continue
			}
			done[id] = true
			ordered = append(ordered, r.steps[id])
			for _, dependent := range graph[id] {
				inDegree[dependent]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("dependency cycle detected")
		}
	}
	return ordered, nil
}

// GetDependents returns the IDs of steps that depend on the given step,
// directly or through another step.
func (r *Registry) GetDependents(stepID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	queue := []string{stepID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, id := range r.order {
			if slices.Contains(r.steps[id].GetDependencies(), current) && !slices.Contains(out, id) {
				out = append(out, id)
				queue = append(queue, id)
			}
		}
	}
	return out
}
