package task

import (
	"slices"
	"sort"
	"sync"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Registry is the single source of truth for the task graph.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task. A second registration of the same name fails with ErrDuplicateTask.
func (r *Registry) Register(t Task) error {
	if t.Name == "" {
		return ferrors.ValidationError("task name cannot be empty").Build()
	}
	if t.Run == nil {
		return ferrors.ValidationError("task has no work function").WithContext("task", t.Name).Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[t.Name]; exists {
		return duplicateTask(t.Name)
	}
	t.Deps = slices.Clone(t.Deps)
	t.After = slices.Clone(t.After)
	r.tasks[t.Name] = t
	return nil
}

// Get returns the named task or ErrUnknownTask.
func (r *Registry) Get(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	if !ok {
		return Task{}, unknownTask(name, "")
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[name]
	return ok
}

// Names returns all registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Validate checks that every Deps and After reference is registered and that the
// graph has no cycle. Cycle detection itself is shared with the sequencer through
// FindCycle.
func (r *Registry) Validate() error {
	for _, name := range r.Names() {
		t, _ := r.Get(name)
		for _, ref := range t.Edges() {
			if !r.Has(ref) {
				return unknownTask(ref, name)
			}
		}
	}
	if cycle := r.FindCycle(r.Names()); len(cycle) > 0 {
		return CycleError(cycle)
	}
	return nil
}
