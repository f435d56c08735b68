// Package domain contains the core domain models of the asset pipeline.
package domain

import (
	"slices"
	"strconv"
	"sync"

	"go.trai.ch/zerr"
)

// Registry holds the named tasks of a pipeline.
// Tasks are registered during startup; Seal ends that phase.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	sealed bool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*Task),
	}
}

// Register adds a task to the registry.
// It returns ErrDuplicateTask if a task with the same name already exists,
// leaving the existing task untouched.
func (r *Registry) Register(t *Task) error {
	if t == nil || t.Name == "" {
		return ErrInvalidTaskName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return zerr.With(zerr.Wrap(ErrRegistrySealed, "register "+strconv.Quote(t.Name)), "task", t.Name)
	}
	if _, exists := r.tasks[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrDuplicateTask, "register "+strconv.Quote(t.Name)), "task", t.Name)
	}

	stored := *t
	stored.Dependencies = slices.Clone(t.Dependencies)
	stored.Outputs = slices.Clone(t.Outputs)
	stored.Sources = slices.Clone(t.Sources)
	r.tasks[t.Name] = &stored
	return nil
}

// Resolve returns the task registered under name.
func (r *Registry) Resolve(name string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[name]
	if !ok {
		return nil, UnknownTask(name)
	}
	return t, nil
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Tasks returns the registered tasks sorted by name.
func (r *Registry) Tasks() []*Task {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*Task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, r.tasks[name])
	}
	return tasks
}

// Seal validates every dependency reference, rejects cycles and closes the
// registry for further registration.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateLocked(); err != nil {
		return err
	}
	r.sealed = true
	return nil
}

// ValidateRules checks that every task named by the rules is registered.
func (r *Registry) ValidateRules(rules []WatchRule) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range rules {
		for _, name := range rule.Tasks {
			if _, ok := r.tasks[name]; !ok {
				return zerr.With(UnknownTask(name), "patterns", rule.Patterns)
			}
		}
	}
	return nil
}

// validateLocked walks the dependency graph depth-first.
// Names are visited in sorted order so the reported cycle is deterministic.
func (r *Registry) validateLocked() error {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	visited := make(map[string]int, len(r.tasks)) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		visited[name] = 1
		path = append(path, name)

		task := r.tasks[name]
		for _, dep := range task.Dependencies {
			if _, ok := r.tasks[dep]; !ok {
				return zerr.With(UnknownTask(dep), "required_by", name)
			}
			switch visited[dep] {
			case 1:
				return buildCycleError(path, dep)
			case 0:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[name] = 2
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range names {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnknownTask returns an ErrUnknownTask error naming the missing task.
func UnknownTask(name string) error {
	return zerr.With(zerr.Wrap(ErrUnknownTask, strconv.Quote(name)), "task", name)
}

// buildCycleError constructs an error with cycle path metadata.
func buildCycleError(path []string, dep string) error {
	start := slices.Index(path, dep)
	cycle := ""
	for _, node := range path[start:] {
		cycle += node + " -> "
	}
	cycle += dep
	return zerr.With(zerr.Wrap(ErrCycleDetected, cycle), "cycle", cycle)
}
