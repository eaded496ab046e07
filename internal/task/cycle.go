package task

import (
	"errors"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// ErrCyclicDependency is returned when the task graph contains a cycle.
var ErrCyclicDependency = errors.New("cyclic dependency")

// CycleError builds the classified cycle error. The first element names one cycle member.
func CycleError(cycle []string) error {
	member := ""
	if len(cycle) > 0 {
		member = cycle[0]
	}
	return ferrors.GraphError("cyclic dependency: "+strings.Join(cycle, " -> ")).
		WithCause(ErrCyclicDependency).
		WithContext("task", member).
		WithContext("cycle", cycle).
		Build()
}

// FindCycle searches the subgraph induced by names (Deps and After edges whose both
// ends are in names) and returns one cycle as a closed path, e.g. [a b a], or nil.
// The search is iterative depth-first and visits each node once.
func (r *Registry) FindCycle(names []string) []string {
	in := make(map[string]bool, len(names))
	for _, n := range names {
		in[n] = true
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(names))

	type frame struct {
		name  string
		edges []string
		next  int
	}

	for _, start := range names {
		if color[start] != white {
			continue
		}
		stack := []frame{{name: start, edges: r.edges(start, in)}}
		color[start] = grey
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next == len(top.edges) {
				color[top.name] = black
				stack = stack[:len(stack)-1]
				continue
			}
			next := top.edges[top.next]
			top.next++
			switch color[next] {
			case white:
				color[next] = grey
				stack = append(stack, frame{name: next, edges: r.edges(next, in)})
			case grey:
				var path []string
				for i := range stack {
					if stack[i].name == next || len(path) > 0 {
						path = append(path, stack[i].name)
					}
				}
				return append(path, next)
			}
		}
	}
	return nil
}

func (r *Registry) edges(name string, in map[string]bool) []string {
	r.mu.RLock()
	t, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	var out []string
	for _, e := range t.Edges() {
		if in[e] {
			out = append(out, e)
		}
	}
	return out
}
