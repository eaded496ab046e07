package sequencer

import (
	"slices"
	"sort"

	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// ExecutionPlan is an ordered list of stages. Tasks inside a stage have no ordering
// guarantee relative to each other; names are sorted for stable output only.
type ExecutionPlan struct {
	Goals  []string
	Stages [][]string
	// Edges maps each planned task to the planned tasks it waits for.
	Edges map[string][]string
}

// Len returns the number of tasks in the plan.
func (p *ExecutionPlan) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, s := range p.Stages {
		n += len(s)
	}
	return n
}

// Empty reports whether the plan contains no task.
func (p *ExecutionPlan) Empty() bool { return p.Len() == 0 }

// Tasks returns the planned task names in stage order.
func (p *ExecutionPlan) Tasks() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, p.Len())
	for _, s := range p.Stages {
		out = append(out, s...)
	}
	return out
}

// StageOf returns the stage index of name, or -1.
func (p *ExecutionPlan) StageOf(name string) int {
	if p == nil {
		return -1
	}
	for i, s := range p.Stages {
		if slices.Contains(s, name) {
			return i
		}
	}
	return -1
}

// Plan computes the execution plan for a single goal.
func Plan(reg *task.Registry, goal string) (*ExecutionPlan, error) {
	return PlanGoals(reg, goal)
}

// PlanGoals computes the minimal plan that completes every goal. The closure follows
// Deps only; After edges order tasks already in the closure. With no goals the plan
// is empty.
func PlanGoals(reg *task.Registry, goals ...string) (*ExecutionPlan, error) {
	plan := &ExecutionPlan{Edges: map[string][]string{}}
	goals = dedupe(goals)
	plan.Goals = goals
	if len(goals) == 0 {
		return plan, nil
	}

	closure, err := dependencyClosure(reg, goals)
	if err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(closure))
	dependents := make(map[string][]string, len(closure))
	for name := range closure {
		t, _ := reg.Get(name)
		var waits []string
		for _, e := range dedupe(t.Edges()) {
			if !closure[e] {
				continue
			}
			waits = append(waits, e)
			dependents[e] = append(dependents[e], name)
		}
		sort.Strings(waits)
		plan.Edges[name] = waits
		inDegree[name] = len(waits)
	}

	var current []string
	for name := range closure {
		if inDegree[name] == 0 {
			current = append(current, name)
		}
	}
	sort.Strings(current)

	placed := 0
	for len(current) > 0 {
		plan.Stages = append(plan.Stages, current)
		placed += len(current)
		var next []string
		for _, name := range current {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		current = next
	}

	if placed != len(closure) {
		var remaining []string
		for name := range closure {
			if inDegree[name] > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		cycle := reg.FindCycle(remaining)
		if len(cycle) == 0 {
			cycle = remaining[:1]
		}
		return nil, task.CycleError(cycle)
	}
	return plan, nil
}

// dependencyClosure returns every task reachable from goals over Deps.
func dependencyClosure(reg *task.Registry, goals []string) (map[string]bool, error) {
	closure := make(map[string]bool)
	queue := slices.Clone(goals)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if closure[name] {
			continue
		}
		t, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		closure[name] = true
		for _, dep := range t.Deps {
			if !reg.Has(dep) {
				_, err := reg.Get(dep)
				return nil, err
			}
			queue = append(queue, dep)
		}
	}
	return closure, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
