package cpm

import (
	"github.com/joshharrison/critpath/internal/graph"
)

// TraceFromTask returns every task reachable forward from id through
// successor links, including id itself.
func (e *Engine) TraceFromTask(g *graph.TaskGraph, id string) graph.TaskSet {
	return e.Trace(g, id, TraceForward)
}

// TraceToTask returns every task that reaches id through predecessor links,
// including id itself.
func (e *Engine) TraceToTask(g *graph.TaskGraph, id string) graph.TaskSet {
	return e.Trace(g, id, TraceBackward)
}

// Trace runs a breadth-first search from id in the given direction. The
// search stops early, returning what it found so far, once MaxTraceTasks
// tasks have been discovered or MaxTraceIterations queue pops made.
func (e *Engine) Trace(g *graph.TaskGraph, id string, mode TraceMode) graph.TaskSet {
	set := graph.TaskSet{}
	if id == "" {
		return set
	}
	set.Add(id)
	if g == nil {
		return set
	}

	next := func(id string) []string {
		if mode == TraceForward {
			return g.Successors[id]
		}
		if t, ok := g.Tasks[id]; ok {
			return t.Predecessors
		}
		return nil
	}

	queue := []string{id}
	for iterations := 0; len(queue) > 0; iterations++ {
		if iterations >= MaxTraceIterations {
			e.log.Warn("trace stopped early: iteration limit reached",
				"task", id, "direction", string(mode), "iterations", iterations, "found", len(set))
			return set
		}
		cur := queue[0]
		queue = queue[1:]

		for _, n := range next(cur) {
			if set.Has(n) {
				continue
			}
			if len(set) >= MaxTraceTasks {
				e.log.Warn("trace stopped early: task limit reached",
					"task", id, "direction", string(mode), "found", len(set))
				return set
			}
			set.Add(n)
			queue = append(queue, n)
		}
	}
	return set
}
