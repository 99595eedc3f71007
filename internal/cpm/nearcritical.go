package cpm

import (
	"sort"

	"github.com/joshharrison/critpath/internal/graph"
)

type weightedEdge struct {
	to   string
	cost float64
}

// floatAdjacency returns, per predecessor, one edge per successor weighted by
// the smallest finite relationship float between the pair, floored at zero.
func floatAdjacency(g *graph.TaskGraph) map[string][]weightedEdge {
	minFloat := make(map[string]map[string]float64)
	for _, rel := range g.Relationships {
		if !graph.IsFinite(rel.Float) {
			continue
		}
		if _, ok := g.Tasks[rel.PredecessorID]; !ok {
			continue
		}
		if _, ok := g.Tasks[rel.SuccessorID]; !ok {
			continue
		}
		row := minFloat[rel.PredecessorID]
		if row == nil {
			row = make(map[string]float64)
			minFloat[rel.PredecessorID] = row
		}
		if cur, ok := row[rel.SuccessorID]; !ok || rel.Float < cur {
			row[rel.SuccessorID] = rel.Float
		}
	}

	adj := make(map[string][]weightedEdge, len(minFloat))
	for pred, row := range minFloat {
		edges := make([]weightedEdge, 0, len(row))
		for succ, f := range row {
			edges = append(edges, weightedEdge{to: succ, cost: max(0, f)})
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].to < edges[j].to })
		adj[pred] = edges
	}
	return adj
}

// propagateNearCritical flags non-critical tasks whose cheapest float-weighted
// route forward to a critical task is within the float threshold.
func (e *Engine) propagateNearCritical(g *graph.TaskGraph) {
	adj := floatAdjacency(g)
	threshold := e.opts.FloatThreshold

	for _, id := range g.SortedIDs() {
		t := g.Tasks[id]
		if t.IsCritical {
			continue
		}
		cost, ok := e.costToCritical(g, adj, id, threshold)
		if ok && cost <= threshold {
			t.IsNearCritical = true
			t.TotalFloat = cost
		}
	}
}

// costToCritical runs a label-correcting breadth-first search from start and
// returns the minimum accumulated float needed to reach any critical task.
// Routes costing more than limit are pruned.
func (e *Engine) costToCritical(g *graph.TaskGraph, adj map[string][]weightedEdge, start string, limit float64) (float64, bool) {
	best := map[string]float64{start: 0}
	queue := []string{start}
	found := false
	bestCost := inf

	for iterations := 0; len(queue) > 0; iterations++ {
		if iterations >= MaxTraceIterations {
			e.log.Warn("near-critical search stopped early",
				"task", start, "iterations", iterations)
			break
		}
		id := queue[0]
		queue = queue[1:]

		cost := best[id]
		if cost >= bestCost {
			continue
		}

		for _, edge := range adj[id] {
			next := cost + edge.cost
			if next > limit {
				continue
			}
			if g.Tasks[edge.to].IsCritical {
				if next < bestCost {
					bestCost = next
					found = true
				}
				continue
			}
			if old, seen := best[edge.to]; seen && old <= next {
				continue
			}
			best[edge.to] = next
			queue = append(queue, edge.to)
		}
	}
	return bestCost, found
}
