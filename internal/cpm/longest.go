package cpm

import (
	"sort"

	"github.com/joshharrison/critpath/internal/graph"
)

// findProjectFinish returns the task with the latest finish date. Ties go to
// the task that starts earliest, then to the lowest id. Returns nil when no
// task has a finish date.
func findProjectFinish(g *graph.TaskGraph) *graph.Task {
	var best *graph.Task
	for _, id := range g.SortedIDs() {
		t := g.Tasks[id]
		if !t.HasFinish() {
			continue
		}
		switch {
		case best == nil:
			best = t
		case t.Finish.After(best.Finish):
			best = t
		case t.Finish.Equal(best.Finish) && startsBefore(t, best):
			best = t
		}
	}
	return best
}

// startsBefore orders tasks by start date with missing starts last.
func startsBefore(a, b *graph.Task) bool {
	if !a.HasStart() {
		return false
	}
	if !b.HasStart() {
		return true
	}
	return a.Start.Before(b.Start)
}

// drivingIndex holds driving relationships keyed by each endpoint.
type drivingIndex struct {
	in  map[string][]*graph.Relationship // successor -> driving relationships
	out map[string][]*graph.Relationship // predecessor -> driving relationships
}

func newDrivingIndex(g *graph.TaskGraph) drivingIndex {
	idx := drivingIndex{
		in:  make(map[string][]*graph.Relationship),
		out: make(map[string][]*graph.Relationship),
	}
	for _, rel := range g.Relationships {
		if !rel.IsDriving {
			continue
		}
		idx.in[rel.SuccessorID] = append(idx.in[rel.SuccessorID], rel)
		idx.out[rel.PredecessorID] = append(idx.out[rel.PredecessorID], rel)
	}
	return idx
}

// chainSearch is a depth-first enumeration of driving chains from a seed task.
//
// A task is expanded at most once across the whole search, which also keeps
// the walk cycle-safe. On networks with diamond-shaped fan-in this yields a
// representative set of chains rather than every possible path.
type chainSearch struct {
	g        *graph.TaskGraph
	backward bool
	edges    map[string][]*graph.Relationship
	visited  map[string]bool
	chains   []*DrivingChain
}

// discoverChains enumerates driving chains reachable from seedID. Backward
// chains end at the seed and start at a task with no driving predecessors;
// forward chains start at the seed and end at a task with no driving
// successors.
func discoverChains(g *graph.TaskGraph, idx drivingIndex, seedID string, mode TraceMode) []*DrivingChain {
	s := &chainSearch{
		g:        g,
		backward: mode != TraceForward,
		visited:  make(map[string]bool),
	}
	if s.backward {
		s.edges = idx.in
	} else {
		s.edges = idx.out
	}
	s.walk(seedID, []string{seedID}, nil)
	return s.chains
}

func (s *chainSearch) far(rel *graph.Relationship) string {
	if s.backward {
		return rel.PredecessorID
	}
	return rel.SuccessorID
}

func (s *chainSearch) walk(id string, path []string, rels []*graph.Relationship) {
	s.visited[id] = true

	edges := s.edges[id]
	if len(edges) == 0 {
		s.record(path, rels)
		return
	}
	for _, rel := range edges {
		next := s.far(rel)
		if s.visited[next] {
			continue
		}
		if _, ok := s.g.Tasks[next]; !ok {
			continue
		}
		s.walk(next, append(path, next), append(rels, rel))
	}
}

func (s *chainSearch) record(path []string, rels []*graph.Relationship) {
	c := &DrivingChain{
		TaskIDs:       make([]string, len(path)),
		Tasks:         make(graph.TaskSet, len(path)),
		Relationships: make([]*graph.Relationship, len(rels)),
	}
	copy(c.TaskIDs, path)
	copy(c.Relationships, rels)
	if s.backward {
		reverse(c.TaskIDs)
		reverse(c.Relationships)
	}

	for _, id := range c.TaskIDs {
		c.Tasks.Add(id)
		c.Duration += s.g.Tasks[id].Duration
	}
	c.StartTaskID = c.TaskIDs[0]
	c.startDate = s.g.Tasks[c.StartTaskID].Start
	s.chains = append(s.chains, c)
}

func reverse[T any](xs []T) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// sortChains orders chains by starting task start date (missing dates last),
// then by total duration, longest first. Remaining ties keep discovery order.
func sortChains(chains []*DrivingChain) {
	sort.SliceStable(chains, func(i, j int) bool {
		a, b := chains[i], chains[j]
		if a.startDate.IsZero() != b.startDate.IsZero() {
			return !a.startDate.IsZero()
		}
		if !a.startDate.Equal(b.startDate) {
			return a.startDate.Before(b.startDate)
		}
		return a.Duration > b.Duration
	})
}

// markChain flags every task and relationship of c as critical.
func markChain(g *graph.TaskGraph, c *DrivingChain) {
	for _, id := range c.TaskIDs {
		t := g.Tasks[id]
		t.IsCritical = true
		t.TotalFloat = 0
	}
	for _, rel := range c.Relationships {
		rel.IsCritical = true
	}
}
