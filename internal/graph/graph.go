package graph

import (
	"math"
	"sort"

	"github.com/joshharrison/critpath/internal/schedule"
)

// Build constructs a TaskGraph from a parsed schedule document.
func Build(doc *schedule.Document) *TaskGraph {
	if doc == nil {
		return BuildFromRaw(nil, nil)
	}
	return BuildFromRaw(doc.Tasks, doc.Relationships)
}

// BuildFromRaw constructs a TaskGraph from raw task and relationship records.
//
// Relationships that reference an unknown task are kept in Relationships so
// the engine can classify them, but they are not indexed as successor or
// predecessor links.
func BuildFromRaw(rawTasks []schedule.RawTask, rawRels []schedule.RawRelationship) *TaskGraph {
	g := &TaskGraph{
		Tasks:      make(map[string]*Task),
		Successors: make(map[string][]string),
		Outgoing:   make(map[string][]*Relationship),
	}

	for i := range rawTasks {
		rt := &rawTasks[i]
		if _, dup := g.Tasks[rt.ID]; dup {
			continue
		}
		g.Tasks[rt.ID] = &Task{
			ID:             rt.ID,
			Name:           rt.Name,
			Start:          rt.Start,
			Finish:         rt.Finish,
			Duration:       rt.Duration,
			UserTotalFloat: rt.TotalFloat,
			TotalFloat:     math.Inf(1),
		}
	}

	pairs := make(map[[2]string]bool)
	for _, rr := range rawRels {
		pairs[[2]string{rr.Predecessor, rr.Successor}] = true
		g.addRelationship(&Relationship{
			PredecessorID: rr.Predecessor,
			SuccessorID:   rr.Successor,
			Type:          ParseRelationshipType(rr.Type),
			Lag:           rr.Lag,
			FreeFloat:     rr.FreeFloat,
			Float:         math.Inf(1),
		})
	}

	// Inline predecessor lists become FS, zero-lag links unless an explicit
	// relationship already covers the pair.
	for i := range rawTasks {
		rt := &rawTasks[i]
		for _, pred := range rt.Predecessors {
			key := [2]string{pred, rt.ID}
			if pairs[key] {
				continue
			}
			pairs[key] = true
			g.addRelationship(&Relationship{
				PredecessorID: pred,
				SuccessorID:   rt.ID,
				Type:          FinishToStart,
				Float:         math.Inf(1),
			})
		}
	}

	g.index()
	return g
}

func (g *TaskGraph) addRelationship(rel *Relationship) {
	g.Relationships = append(g.Relationships, rel)
	if _, ok := g.Tasks[rel.PredecessorID]; ok {
		g.Outgoing[rel.PredecessorID] = append(g.Outgoing[rel.PredecessorID], rel)
	}
}

// index rebuilds the successor and predecessor id sets from Relationships.
func (g *TaskGraph) index() {
	edgeSet := make(map[[2]string]bool)
	g.Successors = make(map[string][]string)
	for _, t := range g.Tasks {
		t.Predecessors = nil
	}

	for _, rel := range g.Relationships {
		pred, okPred := g.Tasks[rel.PredecessorID]
		succ, okSucc := g.Tasks[rel.SuccessorID]
		if !okPred || !okSucc {
			continue
		}
		key := [2]string{pred.ID, succ.ID}
		if edgeSet[key] {
			continue
		}
		edgeSet[key] = true
		g.Successors[pred.ID] = append(g.Successors[pred.ID], succ.ID)
		succ.Predecessors = append(succ.Predecessors, pred.ID)
	}

	for k := range g.Successors {
		sort.Strings(g.Successors[k])
	}
	for _, t := range g.Tasks {
		sort.Strings(t.Predecessors)
	}
}

// TaskCount returns the number of tasks in the graph.
func (g *TaskGraph) TaskCount() int {
	return len(g.Tasks)
}

// SortedIDs returns all task ids in lexical order.
func (g *TaskGraph) SortedIDs() []string {
	ids := make([]string, 0, len(g.Tasks))
	for id := range g.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MissingReferences returns relationships with at least one endpoint absent
// from the graph.
func (g *TaskGraph) MissingReferences() []*Relationship {
	var missing []*Relationship
	for _, rel := range g.Relationships {
		_, okPred := g.Tasks[rel.PredecessorID]
		_, okSucc := g.Tasks[rel.SuccessorID]
		if !okPred || !okSucc {
			missing = append(missing, rel)
		}
	}
	return missing
}

// OpenEnds returns, in id order, the tasks without any predecessor and the
// tasks without any successor. Only links between known tasks count.
func (g *TaskGraph) OpenEnds() (noPredecessors, noSuccessors []string) {
	for _, id := range g.SortedIDs() {
		if len(g.Tasks[id].Predecessors) == 0 {
			noPredecessors = append(noPredecessors, id)
		}
		if len(g.Successors[id]) == 0 {
			noSuccessors = append(noSuccessors, id)
		}
	}
	return noPredecessors, noSuccessors
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
// It is a diagnostic only; the engine tolerates cycles.
func (g *TaskGraph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.Successors[node] {
			if color[next] == gray {
				cycle := []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.SortedIDs() {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Filter returns a new TaskGraph containing only tasks matching the predicate.
// Relationships survive only when both of their tasks do.
func (g *TaskGraph) Filter(pred func(*Task) bool) *TaskGraph {
	var tasks []schedule.RawTask
	kept := make(map[string]bool)
	for _, id := range g.SortedIDs() {
		t := g.Tasks[id]
		if !pred(t) {
			continue
		}
		kept[id] = true
		tasks = append(tasks, schedule.RawTask{
			ID:         t.ID,
			Name:       t.Name,
			Start:      t.Start,
			Finish:     t.Finish,
			Duration:   t.Duration,
			TotalFloat: t.UserTotalFloat,
		})
	}

	var rels []schedule.RawRelationship
	for _, rel := range g.Relationships {
		if !kept[rel.PredecessorID] || !kept[rel.SuccessorID] {
			continue
		}
		rels = append(rels, schedule.RawRelationship{
			Predecessor: rel.PredecessorID,
			Successor:   rel.SuccessorID,
			Type:        rel.Type.String(),
			Lag:         rel.Lag,
			FreeFloat:   rel.FreeFloat,
		})
	}
	return BuildFromRaw(tasks, rels)
}
