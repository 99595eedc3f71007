package cpm

import (
	"math"
	"time"

	"github.com/joshharrison/critpath/internal/graph"
)

var inf = math.Inf(1)

// reset returns every criticality field in g to its neutral state so that no
// flag survives from a previous pass or mode.
func reset(g *graph.TaskGraph) {
	for _, t := range g.Tasks {
		t.IsCritical = false
		t.IsCriticalByFloat = false
		t.IsNearCritical = false
		t.TotalFloat = inf
	}
	for _, rel := range g.Relationships {
		rel.Float = inf
		rel.IsDriving = false
		rel.IsCritical = false
	}
}

// hasSuppliedFreeFloat reports whether any relationship carries a usable
// externally supplied free float. If so the whole dataset is computed in
// strict mode.
func hasSuppliedFreeFloat(g *graph.TaskGraph) bool {
	for _, rel := range g.Relationships {
		if rel.FreeFloat != nil && graph.IsFinite(*rel.FreeFloat) {
			return true
		}
	}
	return false
}

// computeRelationshipFloats sets Float on every relationship and reports
// whether strict free-float mode was used.
//
// In strict mode a relationship without a supplied free float stays at +Inf
// and never takes part in driving classification, even though a date-based
// value could be computed for it.
func computeRelationshipFloats(g *graph.TaskGraph) bool {
	strict := hasSuppliedFreeFloat(g)

	for _, rel := range g.Relationships {
		rel.IsDriving = false
		rel.IsCritical = false
		rel.Float = inf

		pred, okPred := g.Tasks[rel.PredecessorID]
		succ, okSucc := g.Tasks[rel.SuccessorID]
		if !okPred || !okSucc {
			continue
		}

		if strict {
			if rel.FreeFloat != nil && graph.IsFinite(*rel.FreeFloat) {
				rel.Float = *rel.FreeFloat
			}
			continue
		}
		rel.Float = dateFloat(rel, pred, succ)
	}
	return strict
}

// dateFloat computes relationship float from day-granular endpoint dates.
func dateFloat(rel *graph.Relationship, pred, succ *graph.Task) float64 {
	if !pred.HasStart() || !pred.HasFinish() || !succ.HasStart() || !succ.HasFinish() {
		return inf
	}
	if !graph.IsFinite(rel.Lag) {
		return inf
	}

	var f float64
	switch rel.Type {
	case graph.StartToStart:
		f = dayIndex(succ.Start) - (dayIndex(pred.Start) + rel.Lag)
	case graph.FinishToFinish:
		f = dayIndex(succ.Finish) - (dayIndex(pred.Finish) + rel.Lag)
	case graph.StartToFinish:
		f = dayIndex(succ.Finish) - (dayIndex(pred.Start) + rel.Lag)
	default:
		f = dayIndex(succ.Start) - (dayIndex(pred.Finish) + rel.Lag)
	}
	if !graph.IsFinite(f) {
		return inf
	}
	return f
}

// dayIndex returns the calendar day number of t, ignoring time of day.
func dayIndex(t time.Time) float64 {
	y, m, d := t.Date()
	return math.Floor(float64(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()) / 86400)
}

// classifyDriving flags, per successor, every relationship whose float is
// within FloatTolerance of the smallest float among that successor's
// incoming relationships.
func classifyDriving(g *graph.TaskGraph) {
	bySuccessor := make(map[string][]*graph.Relationship)
	for _, rel := range g.Relationships {
		bySuccessor[rel.SuccessorID] = append(bySuccessor[rel.SuccessorID], rel)
	}

	for _, group := range bySuccessor {
		minFloat := inf
		for _, rel := range group {
			if graph.IsFinite(rel.Float) && rel.Float < minFloat {
				minFloat = rel.Float
			}
		}
		if math.IsInf(minFloat, 1) {
			continue
		}
		for _, rel := range group {
			if graph.IsFinite(rel.Float) && math.Abs(rel.Float-minFloat) <= FloatTolerance {
				rel.IsDriving = true
			}
		}
	}
}
