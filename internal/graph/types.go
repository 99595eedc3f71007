package graph

import (
	"math"
	"sort"
	"strings"
	"time"
)

// RelationshipType is the kind of precedence link between two tasks.
type RelationshipType int

const (
	FinishToStart RelationshipType = iota
	StartToStart
	FinishToFinish
	StartToFinish
)

func (t RelationshipType) String() string {
	switch t {
	case StartToStart:
		return "SS"
	case FinishToFinish:
		return "FF"
	case StartToFinish:
		return "SF"
	default:
		return "FS"
	}
}

// ParseRelationshipType normalises a relationship type string. Unknown or
// blank values are treated as finish-to-start, the scheduling default.
func ParseRelationshipType(s string) RelationshipType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "PR_")
	switch s {
	case "SS", "START-TO-START", "START_TO_START":
		return StartToStart
	case "FF", "FINISH-TO-FINISH", "FINISH_TO_FINISH":
		return FinishToFinish
	case "SF", "START-TO-FINISH", "START_TO_FINISH":
		return StartToFinish
	default:
		return FinishToStart
	}
}

// Task is a single activity in the project network.
type Task struct {
	ID       string
	Name     string
	Start    time.Time // zero when unknown
	Finish   time.Time // zero when unknown
	Duration float64   // days; 0 is a milestone

	// UserTotalFloat is the externally supplied total float, if any.
	UserTotalFloat *float64

	// Predecessors holds the ids of tasks feeding this one (sorted, unique).
	Predecessors []string

	// Criticality output, written only by the cpm engine.
	IsCritical        bool
	IsCriticalByFloat bool
	IsNearCritical    bool
	TotalFloat        float64 // math.Inf(1) when unconstrained or unknown
}

// HasStart reports whether the task has a resolved start date.
func (t *Task) HasStart() bool { return !t.Start.IsZero() }

// HasFinish reports whether the task has a resolved finish date.
func (t *Task) HasFinish() bool { return !t.Finish.IsZero() }

// Relationship is a directed precedence link from PredecessorID to SuccessorID.
type Relationship struct {
	PredecessorID string
	SuccessorID   string
	Type          RelationshipType
	Lag           float64  // signed days
	FreeFloat     *float64 // externally supplied free float, if any

	// Computed by the cpm engine.
	Float      float64 // math.Inf(1) when indeterminate
	IsDriving  bool
	IsCritical bool // member of the currently selected driving chain
}

// TaskGraph is the in-memory store of tasks and relationships. Apart from the
// criticality fields it is read-only once built.
type TaskGraph struct {
	Tasks         map[string]*Task
	Successors    map[string][]string        // predecessor -> successor ids (sorted, unique)
	Outgoing      map[string][]*Relationship // predecessor -> outgoing relationships
	Relationships []*Relationship            // every relationship, including dangling ones
}

// TaskSet is a set of task ids.
type TaskSet map[string]struct{}

// Add inserts id into the set.
func (s TaskSet) Add(id string) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s TaskSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the set members in lexical order.
func (s TaskSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
