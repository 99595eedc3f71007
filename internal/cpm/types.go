package cpm

import (
	"time"

	"github.com/joshharrison/critpath/internal/graph"
)

// FloatTolerance is the slack, in days, within which two relationship floats
// are considered tied.
const FloatTolerance = 0.001

// Safety bounds for breadth-first searches over possibly malformed graphs.
const (
	MaxTraceTasks      = 10000
	MaxTraceIterations = 50000
)

// Mode selects the criticality model.
type Mode string

const (
	ModeLongestPath Mode = "longestPath"
	ModeFloatBased  Mode = "floatBased"
)

// TraceMode selects the direction of a selection trace.
type TraceMode string

const (
	TraceForward  TraceMode = "forward"
	TraceBackward TraceMode = "backward"
)

// Options configures an Engine.
type Options struct {
	FloatThreshold    float64   // near-critical tolerance in days, >= 0
	ShowNearCritical  bool      // evaluate near-critical tasks at all
	SelectedTaskID    string    // optional seed for traces and per-task chains
	TraceMode         TraceMode // direction used with SelectedTaskID
	SelectedPathIndex int       // 1-based preferred chain
	EnableMultiPath   bool      // allow choosing chains other than the first
}

func (o Options) nearCriticalEnabled() bool {
	return o.ShowNearCritical && o.FloatThreshold > 0
}

// DrivingChain is a maximal sequence of tasks connected by driving
// relationships.
type DrivingChain struct {
	TaskIDs       []string              // chain order, first task first
	Tasks         graph.TaskSet         // membership
	Relationships []*graph.Relationship // chain order
	Duration      float64               // sum of member task durations
	StartTaskID   string

	startDate time.Time
}

// Size returns the number of tasks in the chain.
func (c *DrivingChain) Size() int { return len(c.Tasks) }

// Result is the outcome of a recomputation pass.
type Result struct {
	Mode            Mode
	FinishTaskID    string // project finish, empty when indeterminate or in float mode
	SeedTaskID      string // selected task used to seed chain discovery, if any
	TraceMode       TraceMode
	StrictFreeFloat bool // relationship floats came from supplied free float

	Chains   []*DrivingChain
	Selected int // 0-based index into Chains, -1 when there are none

	// Highlight is the trace set for SelectedTaskID, nil when nothing is selected.
	Highlight graph.TaskSet

	CriticalCount     int
	NearCriticalCount int
}

// SelectedChain returns the chosen driving chain, or nil.
func (r *Result) SelectedChain() *DrivingChain {
	if r == nil || r.Selected < 0 || r.Selected >= len(r.Chains) {
		return nil
	}
	return r.Chains[r.Selected]
}
