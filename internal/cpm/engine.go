// Package cpm determines which activities of a project network are critical.
//
// Two independent models are supported. The longest-path model derives
// relationship floats from scheduled dates (or supplied free float), flags
// driving relationships and enumerates driving chains back from the project
// finish. The float-based model trusts the total float values supplied with
// each task. Both write the same criticality fields on the graph and are
// never run in the same pass.
//
// Every entry point is synchronous and treats the graph as exclusively owned
// by the caller for the duration of the call.
package cpm

import (
	"log/slog"

	"github.com/joshharrison/critpath/internal/graph"
)

// Engine runs criticality passes over a task graph.
type Engine struct {
	opts Options
	log  *slog.Logger
}

// New creates an Engine. A nil logger discards log output.
func New(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.TraceMode != TraceForward {
		opts.TraceMode = TraceBackward
	}
	if opts.FloatThreshold < 0 || !graph.IsFinite(opts.FloatThreshold) {
		opts.FloatThreshold = 0
	}
	return &Engine{opts: opts, log: logger}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Recompute runs the pass for the given mode.
func (e *Engine) Recompute(g *graph.TaskGraph, mode Mode) *Result {
	if mode == ModeFloatBased {
		return e.RecomputeFloatBased(g)
	}
	return e.RecomputeLongestPath(g)
}

// RecomputeLongestPath classifies driving relationships, discovers driving
// chains and flags the selected chain as critical.
//
// Chains are discovered backward from the project finish task. When the
// options name a selected task that exists in g, chains are discovered from
// that task instead, in the configured trace direction.
func (e *Engine) RecomputeLongestPath(g *graph.TaskGraph) *Result {
	res := &Result{Mode: ModeLongestPath, TraceMode: e.opts.TraceMode, Selected: -1}
	if g == nil {
		return res
	}

	reset(g)
	res.StrictFreeFloat = computeRelationshipFloats(g)
	classifyDriving(g)
	idx := newDrivingIndex(g)

	if finish := findProjectFinish(g); finish != nil {
		res.FinishTaskID = finish.ID
	}

	seedID := res.FinishTaskID
	seedMode := TraceBackward
	if seed, ok := g.Tasks[e.opts.SelectedTaskID]; ok {
		seedID = seed.ID
		seedMode = e.opts.TraceMode
		res.SeedTaskID = seed.ID
	}

	if seedID == "" {
		e.log.Warn("longest path aborted: no task has a finish date",
			"tasks", g.TaskCount())
		res.Highlight = e.highlight(g)
		return res
	}

	res.Chains = discoverChains(g, idx, seedID, seedMode)
	sortChains(res.Chains)

	if len(res.Chains) > 0 {
		sel := NewPathSelector(e.opts.SelectedPathIndex, len(res.Chains), e.opts.EnableMultiPath)
		res.Selected = sel.Index
		markChain(g, res.Chains[sel.Index])
	}

	if e.opts.nearCriticalEnabled() {
		e.propagateNearCritical(g)
	}

	res.Highlight = e.highlight(g)
	countFlags(g, res)

	e.log.Debug("longest path recomputed",
		"seed", seedID,
		"direction", string(seedMode),
		"strict_free_float", res.StrictFreeFloat,
		"chains", len(res.Chains),
		"critical", res.CriticalCount,
		"near_critical", res.NearCriticalCount)
	return res
}

// RecomputeFloatBased classifies criticality straight from supplied total
// float. No chains are discovered and every relationship is left non-driving.
func (e *Engine) RecomputeFloatBased(g *graph.TaskGraph) *Result {
	res := &Result{Mode: ModeFloatBased, TraceMode: e.opts.TraceMode, Selected: -1}
	if g == nil {
		return res
	}

	reset(g)
	nearEnabled := e.opts.nearCriticalEnabled()

	for _, t := range g.Tasks {
		if t.UserTotalFloat == nil || !graph.IsFinite(*t.UserTotalFloat) {
			continue
		}
		tf := *t.UserTotalFloat
		t.TotalFloat = tf
		t.IsCritical = tf <= 0
		t.IsCriticalByFloat = t.IsCritical
		if nearEnabled && !t.IsCritical {
			t.IsNearCritical = tf > 0 && tf <= e.opts.FloatThreshold
		}
	}

	res.Highlight = e.highlight(g)
	countFlags(g, res)

	e.log.Debug("float-based criticality recomputed",
		"critical", res.CriticalCount,
		"near_critical", res.NearCriticalCount)
	return res
}

func (e *Engine) highlight(g *graph.TaskGraph) graph.TaskSet {
	if e.opts.SelectedTaskID == "" {
		return nil
	}
	return e.Trace(g, e.opts.SelectedTaskID, e.opts.TraceMode)
}

func countFlags(g *graph.TaskGraph, res *Result) {
	for _, t := range g.Tasks {
		if t.IsCritical {
			res.CriticalCount++
		}
		if t.IsNearCritical {
			res.NearCriticalCount++
		}
	}
}
