package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/ui"
)

// Reporter renders the outcome of a criticality pass.
type Reporter struct {
	Graph       *graph.TaskGraph
	Result      *cpm.Result
	Source      string
	GeneratedAt time.Time
	ID          string
}

// New creates a new Reporter with a fresh report id.
func New(g *graph.TaskGraph, res *cpm.Result, source string) *Reporter {
	return &Reporter{
		Graph:       g,
		Result:      res,
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		ID:          uuid.NewString(),
	}
}

// Report is the machine-readable form of a pass. Infinite floats are encoded
// as absent values.
type Report struct {
	ID              string `json:"id" yaml:"id"`
	Source          string `json:"source,omitempty" yaml:"source,omitempty"`
	GeneratedAt     string `json:"generated_at" yaml:"generated_at"`
	Mode            string `json:"mode" yaml:"mode"`
	FinishTaskID    string `json:"finish_task_id,omitempty" yaml:"finish_task_id,omitempty"`
	SeedTaskID      string `json:"seed_task_id,omitempty" yaml:"seed_task_id,omitempty"`
	TraceMode       string `json:"trace_mode" yaml:"trace_mode"`
	StrictFreeFloat bool   `json:"strict_free_float" yaml:"strict_free_float"`

	SelectedPath int           `json:"selected_path,omitempty" yaml:"selected_path,omitempty"` // 1-based, 0 when none
	Chains       []ChainReport `json:"chains" yaml:"chains"`
	Highlight    []string      `json:"highlight,omitempty" yaml:"highlight,omitempty"`

	Summary       SummaryReport        `json:"summary" yaml:"summary"`
	Tasks         []TaskReport         `json:"tasks" yaml:"tasks"`
	Relationships []RelationshipReport `json:"relationships" yaml:"relationships"`
}

type ChainReport struct {
	Index       int      `json:"index" yaml:"index"` // 1-based
	Selected    bool     `json:"selected" yaml:"selected"`
	StartTaskID string   `json:"start_task_id" yaml:"start_task_id"`
	Duration    float64  `json:"duration" yaml:"duration"`
	TaskIDs     []string `json:"task_ids" yaml:"task_ids"`
}

type SummaryReport struct {
	Tasks         int `json:"tasks" yaml:"tasks"`
	Relationships int `json:"relationships" yaml:"relationships"`
	Critical      int `json:"critical" yaml:"critical"`
	NearCritical  int `json:"near_critical" yaml:"near_critical"`
	Driving       int `json:"driving" yaml:"driving"`
}

type TaskReport struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	Start          string   `json:"start,omitempty" yaml:"start,omitempty"`
	Finish         string   `json:"finish,omitempty" yaml:"finish,omitempty"`
	Duration       float64  `json:"duration,omitempty" yaml:"duration,omitempty"`
	TotalFloat     *float64 `json:"total_float" yaml:"total_float"`
	IsCritical     bool     `json:"is_critical" yaml:"is_critical"`
	IsNearCritical bool     `json:"is_near_critical" yaml:"is_near_critical"`
}

type RelationshipReport struct {
	Predecessor string   `json:"predecessor" yaml:"predecessor"`
	Successor   string   `json:"successor" yaml:"successor"`
	Type        string   `json:"type" yaml:"type"`
	Lag         float64  `json:"lag,omitempty" yaml:"lag,omitempty"`
	Float       *float64 `json:"float" yaml:"float"`
	IsDriving   bool     `json:"is_driving" yaml:"is_driving"`
	IsCritical  bool     `json:"is_critical" yaml:"is_critical"`
}

func finite(f float64) *float64 {
	if !graph.IsFinite(f) {
		return nil
	}
	return &f
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Build assembles the machine-readable report.
func (r *Reporter) Build() *Report {
	res := r.Result
	rep := &Report{
		ID:              r.ID,
		Source:          r.Source,
		GeneratedAt:     r.GeneratedAt.Format(time.RFC3339),
		Mode:            string(res.Mode),
		FinishTaskID:    res.FinishTaskID,
		SeedTaskID:      res.SeedTaskID,
		TraceMode:       string(res.TraceMode),
		StrictFreeFloat: res.StrictFreeFloat,
		Chains:          make([]ChainReport, 0, len(res.Chains)),
		Highlight:       res.Highlight.Sorted(),
		Tasks:           make([]TaskReport, 0, len(r.Graph.Tasks)),
		Relationships:   make([]RelationshipReport, 0, len(r.Graph.Relationships)),
	}
	if res.SelectedChain() != nil {
		rep.SelectedPath = res.Selected + 1
	}

	for i, c := range res.Chains {
		rep.Chains = append(rep.Chains, ChainReport{
			Index:       i + 1,
			Selected:    i == res.Selected,
			StartTaskID: c.StartTaskID,
			Duration:    c.Duration,
			TaskIDs:     c.TaskIDs,
		})
	}

	for _, id := range r.Graph.SortedIDs() {
		t := r.Graph.Tasks[id]
		rep.Tasks = append(rep.Tasks, TaskReport{
			ID:             t.ID,
			Name:           t.Name,
			Start:          dateText(t.Start),
			Finish:         dateText(t.Finish),
			Duration:       t.Duration,
			TotalFloat:     finite(t.TotalFloat),
			IsCritical:     t.IsCritical,
			IsNearCritical: t.IsNearCritical,
		})
	}

	for _, rel := range r.Graph.Relationships {
		rep.Relationships = append(rep.Relationships, RelationshipReport{
			Predecessor: rel.PredecessorID,
			Successor:   rel.SuccessorID,
			Type:        rel.Type.String(),
			Lag:         rel.Lag,
			Float:       finite(rel.Float),
			IsDriving:   rel.IsDriving,
			IsCritical:  rel.IsCritical,
		})
		if rel.IsDriving {
			rep.Summary.Driving++
		}
	}

	rep.Summary.Tasks = len(r.Graph.Tasks)
	rep.Summary.Relationships = len(r.Graph.Relationships)
	rep.Summary.Critical = res.CriticalCount
	rep.Summary.NearCritical = res.NearCriticalCount
	return rep
}

// JSON returns the report as indented JSON.
func (r *Reporter) JSON() ([]byte, error) {
	return json.MarshalIndent(r.Build(), "", "  ")
}

// YAML returns the report as YAML.
func (r *Reporter) YAML() ([]byte, error) {
	return yaml.Marshal(r.Build())
}

// Write renders the report in the given format: "text", "json" or "yaml".
func (r *Reporter) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		r.PrintSummary(w)
		return nil
	case "json":
		data, err := r.JSON()
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := r.YAML()
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

// PrintSummary writes a terminal-friendly summary: header, chains and the
// critical and near-critical tasks.
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.Result

	modeText := "longest path"
	if res.Mode == cpm.ModeFloatBased {
		modeText = "total float"
	}

	fmt.Fprintf(w, "\n%s %s\n", ui.BoldRed("⚡"), ui.BoldCyan("Critical Path Analysis"))
	fmt.Fprintf(w, "%s\n", ui.Cyan("══════════════════════════"))
	if r.Source != "" {
		fmt.Fprintf(w, "Schedule:  %s\n", ui.Dim(r.Source))
	}
	fmt.Fprintf(w, "Mode:      %s\n", ui.Bold(modeText))
	if res.Mode == cpm.ModeLongestPath {
		finish := res.FinishTaskID
		if finish == "" {
			finish = ui.Yellow("none (no task has a finish date)")
		} else {
			finish = ui.BoldMagenta(finish)
		}
		fmt.Fprintf(w, "Finish:    %s\n", finish)
		if res.SeedTaskID != "" {
			fmt.Fprintf(w, "Seed:      %s %s\n", ui.BoldMagenta(res.SeedTaskID), ui.Dim("("+string(res.TraceMode)+")"))
		}
		if res.StrictFreeFloat {
			fmt.Fprintf(w, "Floats:    %s\n", ui.Dim("supplied free float (strict)"))
		}
	}
	fmt.Fprintf(w, "Tasks:     %d total, %s, %s\n\n",
		r.Graph.TaskCount(),
		ui.Red(fmt.Sprintf("%d critical", res.CriticalCount)),
		ui.Yellow(fmt.Sprintf("%d near-critical", res.NearCriticalCount)))

	if res.Mode == cpm.ModeLongestPath {
		r.PrintChains(w)
	}

	printed := 0
	for _, id := range r.Graph.SortedIDs() {
		t := r.Graph.Tasks[id]
		if !t.IsCritical && !t.IsNearCritical {
			continue
		}
		r.printTask(w, t)
		printed++
	}
	if printed == 0 {
		fmt.Fprintf(w, "  %s\n", ui.Dim("no critical or near-critical tasks"))
	}
	fmt.Fprintln(w)
}

// PrintChains lists the discovered driving chains, marking the selected one.
func (r *Reporter) PrintChains(w io.Writer) {
	res := r.Result
	if len(res.Chains) == 0 {
		fmt.Fprintf(w, "  %s\n\n", ui.Dim("no driving chains"))
		return
	}

	fmt.Fprintf(w, "  %s (%d)\n", ui.BoldWhite("DRIVING CHAINS"), len(res.Chains))
	for i, c := range res.Chains {
		marker := " "
		if i == res.Selected {
			marker = ui.BoldYellow("▶")
		}
		fmt.Fprintf(w, "  %s %s %s  %s\n",
			marker, ui.ChainLabel(i+1),
			strings.Join(c.TaskIDs, " → "),
			ui.Dim(fmt.Sprintf("[%d tasks, %gd]", c.Size(), c.Duration)))
	}
	fmt.Fprintln(w)
}

// PrintTrace lists the tasks of a trace set.
func (r *Reporter) PrintTrace(w io.Writer, seed string, mode cpm.TraceMode, set graph.TaskSet) {
	fmt.Fprintf(w, "%s %s %s (%d tasks)\n",
		ui.BoldCyan("Trace"), ui.Dim(string(mode)), ui.BoldMagenta(seed), len(set))
	for _, id := range set.Sorted() {
		t, ok := r.Graph.Tasks[id]
		if !ok {
			fmt.Fprintf(w, "    %s %s %s\n", ui.CriticalityIcon(ui.Normal), ui.BoldMagenta(id), ui.Dim("(unknown task)"))
			continue
		}
		r.printTask(w, t)
	}
}

func (r *Reporter) printTask(w io.Writer, t *graph.Task) {
	crit := ui.Normal
	switch {
	case t.IsCritical:
		crit = ui.Critical
	case t.IsNearCritical:
		crit = ui.NearCritical
	}

	name := t.Name
	if len(name) > 40 {
		name = name[:37] + "..."
	}

	fmt.Fprintf(w, "    %s %-12s %-40s %s\n",
		ui.CriticalityIcon(crit), ui.BoldMagenta(t.ID), name,
		ui.FloatText(t.TotalFloat, graph.IsFinite(t.TotalFloat)))
}
