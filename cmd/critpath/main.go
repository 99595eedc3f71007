package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joshharrison/critpath/internal/claude"
	"github.com/joshharrison/critpath/internal/config"
	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/reporter"
	"github.com/joshharrison/critpath/internal/schedule"
	"github.com/joshharrison/critpath/internal/state"
	"github.com/joshharrison/critpath/internal/ui"
	"github.com/joshharrison/critpath/internal/viewer"
)

var (
	flagConfig   string
	flagStateDir string
	flagFilter   string
	flagJSON     bool
	flagModel    string
)

var (
	cfg    = config.Default()
	logger = logging.Discard()
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"mode":          "analysis.calculation_mode",
	"threshold":     "analysis.float_threshold",
	"near-critical": "analysis.show_near_critical",
	"multi-path":    "analysis.enable_multi_path",
	"task":          "trace.selected_task_id",
	"trace-mode":    "trace.mode",
	"path":          "trace.selected_path_index",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "critpath",
		Short: "Find the driving and near-critical activities of a project schedule",
		Long: `critpath reads a project schedule (tasks with dates and precedence
relationships), classifies driving relationships and walks the driving
chains that determine the project finish. It can also classify tasks from
supplied total float, trace a task's network, and serve the analysed graph
over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ./critpath.yaml or $XDG_CONFIG_HOME/critpath/critpath.yaml)")
	pf.StringVar(&flagStateDir, "state-dir", ".", "Directory holding the .critpath selection state")
	pf.StringVar(&flagFilter, "filter", "", "Filter tasks before analysis (scheduled, id=PREFIX)")
	pf.BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	pf.String("mode", "longestPath", "Calculation mode (longestPath, floatBased)")
	pf.Float64("threshold", 0, "Near-critical float threshold in days")
	pf.Bool("near-critical", true, "Evaluate near-critical tasks")
	pf.Bool("multi-path", true, "Allow selecting driving chains other than the first")
	pf.String("task", "", "Selected task id (seeds traces and per-task chains)")
	pf.String("trace-mode", "backward", "Trace direction (forward, backward)")
	pf.Int("path", 1, "Selected driving chain (1-based)")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(pathsCmd())
	rootCmd.AddCommand(traceCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(narrateCmd())
	rootCmd.AddCommand(cleanCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// initConfig layers defaults, config file, environment and flags into cfg.
func initConfig(cmd *cobra.Command) error {
	v := config.NewViper(flagConfig)
	if err := bindFlags(v, cmd); err != nil {
		return err
	}
	if err := config.ReadInConfig(v); err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c
	logger = logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("config loaded", "file", v.ConfigFileUsed(), "mode", cfg.Analysis.CalculationMode)
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// --- Shared analysis ---

type analysis struct {
	source string
	doc    *schedule.Document
	graph  *graph.TaskGraph
	opts   cpm.Options
	result *cpm.Result
}

// stateKey identifies a schedule in the selection state.
func stateKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// engineOptions merges the stored selection into the configured options.
// Explicit flags win over stored state.
func engineOptions(cmd *cobra.Command, path string) cpm.Options {
	opts := cfg.EngineOptions()
	if !state.Exists(flagStateDir) {
		return opts
	}
	st, err := state.Load(flagStateDir)
	if err != nil {
		logger.Warn("ignoring unreadable selection state", "error", err)
		return opts
	}
	if st.Schedule != stateKey(path) {
		return opts
	}
	if !cmd.Flags().Changed("path") {
		opts.SelectedPathIndex = st.SelectedPathIndex
	}
	if !cmd.Flags().Changed("task") && st.SelectedTaskID != "" {
		opts.SelectedTaskID = st.SelectedTaskID
		if !cmd.Flags().Changed("trace-mode") && st.TraceMode != "" {
			opts.TraceMode = cpm.TraceMode(st.TraceMode)
		}
	}
	return opts
}

// loadGraph reads a schedule and applies the task filter.
func loadGraph(path string) (*schedule.Document, *graph.TaskGraph, error) {
	doc, err := schedule.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule: %w", err)
	}

	g := graph.Build(doc)
	if flagFilter != "" {
		g, err = applyFilter(g, flagFilter)
		if err != nil {
			return nil, nil, fmt.Errorf("apply filter: %w", err)
		}
	}
	if g.TaskCount() == 0 {
		return nil, nil, fmt.Errorf("no tasks match filter %q", flagFilter)
	}
	return doc, g, nil
}

func runAnalysis(cmd *cobra.Command, path string) (*analysis, error) {
	doc, g, err := loadGraph(path)
	if err != nil {
		return nil, err
	}

	a := &analysis{source: path, doc: doc, graph: g, opts: engineOptions(cmd, path)}
	a.recompute()
	return a, nil
}

func (a *analysis) recompute() {
	a.result = cpm.New(a.opts, logger).Recompute(a.graph, cfg.Mode())
}

func analyzeCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:   "analyze <schedule.json>",
		Short: "Classify critical and near-critical tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd, args[0])
			if err != nil {
				return err
			}

			format := flagFormat
			if flagJSON {
				format = "json"
			}
			return reporter.New(a.graph, a.result, a.source).Write(os.Stdout, format)
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format (text, json, yaml)")

	return cmd
}

func pathsCmd() *cobra.Command {
	var (
		flagNext   bool
		flagPrev   bool
		flagSelect int
	)

	cmd := &cobra.Command{
		Use:   "paths <schedule.json>",
		Short: "List driving chains and change the selected one",
		Long: `Lists the driving chains of the schedule. --next, --prev and --select
change the selected chain; the choice is stored in the selection state and
used by later commands on the same schedule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Mode() != cpm.ModeLongestPath {
				return fmt.Errorf("driving chains are only computed in %s mode", cpm.ModeLongestPath)
			}

			a, err := runAnalysis(cmd, args[0])
			if err != nil {
				return err
			}

			count := len(a.result.Chains)
			sel := cpm.NewPathSelector(a.opts.SelectedPathIndex, count, a.opts.EnableMultiPath)
			requested := flagNext || flagPrev || flagSelect > 0
			moved := false
			switch {
			case flagNext:
				moved = sel.Next()
			case flagPrev:
				moved = sel.Previous()
			case flagSelect > 0:
				if sel.CanNavigate() {
					sel = cpm.NewPathSelector(flagSelect, count, a.opts.EnableMultiPath)
					moved = true
				}
			}

			if requested && !moved {
				fmt.Fprintf(os.Stderr, "%s %s\n", ui.Yellow("!"), sel.NavigationHint())
			}
			if moved {
				st, err := state.LoadOrNew(flagStateDir, stateKey(args[0]))
				if err != nil {
					return fmt.Errorf("load state: %w", err)
				}
				if err := st.SetPathIndex(sel.OneBased()); err != nil {
					return fmt.Errorf("save state: %w", err)
				}
				a.opts.SelectedPathIndex = sel.OneBased()
				a.recompute()
			}

			rpt := reporter.New(a.graph, a.result, a.source)
			if flagJSON {
				return outputJSON(rpt.Build().Chains)
			}
			rpt.PrintChains(os.Stdout)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagNext, "next", false, "Select the next driving chain")
	cmd.Flags().BoolVar(&flagPrev, "prev", false, "Select the previous driving chain")
	cmd.Flags().IntVar(&flagSelect, "select", 0, "Select driving chain N (1-based)")
	cmd.MarkFlagsMutuallyExclusive("next", "prev", "select")

	return cmd
}

func traceCmd() *cobra.Command {
	var flagSave bool

	cmd := &cobra.Command{
		Use:   "trace <schedule.json> <task-id>",
		Short: "List every task upstream or downstream of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, id := args[0], args[1]

			a, err := runAnalysis(cmd, path)
			if err != nil {
				return err
			}
			if _, ok := a.graph.Tasks[id]; !ok {
				logger.Warn("trace seed is not a known task", "task", id)
			}

			mode := cpm.TraceMode(cfg.Trace.Mode)
			set := cpm.New(a.opts, logger).Trace(a.graph, id, mode)

			if flagSave {
				st, err := state.LoadOrNew(flagStateDir, stateKey(path))
				if err != nil {
					return fmt.Errorf("load state: %w", err)
				}
				if err := st.SetTask(id, string(mode)); err != nil {
					return fmt.Errorf("save state: %w", err)
				}
			}

			if flagJSON {
				return outputJSON(map[string]any{"task": id, "mode": mode, "tasks": set.Sorted()})
			}
			reporter.New(a.graph, a.result, a.source).PrintTrace(os.Stdout, id, mode, set)
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagSave, "save", false, "Store the task as the selected task for later commands")

	return cmd
}

type checkWarning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func checkCmd() *cobra.Command {
	var (
		flagStrict  bool
		flagSuggest bool
	)

	cmd := &cobra.Command{
		Use:   "check <schedule.json>",
		Short: "Report schedule logic problems",
		Long: `Reports relationships to unknown tasks, cycles, open-ended tasks, tasks
without dates and relationships excluded by strict free-float mode. None of
these stop an analysis; --strict turns them into a failing exit status.
--suggest asks Claude to propose relationships for open-ended tasks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			warnings := checkGraph(g)

			var suggestions *claude.SuggestLinksResult
			if flagSuggest {
				suggestions, err = suggestLinks(cmd.Context(), g)
				if err != nil {
					return err
				}
			}

			if flagJSON {
				if err := outputJSON(map[string]any{"warnings": warnings, "suggestions": suggestions}); err != nil {
					return err
				}
			} else {
				printWarnings(warnings)
				if suggestions != nil {
					printSuggestions(suggestions)
				}
			}

			if flagStrict && len(warnings) > 0 {
				return fmt.Errorf("%d schedule warnings", len(warnings))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit non-zero when any warning is found")
	cmd.Flags().BoolVar(&flagSuggest, "suggest", false, "Ask Claude to suggest relationships for open-ended tasks")
	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model (default: Sonnet)")

	return cmd
}

// checkGraph collects logic warnings for g. None of them block analysis.
func checkGraph(g *graph.TaskGraph) []checkWarning {
	var warnings []checkWarning

	for _, rel := range g.MissingReferences() {
		warnings = append(warnings, checkWarning{
			Kind:    "missing-reference",
			Message: fmt.Sprintf("relationship %s -> %s references an unknown task", rel.PredecessorID, rel.SuccessorID),
		})
	}

	if cycle := g.DetectCycle(); cycle != nil {
		warnings = append(warnings, checkWarning{
			Kind:    "cycle",
			Message: "dependency cycle: " + strings.Join(cycle, " -> "),
		})
	}

	noPreds, noSuccs := g.OpenEnds()
	if len(noPreds) > 1 {
		warnings = append(warnings, checkWarning{
			Kind:    "open-start",
			Message: fmt.Sprintf("%d tasks have no predecessor: %s", len(noPreds), strings.Join(noPreds, ", ")),
		})
	}
	if len(noSuccs) > 1 {
		warnings = append(warnings, checkWarning{
			Kind:    "open-finish",
			Message: fmt.Sprintf("%d tasks have no successor: %s", len(noSuccs), strings.Join(noSuccs, ", ")),
		})
	}

	var undated []string
	for _, id := range g.SortedIDs() {
		t := g.Tasks[id]
		if !t.HasStart() || !t.HasFinish() {
			undated = append(undated, id)
		}
	}
	if len(undated) > 0 {
		warnings = append(warnings, checkWarning{
			Kind:    "missing-dates",
			Message: fmt.Sprintf("%d tasks lack a start or finish date: %s", len(undated), strings.Join(undated, ", ")),
		})
	}

	supplied, blank := 0, 0
	for _, rel := range g.Relationships {
		if rel.FreeFloat != nil && graph.IsFinite(*rel.FreeFloat) {
			supplied++
		} else {
			blank++
		}
	}
	if supplied > 0 && blank > 0 {
		warnings = append(warnings, checkWarning{
			Kind:    "strict-free-float",
			Message: fmt.Sprintf("%d relationships have no free_float and are never driving while %d others supply one", blank, supplied),
		})
	}

	return warnings
}

func printWarnings(warnings []checkWarning) {
	if len(warnings) == 0 {
		fmt.Printf("%s %s\n", ui.Green("✓"), "no schedule warnings")
		return
	}
	fmt.Printf("%s %s\n", ui.BoldYellow("!"), ui.Bold(fmt.Sprintf("%d schedule warnings", len(warnings))))
	for _, w := range warnings {
		fmt.Printf("  %s %s\n", ui.Dim("["+w.Kind+"]"), w.Message)
	}
}

func suggestLinks(ctx context.Context, g *graph.TaskGraph) (*claude.SuggestLinksResult, error) {
	noPreds, noSuccs := g.OpenEnds()
	open := make(map[string]*claude.OpenEnd)
	all := make([]claude.OpenEnd, 0, g.TaskCount())
	for _, id := range g.SortedIDs() {
		t := g.Tasks[id]
		all = append(all, claude.OpenEnd{
			ID:     t.ID,
			Name:   t.Name,
			Start:  dateText(t.Start),
			Finish: dateText(t.Finish),
		})
	}
	for i := range all {
		open[all[i].ID] = &all[i]
	}
	for _, id := range noPreds {
		open[id].NoPredecessors = true
	}
	for _, id := range noSuccs {
		open[id].NoSuccessors = true
	}

	var ends []claude.OpenEnd
	for _, e := range all {
		if e.NoPredecessors || e.NoSuccessors {
			ends = append(ends, e)
		}
	}
	if len(ends) == 0 {
		return &claude.SuggestLinksResult{Summary: "no open-ended tasks"}, nil
	}

	client, err := claude.NewClient("", flagModel)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "%s Asking Claude about %d open-ended tasks...\n", ui.Cyan("…"), len(ends))
	result, err := client.SuggestLinks(ctx, ends, all)
	if err != nil {
		return nil, fmt.Errorf("suggest links: %w", err)
	}

	// Drop links that name unknown tasks or point a task at itself.
	valid := result.Links[:0]
	for _, l := range result.Links {
		_, okPred := g.Tasks[l.Predecessor]
		_, okSucc := g.Tasks[l.Successor]
		if okPred && okSucc && l.Predecessor != l.Successor {
			valid = append(valid, l)
			continue
		}
		logger.Warn("discarding suggested link", "predecessor", l.Predecessor, "successor", l.Successor)
	}
	result.Links = valid
	return result, nil
}

func printSuggestions(res *claude.SuggestLinksResult) {
	fmt.Printf("\n%s %s\n", ui.BoldCyan("Suggested relationships"), ui.Dim(fmt.Sprintf("(%d)", len(res.Links))))
	for _, l := range res.Links {
		typ := graph.ParseRelationshipType(l.Type)
		fmt.Printf("  %s %s %s  %s\n",
			ui.BoldMagenta(l.Predecessor), ui.Dim("-"+typ.String()+"->"), ui.BoldMagenta(l.Successor), ui.Dim(l.Reason))
	}
	if res.Summary != "" {
		fmt.Printf("\n%s\n", res.Summary)
	}
}

func vizCmd() *cobra.Command {
	var flagFormat string

	cmd := &cobra.Command{
		Use:   "viz <schedule.json>",
		Short: "Print the analysed network as ASCII or Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd, args[0])
			if err != nil {
				return err
			}

			if flagFormat == "dot" {
				return printDOT(os.Stdout, a.graph, a.result)
			}

			printASCII(os.Stdout, a.graph, a.result)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot)")

	return cmd
}

func serveCmd() *cobra.Command {
	var flagPort int

	cmd := &cobra.Command{
		Use:   "serve <schedule.json>",
		Short: "Serve the analysed graph over HTTP",
		Long: `Analyses the schedule and serves it on GET /graph. Clients can upload a new
schedule with POST /graph, trace with GET /trace and move between driving
chains with POST /paths/next and /paths/prev. If a viewer is already
listening on the port, the schedule is posted to it instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if viewer.IsPortOpen(fmt.Sprintf("localhost:%d", flagPort)) {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read schedule: %w", err)
				}
				addr := fmt.Sprintf("http://localhost:%d", flagPort)
				if err := viewer.PostSchedule(addr, data); err != nil {
					return err
				}
				fmt.Printf("📤 Posted %s to running viewer at %s\n", path, addr)
				return nil
			}

			_, g, err := loadGraph(path)
			if err != nil {
				return err
			}

			srv := viewer.NewServer(cfg.Mode(), engineOptions(cmd, path), logger)
			srv.OnSelect = func(oneBased int) {
				st, err := state.LoadOrNew(flagStateDir, stateKey(path))
				if err == nil {
					err = st.SetPathIndex(oneBased)
				}
				if err != nil {
					logger.Warn("could not persist selected chain", "error", err)
				}
			}
			srv.LoadGraph(g)

			addr, err := viewer.Start(flagPort, srv)
			if err != nil {
				return err
			}
			fmt.Printf("🌐 Serving %s at %s/graph (Ctrl-C to stop)\n", path, addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().IntVar(&flagPort, "port", 7171, "Port to listen on")

	return cmd
}

func narrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "narrate <schedule.json>",
		Short: "Ask Claude to explain what drives the schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd, args[0])
			if err != nil {
				return err
			}

			client, err := claude.NewClient("", flagModel)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			fmt.Fprintf(os.Stderr, "%s Asking Claude to narrate %d driving chains...\n", ui.Cyan("…"), len(a.result.Chains))
			text, err := client.NarrateChains(ctx, scheduleSummary(a))
			if err != nil {
				return fmt.Errorf("narrate: %w", err)
			}

			if flagJSON {
				return outputJSON(map[string]string{"narrative": text})
			}
			fmt.Printf("\n%s\n%s\n\n%s\n", ui.BoldCyan("Schedule Narrative"), ui.Cyan("══════════════════"), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model (default: Sonnet)")

	return cmd
}

func taskLabel(g *graph.TaskGraph, id string) string {
	if t, ok := g.Tasks[id]; ok && t.Name != "" {
		return id + ": " + t.Name
	}
	return id
}

func scheduleSummary(a *analysis) claude.ScheduleSummary {
	s := claude.ScheduleSummary{
		Mode:       string(a.result.Mode),
		TotalTasks: a.graph.TaskCount(),
		Critical:   a.result.CriticalCount,
		Threshold:  a.opts.FloatThreshold,
	}
	if a.result.FinishTaskID != "" {
		s.FinishTask = taskLabel(a.graph, a.result.FinishTaskID)
	}
	for i, c := range a.result.Chains {
		cs := claude.ChainSummary{Index: i + 1, Selected: i == a.result.Selected, Duration: c.Duration}
		for _, id := range c.TaskIDs {
			cs.Tasks = append(cs.Tasks, taskLabel(a.graph, id))
		}
		s.Chains = append(s.Chains, cs)
	}
	for _, id := range a.graph.SortedIDs() {
		t := a.graph.Tasks[id]
		if t.IsNearCritical {
			s.NearCritical = append(s.NearCritical, claude.TaskFloat{Task: taskLabel(a.graph, id), Float: t.TotalFloat})
		}
	}
	return s
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove stored selection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.Clean(flagStateDir); err != nil {
				return fmt.Errorf("clean state: %w", err)
			}
			logger.Info("selection state removed", "dir", flagStateDir)
			return nil
		},
	}
}

// applyFilter parses simple filter expressions and returns a filtered graph.
func applyFilter(g *graph.TaskGraph, filter string) (*graph.TaskGraph, error) {
	// Supported formats: "scheduled", "id=PREFIX"
	if filter == "scheduled" {
		return g.Filter(func(t *graph.Task) bool { return t.HasStart() && t.HasFinish() }), nil
	}
	if strings.HasPrefix(filter, "id=") {
		prefix := strings.TrimPrefix(filter, "id=")
		return g.Filter(func(t *graph.Task) bool { return strings.HasPrefix(t.ID, prefix) }), nil
	}
	return nil, fmt.Errorf("unsupported filter: %s (use scheduled or id=PREFIX)", filter)
}
