package viewer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/schedule"
)

// maxBodyBytes bounds uploaded schedule documents.
const maxBodyBytes = 32 << 20

// --- Graph types (what the visualiser renders) ---

type GraphNode struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Start          string   `json:"start,omitempty"`
	Finish         string   `json:"finish,omitempty"`
	Duration       float64  `json:"duration"`
	TotalFloat     *float64 `json:"total_float"`
	IsCritical     bool     `json:"is_critical"`
	IsNearCritical bool     `json:"is_near_critical"`
	Highlighted    bool     `json:"highlighted"`
}

type GraphEdge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Type       string   `json:"type"`
	Lag        float64  `json:"lag"`
	Float      *float64 `json:"float"`
	IsDriving  bool     `json:"is_driving"`
	IsCritical bool     `json:"is_critical"`
}

type GraphMetadata struct {
	Mode         string `json:"mode"`
	FinishTaskID string `json:"finish_task_id,omitempty"`
	SeedTaskID   string `json:"seed_task_id,omitempty"`
	TotalTasks   int    `json:"total_tasks"`
	Critical     int    `json:"critical"`
	NearCritical int    `json:"near_critical"`
	UpdatedAt    string `json:"updated_at"`
}

type Graph struct {
	Nodes        []GraphNode   `json:"nodes"`
	Edges        []GraphEdge   `json:"edges"`
	Chains       [][]string    `json:"chains"`
	SelectedPath int           `json:"selected_path"` // 1-based, 0 when there are no chains
	Metadata     GraphMetadata `json:"metadata"`
}

func finitePtr(f float64) *float64 {
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

// toGraph converts an analysed task graph into the normalised Graph the UI renders.
func toGraph(g *graph.TaskGraph, res *cpm.Result, now time.Time) *Graph {
	out := &Graph{
		Nodes:  make([]GraphNode, 0, len(g.Tasks)),
		Edges:  make([]GraphEdge, 0, len(g.Relationships)),
		Chains: make([][]string, 0, len(res.Chains)),
		Metadata: GraphMetadata{
			Mode:         string(res.Mode),
			FinishTaskID: res.FinishTaskID,
			SeedTaskID:   res.SeedTaskID,
			TotalTasks:   g.TaskCount(),
			Critical:     res.CriticalCount,
			NearCritical: res.NearCriticalCount,
			UpdatedAt:    now.Format(time.RFC3339),
		},
	}

	for _, id := range g.SortedIDs() {
		t := g.Tasks[id]
		out.Nodes = append(out.Nodes, GraphNode{
			ID:             t.ID,
			Name:           t.Name,
			Start:          dateText(t.Start),
			Finish:         dateText(t.Finish),
			Duration:       t.Duration,
			TotalFloat:     finitePtr(t.TotalFloat),
			IsCritical:     t.IsCritical,
			IsNearCritical: t.IsNearCritical,
			Highlighted:    res.Highlight.Has(t.ID),
		})
	}

	for _, rel := range g.Relationships {
		out.Edges = append(out.Edges, GraphEdge{
			From:       rel.PredecessorID,
			To:         rel.SuccessorID,
			Type:       rel.Type.String(),
			Lag:        rel.Lag,
			Float:      finitePtr(rel.Float),
			IsDriving:  rel.IsDriving,
			IsCritical: rel.IsCritical,
		})
	}

	for _, c := range res.Chains {
		out.Chains = append(out.Chains, c.TaskIDs)
	}
	if res.SelectedChain() != nil {
		out.SelectedPath = res.Selected + 1
	}
	return out
}

// --- HTTP server ---

// Server holds the loaded schedule and the latest analysis. Every pass runs
// under mu, so at most one pass touches the task graph at a time.
type Server struct {
	mu     sync.RWMutex
	mode   cpm.Mode
	opts   cpm.Options
	log    *slog.Logger
	tasks  *graph.TaskGraph
	result *cpm.Result
	graph  *Graph

	// OnSelect, when set, is called with the 1-based chain index after a
	// successful navigation.
	OnSelect func(oneBased int)
}

// NewServer creates a Server that analyses schedules with the given mode and
// engine options.
func NewServer(mode cpm.Mode, opts cpm.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.TraceMode != cpm.TraceForward {
		opts.TraceMode = cpm.TraceBackward
	}
	return &Server{mode: mode, opts: opts, log: logger}
}

// Load replaces the current schedule and recomputes.
func (s *Server) Load(doc *schedule.Document) *Graph {
	return s.LoadGraph(graph.Build(doc))
}

// LoadGraph replaces the current task graph and recomputes.
func (s *Server) LoadGraph(g *graph.TaskGraph) *Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = g
	return s.recomputeLocked()
}

func (s *Server) recomputeLocked() *Graph {
	s.result = cpm.New(s.opts, s.log).Recompute(s.tasks, s.mode)
	s.graph = toGraph(s.tasks, s.result, time.Now().UTC())
	return s.graph
}

// Handler returns the HTTP routes of the viewer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/graph", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handlePostGraph(w, r)
		case http.MethodGet:
			s.handleGetGraph(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/trace", s.handleTrace)
	mux.HandleFunc("/paths/next", func(w http.ResponseWriter, r *http.Request) {
		s.handleNavigate(w, r, (*cpm.PathSelector).Next)
	})
	mux.HandleFunc("/paths/prev", func(w http.ResponseWriter, r *http.Request) {
		s.handleNavigate(w, r, (*cpm.PathSelector).Previous)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("critpath viewer\n\nGET  /graph\nPOST /graph\nGET  /trace?task=ID&mode=forward|backward\nPOST /paths/next\nPOST /paths/prev\n"))
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handlePostGraph(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := schedule.Parse(data)
	if err != nil {
		http.Error(w, "invalid schedule: "+err.Error(), http.StatusBadRequest)
		return
	}

	g := s.Load(doc)
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		http.Error(w, "no graph loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type traceResponse struct {
	Task  string   `json:"task"`
	Mode  string   `json:"mode"`
	Tasks []string `json:"tasks"`
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("task")
	if id == "" {
		http.Error(w, "missing task parameter", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	mode := s.opts.TraceMode
	switch m := cpm.TraceMode(r.URL.Query().Get("mode")); m {
	case "":
	case cpm.TraceForward, cpm.TraceBackward:
		mode = m
	default:
		http.Error(w, "mode must be forward or backward", http.StatusBadRequest)
		return
	}

	if s.tasks == nil {
		http.Error(w, "no graph loaded", http.StatusNotFound)
		return
	}

	set := cpm.New(s.opts, s.log).Trace(s.tasks, id, mode)
	writeJSON(w, http.StatusOK, traceResponse{Task: id, Mode: string(mode), Tasks: set.Sorted()})
}

type navigateResponse struct {
	Navigated    bool   `json:"navigated"`
	Message      string `json:"message,omitempty"`
	SelectedPath int    `json:"selected_path"`
	Count        int    `json:"count"`
	Graph        *Graph `json:"graph"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request, step func(*cpm.PathSelector) bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	if s.tasks == nil {
		s.mu.Unlock()
		http.Error(w, "no graph loaded", http.StatusNotFound)
		return
	}

	count := len(s.result.Chains)
	sel := cpm.NewPathSelector(s.opts.SelectedPathIndex, count, s.opts.EnableMultiPath)
	resp := navigateResponse{Count: count}
	if step(sel) {
		s.opts.SelectedPathIndex = sel.OneBased()
		s.recomputeLocked()
		resp.Navigated = true
	} else {
		resp.Message = sel.NavigationHint()
	}
	resp.SelectedPath = s.graph.SelectedPath
	resp.Graph = s.graph
	onSelect := s.OnSelect
	s.mu.Unlock()

	if resp.Navigated && onSelect != nil {
		onSelect(resp.SelectedPath)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Start launches the viewer HTTP server on the given port in the background.
// Returns the base URL (e.g. "http://localhost:7171") or an error.
func Start(port int, srv *Server) (string, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return "", fmt.Errorf("listen on port %d: %w", port, err)
	}

	go http.Serve(ln, srv.Handler())

	addr := fmt.Sprintf("http://localhost:%d", port)
	return addr, nil
}

// PostSchedule sends a schedule document to a running viewer server.
func PostSchedule(addr string, data []byte) error {
	resp, err := http.Post(addr+"/graph", "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("POST /graph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /graph returned %d", resp.StatusCode)
	}

	return nil
}

// IsPortOpen checks if something is listening on the given address.
func IsPortOpen(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
