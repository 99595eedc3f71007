package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const stateDir = ".critpath"
const stateFile = "state.json"

// SelectionState is the persisted selection of a critpath workspace: which
// driving chain is highlighted and which task, if any, seeds traces.
type SelectionState struct {
	// Schedule is the schedule file the selection refers to.
	Schedule          string    `json:"schedule,omitempty"`
	SelectedPathIndex int       `json:"selected_path_index"`
	SelectedTaskID    string    `json:"selected_task_id,omitempty"`
	TraceMode         string    `json:"trace_mode,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`

	mu   sync.Mutex `json:"-"`
	path string     `json:"-"`
}

// Path returns the state file location under dir.
func Path(dir string) string {
	return filepath.Join(dir, stateDir, stateFile)
}

// New creates a fresh SelectionState under dir and persists it.
func New(dir, schedule string) (*SelectionState, error) {
	if err := os.MkdirAll(filepath.Join(dir, stateDir), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	s := &SelectionState{
		Schedule:          schedule,
		SelectedPathIndex: 1,
		path:              Path(dir),
	}

	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads existing state from dir.
func Load(dir string) (*SelectionState, error) {
	path := Path(dir)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s SelectionState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.SelectedPathIndex < 1 {
		s.SelectedPathIndex = 1
	}
	s.path = path
	return &s, nil
}

// LoadOrNew returns the stored state for schedule, starting over when none
// exists or when it belongs to a different schedule.
func LoadOrNew(dir, schedule string) (*SelectionState, error) {
	if Exists(dir) {
		s, err := Load(dir)
		if err == nil && s.Schedule == schedule {
			return s, nil
		}
	}
	return New(dir, schedule)
}

// Exists checks if a state file exists.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Save persists the current state to disk.
func (s *SelectionState) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0644)
}

// SetPathIndex updates the 1-based selected chain and saves.
func (s *SelectionState) SetPathIndex(i int) error {
	s.mu.Lock()
	s.SelectedPathIndex = max(1, i)
	s.mu.Unlock()
	return s.Save()
}

// SetTask updates the selected task and trace direction and saves. An empty
// id clears the selection.
func (s *SelectionState) SetTask(id, mode string) error {
	s.mu.Lock()
	s.SelectedTaskID = id
	s.TraceMode = mode
	s.mu.Unlock()
	return s.Save()
}

// Clean removes the state directory under dir.
func Clean(dir string) error {
	return os.RemoveAll(filepath.Join(dir, stateDir))
}
