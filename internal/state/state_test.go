package state

import (
	"os"
	"testing"
)

func TestNewAndLoad(t *testing.T) {
	dir := t.TempDir()

	s, err := New(dir, "plan.json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.SelectedPathIndex != 1 {
		t.Errorf("expected path index 1, got %d", s.SelectedPathIndex)
	}
	if s.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set on save")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Schedule != "plan.json" {
		t.Errorf("loaded schedule mismatch: %s", loaded.Schedule)
	}
	if loaded.SelectedPathIndex != 1 {
		t.Errorf("loaded path index mismatch: %d", loaded.SelectedPathIndex)
	}
}

func TestSetPathIndex(t *testing.T) {
	dir := t.TempDir()

	s, err := New(dir, "plan.json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetPathIndex(3); err != nil {
		t.Fatalf("SetPathIndex: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SelectedPathIndex != 3 {
		t.Errorf("expected 3, got %d", loaded.SelectedPathIndex)
	}

	if err := s.SetPathIndex(0); err != nil {
		t.Fatalf("SetPathIndex: %v", err)
	}
	if s.SelectedPathIndex != 1 {
		t.Errorf("expected index clamped to 1, got %d", s.SelectedPathIndex)
	}
}

func TestSetTask(t *testing.T) {
	dir := t.TempDir()

	s, err := New(dir, "plan.json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetTask("A100", "forward"); err != nil {
		t.Fatalf("SetTask: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SelectedTaskID != "A100" || loaded.TraceMode != "forward" {
		t.Errorf("expected A100/forward, got %s/%s", loaded.SelectedTaskID, loaded.TraceMode)
	}
}

func TestLoadOrNew_ResetsForOtherSchedule(t *testing.T) {
	dir := t.TempDir()

	s, err := New(dir, "a.json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetPathIndex(4); err != nil {
		t.Fatalf("SetPathIndex: %v", err)
	}

	same, err := LoadOrNew(dir, "a.json")
	if err != nil {
		t.Fatalf("LoadOrNew: %v", err)
	}
	if same.SelectedPathIndex != 4 {
		t.Errorf("expected stored index 4, got %d", same.SelectedPathIndex)
	}

	other, err := LoadOrNew(dir, "b.json")
	if err != nil {
		t.Fatalf("LoadOrNew: %v", err)
	}
	if other.SelectedPathIndex != 1 || other.Schedule != "b.json" {
		t.Errorf("expected fresh state for b.json, got %+v", other)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir, "plan.json"); err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := os.WriteFile(Path(dir), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("expected parse error for corrupt state")
	}
}

func TestExistsAndClean(t *testing.T) {
	dir := t.TempDir()

	if Exists(dir) {
		t.Error("expected no state before New")
	}
	if _, err := New(dir, "plan.json"); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !Exists(dir) {
		t.Error("expected state to exist")
	}
	if err := Clean(dir); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if Exists(dir) {
		t.Error("expected state to be removed")
	}
}
