package schedule

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNoTasks is returned when a schedule document contains no identifiable tasks.
var ErrNoTasks = errors.New("no tasks found")

// RawTask is a task record as it appears in a schedule document.
type RawTask struct {
	ID         string
	Name       string
	Start      time.Time // zero when missing or unparseable
	Finish     time.Time // zero when missing or unparseable
	Duration   float64   // days
	TotalFloat *float64  // externally supplied total float, nil when absent

	// Predecessors listed inline on the task. Each becomes an FS, zero-lag
	// relationship unless an explicit relationship already covers the pair.
	Predecessors []string
}

// RawRelationship is a precedence relationship as it appears in a schedule document.
type RawRelationship struct {
	Predecessor string
	Successor   string
	Type        string // FS, SS, FF, SF (free-form; normalised by graph)
	Lag         float64
	FreeFloat   *float64 // externally supplied free float, nil when absent
}

// Document is a parsed schedule.
type Document struct {
	Tasks         []RawTask
	Relationships []RawRelationship
}

// dateLayouts are tried in order when parsing task dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Load reads and parses a schedule document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	return Parse(data)
}

// Parse parses a schedule document of the form
// {"tasks": [...], "relationships": [...]}.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse schedule: invalid JSON")
	}
	root := gjson.ParseBytes(data)

	doc := &Document{}
	seen := make(map[string]bool)

	root.Get("tasks").ForEach(func(_, v gjson.Result) bool {
		id := strings.TrimSpace(v.Get("id").String())
		if id == "" || seen[id] {
			return true
		}
		seen[id] = true

		rt := RawTask{
			ID:         id,
			Name:       v.Get("name").String(),
			Start:      parseDate(v.Get("start")),
			Finish:     parseDate(v.Get("finish")),
			TotalFloat: parseNumber(v.Get("total_float")),
		}
		if d := parseNumber(v.Get("duration")); d != nil && *d > 0 {
			rt.Duration = *d
		}
		v.Get("predecessors").ForEach(func(_, p gjson.Result) bool {
			if pid := strings.TrimSpace(p.String()); pid != "" {
				rt.Predecessors = append(rt.Predecessors, pid)
			}
			return true
		})
		doc.Tasks = append(doc.Tasks, rt)
		return true
	})

	if len(doc.Tasks) == 0 {
		return nil, ErrNoTasks
	}

	root.Get("relationships").ForEach(func(_, v gjson.Result) bool {
		rr := RawRelationship{
			Predecessor: strings.TrimSpace(v.Get("predecessor").String()),
			Successor:   strings.TrimSpace(v.Get("successor").String()),
			Type:        v.Get("type").String(),
			FreeFloat:   parseNumber(v.Get("free_float")),
		}
		if rr.Predecessor == "" || rr.Successor == "" {
			return true
		}
		if lag := parseNumber(v.Get("lag")); lag != nil {
			rr.Lag = *lag
		}
		doc.Relationships = append(doc.Relationships, rr)
		return true
	})

	return doc, nil
}

// parseNumber accepts JSON numbers and numeric strings. Blank, non-numeric,
// NaN and infinite values are reported as missing.
func parseNumber(v gjson.Result) *float64 {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseDate(v gjson.Result) time.Time {
	if v.Type != gjson.String {
		return time.Time{}
	}
	s := strings.TrimSpace(v.Str)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
