package cpm

import "testing"

func TestNewPathSelector_Clamps(t *testing.T) {
	cases := []struct {
		oneBased, count int
		multi           bool
		want            int
	}{
		{1, 3, true, 0},
		{2, 3, true, 1},
		{0, 3, true, 0},
		{-5, 3, true, 0},
		{7, 3, true, 2},
		{3, 3, false, 0},
		{1, 0, true, 0},
	}
	for _, tc := range cases {
		s := NewPathSelector(tc.oneBased, tc.count, tc.multi)
		if s.Index != tc.want {
			t.Errorf("NewPathSelector(%d, %d, %v): expected index %d, got %d",
				tc.oneBased, tc.count, tc.multi, tc.want, s.Index)
		}
	}
}

func TestPathSelector_NextPreviousWrap(t *testing.T) {
	s := NewPathSelector(1, 3, true)

	if !s.Next() || s.Index != 1 {
		t.Fatalf("expected index 1 after Next, got %d", s.Index)
	}
	s.Next()
	if !s.Next() || s.Index != 0 {
		t.Fatalf("expected Next to wrap to 0, got %d", s.Index)
	}
	if !s.Previous() || s.Index != 2 {
		t.Fatalf("expected Previous to wrap to 2, got %d", s.Index)
	}
	if s.OneBased() != 3 {
		t.Errorf("expected one-based index 3, got %d", s.OneBased())
	}
}

func TestPathSelector_NoOp(t *testing.T) {
	single := NewPathSelector(1, 1, true)
	if single.CanNavigate() {
		t.Error("expected a single chain to be non-navigable")
	}
	if single.Next() || single.Previous() {
		t.Error("expected Next/Previous to report no-op with one chain")
	}
	if single.Index != 0 {
		t.Errorf("expected index to stay 0, got %d", single.Index)
	}

	disabled := NewPathSelector(2, 4, false)
	if disabled.Next() || disabled.Index != 0 {
		t.Errorf("expected navigation disabled without multi-path, got index %d", disabled.Index)
	}
}

func TestPathSelector_NavigationHint(t *testing.T) {
	cases := []struct {
		count int
		multi bool
		want  string
	}{
		{0, true, "no driving chains to navigate"},
		{1, true, "only one driving chain"},
		{3, false, "multi-path navigation is disabled"},
		{3, true, ""},
	}
	for _, tc := range cases {
		if got := NewPathSelector(1, tc.count, tc.multi).NavigationHint(); got != tc.want {
			t.Errorf("count=%d multi=%v: expected %q, got %q", tc.count, tc.multi, tc.want, got)
		}
	}
}
