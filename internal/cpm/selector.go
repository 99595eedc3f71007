package cpm

// PathSelector tracks which discovered driving chain is highlighted.
type PathSelector struct {
	Index     int // 0-based
	Count     int
	MultiPath bool
}

// NewPathSelector converts a 1-based preference into a clamped 0-based index.
// With multi-path navigation disabled the first chain is always selected.
func NewPathSelector(oneBased, count int, multiPath bool) *PathSelector {
	s := &PathSelector{Count: count, MultiPath: multiPath}
	if count <= 0 || !multiPath {
		return s
	}
	idx := oneBased - 1
	if idx < 0 {
		idx = 0
	}
	if idx > count-1 {
		idx = count - 1
	}
	s.Index = idx
	return s
}

// CanNavigate reports whether Next and Previous can change the selection.
func (s *PathSelector) CanNavigate() bool {
	return s.MultiPath && s.Count > 1
}

// Next advances to the following chain, wrapping around. It returns false and
// leaves the selection unchanged when there is nothing to navigate to.
func (s *PathSelector) Next() bool {
	if !s.CanNavigate() {
		return false
	}
	s.Index = (s.Index + 1) % s.Count
	return true
}

// Previous moves to the preceding chain, wrapping around. It returns false and
// leaves the selection unchanged when there is nothing to navigate to.
func (s *PathSelector) Previous() bool {
	if !s.CanNavigate() {
		return false
	}
	s.Index = (s.Index - 1 + s.Count) % s.Count
	return true
}

// OneBased returns the selection in the persisted 1-based form.
func (s *PathSelector) OneBased() int {
	return s.Index + 1
}

// NavigationHint explains why Next and Previous are no-ops. It returns an
// empty string when navigation is possible.
func (s *PathSelector) NavigationHint() string {
	switch {
	case s.CanNavigate():
		return ""
	case s.Count == 0:
		return "no driving chains to navigate"
	case !s.MultiPath:
		return "multi-path navigation is disabled"
	default:
		return "only one driving chain"
	}
}
