package chanwatch

import "sync"

// Name is the optional name of the watched channel. A Name with Valid set
// to false means the channel has no name, or no observation has been made
// yet. Two invalid Names compare equal regardless of Value.
type Name struct {
	Value string
	Valid bool
}

// SomeName returns a valid Name holding value.
func SomeName(value string) Name {
	return Name{Value: value, Valid: true}
}

// NoName returns the absent Name.
func NoName() Name {
	return Name{}
}

// Equal reports whether two Names hold the same observation.
func (n Name) Equal(other Name) bool {
	if !n.Valid && !other.Valid {
		return true
	}
	return n.Valid == other.Valid && n.Value == other.Value
}

// String implements fmt.Stringer for log output.
func (n Name) String() string {
	if !n.Valid {
		return "<none>"
	}
	return n.Value
}

// State holds the last known channel name shared between the poller and the
// gateway client. Both detection paths must reconcile through the same
// State instance so that a change racing in on both paths produces exactly
// one winner.
type State struct {
	mu   sync.RWMutex
	name Name
}

// NewState returns an empty State.
func NewState() *State {
	return &State{}
}

// Load returns a snapshot of the current name.
func (s *State) Load() Name {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// CompareAndSwap stores n if it differs from the current value and reports
// whether the value actually changed. The compare and the store happen
// under one critical section, so of two concurrent callers observing the
// same new name only the first sees true.
func (s *State) CompareAndSwap(n Name) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name.Equal(n) {
		return false
	}
	s.name = n
	return true
}

// Store unconditionally replaces the current value. Used only by the
// bootstrap fetch before the detection loops start.
func (s *State) Store(n Name) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = n
}
