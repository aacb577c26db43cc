package resolver

import "github.com/bigrogerio/daedalus/internal/shared/util"

// State maps top-level names of one file to their resolved values. Entries
// are added or overwritten in source order and never removed.
type State struct {
	values map[string]Value
}

func NewState() *State {
	return &State{values: make(map[string]Value)}
}

// Get returns the value bound to name.
func (s *State) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *State) set(name string, v Value) {
	s.values[name] = v
}

// Len is the number of resolved names.
func (s *State) Len() int {
	return len(s.values)
}

// Names returns the resolved names in sorted order.
func (s *State) Names() []string {
	return util.SortedStringKeys(s.values)
}

// Map returns a copy of the state.
func (s *State) Map() map[string]Value {
	out := make(map[string]Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Equal reports whether both states bind the same names to equal values.
func (s *State) Equal(o *State) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k, v := range s.values {
		ov, ok := o.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
