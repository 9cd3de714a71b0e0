package models

import (
	"sort"
	"strings"
)

// Binding maps parameter names to string values
type Binding map[string]string

// Key returns the canonical serialization of the binding: its pairs sorted by
// name. Two bindings with the same pairs always share a key.
func (b Binding) Key() string {
	names := b.Names()
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(0)
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(b[name])
	}
	return sb.String()
}

// Names returns the parameter names in sorted order
func (b Binding) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the binding
func (b Binding) Clone() Binding {
	c := make(Binding, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// String formats the binding as sorted space separated name=value pairs
func (b Binding) String() string {
	names := b.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+b[name])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// ParamSet is a set of bindings. Membership is decided by Binding.Key, so the
// same pairs added twice are stored once. Bindings are never removed.
type ParamSet struct {
	entries map[string]Binding
}

// NewParamSet creates a set holding the given bindings
func NewParamSet(bindings ...Binding) *ParamSet {
	s := &ParamSet{entries: make(map[string]Binding)}
	for _, b := range bindings {
		s.Add(b)
	}
	return s
}

// Add inserts a copy of b and reports whether it was not already present
func (s *ParamSet) Add(b Binding) bool {
	if s.entries == nil {
		s.entries = make(map[string]Binding)
	}
	key := b.Key()
	if _, ok := s.entries[key]; ok {
		return false
	}
	s.entries[key] = b.Clone()
	return true
}

// Has reports whether an equal binding is in the set
func (s *ParamSet) Has(b Binding) bool {
	if s == nil {
		return false
	}
	_, ok := s.entries[b.Key()]
	return ok
}

// Len returns the number of distinct bindings
func (s *ParamSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Keys returns the canonical keys in sorted order
func (s *ParamSet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Maps returns the bindings as fresh mutable maps ordered by canonical key.
// Callers may modify the returned maps without affecting the set.
func (s *ParamSet) Maps() []map[string]string {
	keys := s.Keys()
	out := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]string(s.entries[k].Clone()))
	}
	return out
}

// Bindings returns copies of the bindings ordered by canonical key
func (s *ParamSet) Bindings() []Binding {
	keys := s.Keys()
	out := make([]Binding, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.entries[k].Clone())
	}
	return out
}
