// Package params implements system parameters: named values that many
// component parameters can track through pointer mappings.
package params

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

var (
	ErrExists   = errors.New("params: system parameter already exists")
	ErrUnknown  = errors.New("params: unknown system parameter")
	ErrMapped   = errors.New("params: system parameter is still mapped")
	ErrNilValue = errors.New("params: nil mapping target")
)

type entry struct {
	value  float64
	mapped []*float64
}

// SystemParameters maps names to values and keeps mapped float64 locations
// in sync on Update. It is safe for concurrent use; the mapped locations
// themselves are written without synchronization and must not be read
// concurrently with Update.
type SystemParameters struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *SystemParameters {
	return &SystemParameters{entries: make(map[string]*entry)}
}

// Add creates a parameter. It fails if the name exists.
func (s *SystemParameters) Add(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %q", ErrExists, name)
	}
	s.entries[name] = &entry{value: value}
	return nil
}

// Value returns the current value of a parameter.
func (s *SystemParameters) Value(name string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return e.value, nil
}

// SetValue changes a parameter. Mapped locations see the new value after
// the next Update.
func (s *SystemParameters) SetValue(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	e.value = value
	return nil
}

// Parameters returns a snapshot of all names and values.
func (s *SystemParameters) Parameters() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.entries))
	for name, e := range s.entries {
		out[name] = e.value
	}
	return out
}

// Names lists parameter names in sorted order.
func (s *SystemParameters) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *SystemParameters) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// FindOccurrence returns the name a location is mapped to.
func (s *SystemParameters) FindOccurrence(value *float64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(value)
}

func (s *SystemParameters) findLocked(value *float64) (string, bool) {
	for name, e := range s.entries {
		if slices.Contains(e.mapped, value) {
			return name, true
		}
	}
	return "", false
}

// Erase removes a parameter. It fails while any location is mapped to it.
func (s *SystemParameters) Erase(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if len(e.mapped) > 0 {
		return fmt.Errorf("%w: %q has %d mappings", ErrMapped, name, len(e.mapped))
	}
	delete(s.entries, name)
	return nil
}

// MapParameter keeps value in sync with the named parameter. A location is
// mapped to at most one name; mapping it again moves it.
func (s *SystemParameters) MapParameter(name string, value *float64) error {
	if value == nil {
		return ErrNilValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if prev, found := s.findLocked(value); found {
		if prev == name {
			return nil
		}
		s.unmapLocked(prev, value)
	}
	e.mapped = append(e.mapped, value)
	return nil
}

// UnMapParameter removes one mapping. Other mappings of the same name are
// untouched.
func (s *SystemParameters) UnMapParameter(name string, value *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmapLocked(name, value)
}

// UnMapAll removes every mapping of a location.
func (s *SystemParameters) UnMapAll(value *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.entries {
		s.unmapLocked(name, value)
	}
}

func (s *SystemParameters) unmapLocked(name string, value *float64) {
	e, ok := s.entries[name]
	if !ok {
		return
	}
	e.mapped = slices.DeleteFunc(e.mapped, func(p *float64) bool { return p == value })
}

// Mappings is the number of locations mapped to a name.
func (s *SystemParameters) Mappings(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[name]; ok {
		return len(e.mapped)
	}
	return 0
}

// Update writes every value into all of its mapped locations.
func (s *SystemParameters) Update() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		for _, p := range e.mapped {
			*p = e.value
		}
	}
}

// UpdateName is Update restricted to one parameter.
func (s *SystemParameters) UpdateName(name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	for _, p := range e.mapped {
		*p = e.value
	}
	return nil
}
