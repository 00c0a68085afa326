package model

import "fmt"

// IndexSet is the ordered collection of indexes visible on one type.
type IndexSet struct {
	items  []*Index
	byName map[string]*Index
}

// NewIndexSet creates an empty set.
func NewIndexSet() *IndexSet {
	return &IndexSet{byName: make(map[string]*Index)}
}

// Add appends ix. Names are unique within a set.
func (s *IndexSet) Add(ix *Index) error {
	if _, exists := s.byName[ix.Name]; exists {
		return fmt.Errorf("index %q already registered", ix.Name)
	}
	s.items = append(s.items, ix)
	s.byName[ix.Name] = ix
	return nil
}

// Remove deletes ix and reports whether it was present.
func (s *IndexSet) Remove(ix *Index) bool {
	for i, existing := range s.items {
		if existing == ix {
			s.items = append(s.items[:i], s.items[i+1:]...)
			delete(s.byName, ix.Name)
			return true
		}
	}
	return false
}

// Get finds an index by name.
func (s *IndexSet) Get(name string) (*Index, bool) {
	ix, ok := s.byName[name]
	return ix, ok
}

// Contains reports whether ix is in the set.
func (s *IndexSet) Contains(ix *Index) bool {
	existing, ok := s.byName[ix.Name]
	return ok && existing == ix
}

// Len returns the number of indexes.
func (s *IndexSet) Len() int { return len(s.items) }

// All returns the indexes in insertion order. The slice is a copy.
func (s *IndexSet) All() []*Index {
	return append([]*Index(nil), s.items...)
}

// Find returns every index matching pred, in order.
func (s *IndexSet) Find(pred func(*Index) bool) []*Index {
	var out []*Index
	for _, ix := range s.items {
		if pred(ix) {
			out = append(out, ix)
		}
	}
	return out
}

// First returns the first index matching pred.
func (s *IndexSet) First(pred func(*Index) bool) *Index {
	for _, ix := range s.items {
		if pred(ix) {
			return ix
		}
	}
	return nil
}

// Primary returns the primary index queries use: a composed primary when
// one exists, otherwise a typed primary, otherwise the real one.
func (s *IndexSet) Primary() *Index {
	if ix := s.First(func(ix *Index) bool {
		return ix.IsPrimary() && ix.IsVirtual() && ix.Kind() != IndexTyped
	}); ix != nil {
		return ix
	}
	if ix := s.First(func(ix *Index) bool { return ix.IsPrimary() && ix.Kind() == IndexTyped }); ix != nil {
		return ix
	}
	return s.RealPrimary()
}

// RealPrimary returns the stored primary index reflected on the set's type.
func (s *IndexSet) RealPrimary() *Index {
	return s.First(func(ix *Index) bool { return ix.IsPrimary() && ix.IsReal() })
}

// TypedOf returns the typed sibling of a real index, if one is registered.
func (s *IndexSet) TypedOf(real *Index) *Index {
	return s.First(func(ix *Index) bool {
		return ix.Kind() == IndexTyped && len(ix.Underlying) == 1 && ix.Underlying[0] == real
	})
}
