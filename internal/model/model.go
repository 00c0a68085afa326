package model

import (
	"errors"
	"fmt"
)

// ErrLocked is returned when a locked model is mutated.
var ErrLocked = errors.New("model is locked")

// Model is the arena of resolved types plus the model-wide real index list.
type Model struct {
	Name        string
	Types       []*TypeNode
	Hierarchies []*Hierarchy

	// RealIndexes lists every physically backed index in build order.
	RealIndexes []*Index

	byName map[string]TypeID
	locked bool
}

// New creates an empty model.
func New(name string) *Model {
	return &Model{Name: name, byName: make(map[string]TypeID)}
}

// AddType registers t and assigns its TypeID.
func (m *Model) AddType(t *TypeNode) (TypeID, error) {
	if m.locked {
		return NoType, ErrLocked
	}
	if _, exists := m.byName[t.Name]; exists {
		return NoType, fmt.Errorf("duplicate type %q", t.Name)
	}
	t.ID = TypeID(len(m.Types))
	m.Types = append(m.Types, t)
	m.byName[t.Name] = t.ID
	return t.ID, nil
}

// Type returns the node for id. It panics on ids outside the arena, which
// only a corrupted graph can produce.
func (m *Model) Type(id TypeID) *TypeNode {
	return m.Types[id]
}

// Lookup finds a type by name.
func (m *Model) Lookup(name string) (*TypeNode, bool) {
	id, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return m.Types[id], true
}

// NameOf returns the type name for id, or "<none>".
func (m *Model) NameOf(id TypeID) string {
	if id == NoType || int(id) >= len(m.Types) {
		return "<none>"
	}
	return m.Types[id].Name
}

// Lock freezes the model. Subsequent AddType calls fail.
func (m *Model) Lock() { m.locked = true }

// Locked reports whether the model is frozen.
func (m *Model) Locked() bool { return m.locked }

// Ancestors returns the ancestors of id, root first.
func (m *Model) Ancestors(id TypeID) []*TypeNode {
	var chain []*TypeNode
	for a := m.Types[id].Ancestor; a != NoType; a = m.Types[a].Ancestor {
		chain = append(chain, m.Types[a])
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Chain returns the ancestors of id followed by the type itself.
func (m *Model) Chain(id TypeID) []*TypeNode {
	return append(m.Ancestors(id), m.Types[id])
}

// Depth is the number of ancestors of id.
func (m *Model) Depth(id TypeID) int {
	d := 0
	for a := m.Types[id].Ancestor; a != NoType; a = m.Types[a].Ancestor {
		d++
	}
	return d
}

// IsAncestor reports whether a is a proper ancestor of id.
func (m *Model) IsAncestor(a, id TypeID) bool {
	for p := m.Types[id].Ancestor; p != NoType; p = m.Types[p].Ancestor {
		if p == a {
			return true
		}
	}
	return false
}

// Descendants returns the direct descendants of id, or with recursive set
// every descendant in pre-order.
func (m *Model) Descendants(id TypeID, recursive bool) []*TypeNode {
	var out []*TypeNode
	var walk func(TypeID)
	walk = func(t TypeID) {
		for _, d := range m.Types[t].Descendants {
			out = append(out, m.Types[d])
			if recursive {
				walk(d)
			}
		}
	}
	walk(id)
	return out
}

// Subtree returns id followed by all of its descendants in pre-order.
func (m *Model) Subtree(id TypeID) []*TypeNode {
	return append([]*TypeNode{m.Types[id]}, m.Descendants(id, true)...)
}

// Interfaces returns every interface id implements: its own, those of its
// ancestors and their base interfaces, without duplicates.
func (m *Model) Interfaces(id TypeID) []*TypeNode {
	seen := make(map[TypeID]bool)
	var out []*TypeNode
	var add func(TypeID)
	add = func(i TypeID) {
		if seen[i] {
			return
		}
		seen[i] = true
		for _, base := range m.Types[i].Interfaces {
			add(base)
		}
		out = append(out, m.Types[i])
	}
	var sources []TypeID
	if m.Types[id].IsInterface() {
		sources = m.Types[id].Interfaces
	} else {
		for _, t := range m.Chain(id) {
			sources = append(sources, t.Interfaces...)
		}
	}
	for _, i := range sources {
		add(i)
	}
	return out
}

// Implements reports whether id implements iface directly, through an
// ancestor, or through interface inheritance.
func (m *Model) Implements(id, iface TypeID) bool {
	for _, i := range m.Interfaces(id) {
		if i.ID == iface {
			return true
		}
	}
	return false
}

// Implementors returns the topmost entity implementors of iface: entities
// that implement it while their ancestor does not. Implementors reached
// through derived interfaces are included. Order follows the arena.
func (m *Model) Implementors(iface TypeID) []*TypeNode {
	var out []*TypeNode
	for _, t := range m.Types {
		if !t.IsEntity() || !m.Implements(t.ID, iface) {
			continue
		}
		if t.Ancestor != NoType && m.Implements(t.Ancestor, iface) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// AllImplementors returns every entity implementing iface, including the
// descendants of topmost implementors, in arena order.
func (m *Model) AllImplementors(iface TypeID) []*TypeNode {
	var out []*TypeNode
	for _, t := range m.Types {
		if t.IsEntity() && m.Implements(t.ID, iface) {
			out = append(out, t)
		}
	}
	return out
}

// Entities returns all entity nodes in arena order.
func (m *Model) Entities() []*TypeNode {
	return m.filter(KindEntity)
}

// InterfaceTypes returns all interface nodes in arena order.
func (m *Model) InterfaceTypes() []*TypeNode {
	return m.filter(KindInterface)
}

func (m *Model) filter(kind TypeKind) []*TypeNode {
	var out []*TypeNode
	for _, t := range m.Types {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// AddRealIndex records ix in the model-wide real index list once.
func (m *Model) AddRealIndex(ix *Index) {
	for _, existing := range m.RealIndexes {
		if existing == ix {
			return
		}
	}
	m.RealIndexes = append(m.RealIndexes, ix)
}

// RemoveRealIndex drops ix from the model-wide real index list.
func (m *Model) RemoveRealIndex(ix *Index) {
	for i, existing := range m.RealIndexes {
		if existing == ix {
			m.RealIndexes = append(m.RealIndexes[:i], m.RealIndexes[i+1:]...)
			return
		}
	}
}
