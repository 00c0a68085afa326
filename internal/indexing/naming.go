package indexing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/roach88/polyindex/internal/model"
)

// Namer derives index names from the reflected type, the key columns and
// the index kind. Equal inputs give equal names.
type Namer struct {
	m         *model.Model
	maxLength int
}

// NewNamer creates a namer. maxLength > 0 truncates longer names and
// appends a stable hash suffix.
func NewNamer(m *model.Model, maxLength int) *Namer {
	return &Namer{m: m, maxLength: maxLength}
}

// Real names a stored index reflected on reflected.
func (n *Namer) Real(reflected model.TypeID, ix *model.Index) string {
	return n.limit(n.base(reflected, ix))
}

// Declared names a stored index after its declaring type rather than its
// reflected one, for a shared table holding several indexes of one lineage.
func (n *Namer) Declared(ix *model.Index) string {
	return n.limit(n.base(ix.DeclaringType, ix))
}

// Virtual names a composed index of kind reflected on reflected. source is
// the index the name is derived from. Filters and views over an index of
// another type append that type.
func (n *Namer) Virtual(reflected model.TypeID, source *model.Index, kind model.IndexKind) string {
	name := n.base(reflected, source) + "." + strings.ToUpper(kind.String())
	single := kind == model.IndexFiltered || kind == model.IndexView
	if single && source.ReflectedType != reflected {
		name += "@" + n.m.NameOf(source.ReflectedType)
	}
	return n.limit(name)
}

func (n *Namer) base(reflected model.TypeID, ix *model.Index) string {
	origin := ix.Lineage()
	local := ix.IsReal() && ix.InheritedFrom == nil && ix.ReflectedType == reflected
	if d := origin.Def(); d != nil && d.Name != "" {
		if local || origin.ReflectedType == reflected {
			return d.Name
		}
		return d.Name + "_" + n.m.NameOf(reflected)
	}
	owner := reflected
	if local {
		owner = ix.DeclaringType
	}
	if ix.IsPrimary() {
		return "PK_" + n.m.NameOf(owner)
	}
	parts := []string{"IX", n.m.NameOf(owner)}
	for _, k := range ix.KeyColumns {
		parts = append(parts, strings.ReplaceAll(k.Column.Name, ".", "_"))
	}
	return strings.Join(parts, "_")
}

func (n *Namer) limit(name string) string {
	if n.maxLength <= 0 || len(name) <= n.maxLength {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	suffix := "_" + hex.EncodeToString(sum[:4])
	keep := n.maxLength - len(suffix)
	if keep < 1 {
		return suffix[1:]
	}
	return name[:keep] + suffix
}
