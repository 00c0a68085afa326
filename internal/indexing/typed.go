package indexing

import (
	"github.com/roach88/polyindex/internal/model"
)

// cleanupTyped removes Typed indexes nothing composes from types without
// descendants. Such a sibling can never be needed to tell descendant rows
// apart.
func (b *builder) cleanupTyped() error {
	referenced := make(map[*model.Index]bool)
	for _, t := range b.m.Types {
		for _, ix := range t.Indexes.All() {
			for _, u := range ix.Underlying {
				u.Walk(func(c *model.Index) { referenced[c] = true })
			}
		}
	}
	for _, t := range b.m.Types {
		if len(t.Descendants) > 0 {
			continue
		}
		for _, ix := range t.Indexes.All() {
			if ix.Kind() != model.IndexTyped || referenced[ix] {
				continue
			}
			t.Indexes.Remove(ix)
			delete(b.untyped, ix.DeclaringIndex)
			b.report.RemovedTyped++
			b.log.Debug("removed typed index", "type", t.Name, "index", ix.Name)
		}
	}
	return nil
}
