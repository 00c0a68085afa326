package testutil

import "fmt"

// FixedIDGenerator returns build ids from a fixed prefix and a counter.
//
// Catalog tests use it in place of random UUIDs so that stored rows and
// rendered output are byte-identical across runs.
//
// Thread-safety: not safe for concurrent use.
type FixedIDGenerator struct {
	prefix string
	n      int
}

// NewFixedIDGenerator creates a generator. An empty prefix means "build".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "build"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns "<prefix>-0001", "<prefix>-0002", ...
func (g *FixedIDGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
