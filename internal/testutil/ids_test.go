package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_Sequence(t *testing.T) {
	gen := NewFixedIDGenerator("b")

	assert.Equal(t, "b-0001", gen.Generate())
	assert.Equal(t, "b-0002", gen.Generate())
}

func TestFixedIDGenerator_DefaultPrefix(t *testing.T) {
	gen := NewFixedIDGenerator("")

	assert.Equal(t, "build-0001", gen.Generate())
}
