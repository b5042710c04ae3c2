package namegen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+-[a-z]+-[0-9a-f]{4}$`)
	for i := 0; i < 50; i++ {
		name := Generate()
		assert.Regexp(t, re, name)
	}
}

func TestWordListsLoaded(t *testing.T) {
	require.NotEmpty(t, adjectives)
	require.NotEmpty(t, nouns)
}
