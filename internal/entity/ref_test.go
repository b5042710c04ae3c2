package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Shapes(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want RefState
	}{
		{"nil", nil, RefState{Status: RefUnset}},
		{"empty string", "", RefState{Status: RefUnset}},
		{"plain id", "abc123", RefState{Status: RefHealthy, ID: "abc123"}},
		{"nested id", map[string]any{"id": "abc123", "name": "x"}, RefState{Status: RefHealthy, ID: "abc123"}},
		{"tombstone _id", map[string]any{"_id": map[string]any{"$oid": "dead01"}}, RefState{Status: RefBroken, ID: "dead01"}},
		{"tombstone $id", map[string]any{"$id": map[string]any{"$oid": "dead02"}}, RefState{Status: RefBroken, ID: "dead02"}},
		{"tombstone bare oid", map[string]any{"_id": "dead03"}, RefState{Status: RefBroken, ID: "dead03"}},
		{"marker string", "!dead04", RefState{Status: RefBroken, ID: "dead04"}},
		{"unknown map", map[string]any{"weird": true}, RefState{Status: RefUnset}},
		{"numeric id", 42, RefState{Status: RefHealthy, ID: "42"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.raw))
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	inputs := []any{
		nil,
		"abc123",
		map[string]any{"id": "abc123"},
		map[string]any{"_id": map[string]any{"$oid": "dead01"}},
	}
	for _, raw := range inputs {
		once := Resolve(raw)
		again := Resolve(once.Value())
		assert.Equal(t, once, again, "input %v", raw)
	}
}

func TestRefState_String(t *testing.T) {
	assert.Equal(t, "", RefState{Status: RefUnset}.String())
	assert.Equal(t, "abc", RefState{Status: RefHealthy, ID: "abc"}.String())
	assert.Equal(t, "!abc", RefState{Status: RefBroken, ID: "abc"}.String())
	assert.Nil(t, RefState{Status: RefUnset}.Value())
}
