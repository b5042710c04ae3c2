package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCast_Bool(t *testing.T) {
	fd := &FieldDescriptor{Name: "debug", Default: false}

	for _, raw := range []string{"true", "t", "yes", "y", "TRUE", "Yes", "Y"} {
		v, err := fd.Cast(raw)
		require.NoError(t, err)
		assert.Equal(t, true, v, "raw %q", raw)
	}
	for _, raw := range []string{"false", "no", "0", "nope", ""} {
		v, err := fd.Cast(raw)
		require.NoError(t, err)
		assert.Equal(t, false, v, "raw %q", raw)
	}
}

func TestCast_Numeric(t *testing.T) {
	intField := &FieldDescriptor{Name: "limit", Default: 1}
	v, err := intField.Cast("42")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = intField.Cast("forty-two")
	var castErr *TypeCastError
	require.ErrorAs(t, err, &castErr)
	assert.Equal(t, "limit", castErr.Field)
	assert.Equal(t, KindInt, castErr.Kind)

	floatField := &FieldDescriptor{Name: "ratio", Default: 0.0}
	v, err = floatField.Cast("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	_, err = floatField.Cast("x")
	require.ErrorAs(t, err, &castErr)
}

func TestCast_StringAndUntypedPassThrough(t *testing.T) {
	strField := &FieldDescriptor{Name: "name", Default: ""}
	v, err := strField.Cast("fuzz1")
	require.NoError(t, err)
	assert.Equal(t, "fuzz1", v)

	anyField := &FieldDescriptor{Name: "progress"}
	v, err = anyField.Cast("whatever")
	require.NoError(t, err)
	assert.Equal(t, "whatever", v)
}

func TestCastTokens_ListConsumesAll(t *testing.T) {
	fd := &FieldDescriptor{Name: "tags", Default: []any{}}
	v, err := fd.CastTokens([]string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, v)
}

func TestCastTokens_ScalarWantsOneToken(t *testing.T) {
	fd := &FieldDescriptor{Name: "limit", Default: 1}
	_, err := fd.CastTokens([]string{"1", "2"})
	var castErr *TypeCastError
	require.ErrorAs(t, err, &castErr)

	v, err := fd.CastTokens([]string{"7"})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestValidate_DefaultsToTrue(t *testing.T) {
	fd := &FieldDescriptor{Name: "name", Default: ""}
	assert.True(t, fd.Validate("anything"))

	fd.Validator = func(v any) bool { return v == "ok" }
	assert.True(t, fd.Validate("ok"))
	assert.False(t, fd.Validate("nope"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAny, KindOf(nil))
	assert.Equal(t, KindBool, KindOf(true))
	assert.Equal(t, KindInt, KindOf(3))
	assert.Equal(t, KindFloat, KindOf(1.5))
	assert.Equal(t, KindString, KindOf("x"))
	assert.Equal(t, KindList, KindOf([]any{}))
	assert.Equal(t, KindMap, KindOf(map[string]any{}))
}

func TestHeaders_Ordering(t *testing.T) {
	es := &EntitySchema{
		Name: "widget",
		Fields: map[string]Descriptor{
			"name":   &FieldDescriptor{Name: "name", Default: ""},
			"secret": &FieldDescriptor{Name: "secret", Default: "", Detail: true},
			"size":   &FieldDescriptor{Name: "size", Default: 0},
		},
		FieldOrder: []string{"size", "name", "secret"},
	}
	assert.Equal(t, []string{"id", "name", "size"}, es.Headers())
}
