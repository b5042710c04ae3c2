package entity

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/crucible/internal/schema"
)

func testSchema() *schema.EntitySchema {
	return &schema.EntitySchema{
		Name:    "job",
		APIPath: "api/job",
		Fields: map[string]schema.Descriptor{
			"name": &schema.FieldDescriptor{Name: "name", Default: ""},
			"priority": &schema.FieldDescriptor{
				Name:    "priority",
				Default: 50,
				Validator: func(v any) bool {
					n, ok := v.(int)
					return ok && 0 <= n && n <= 100
				},
			},
			"tags":     &schema.FieldDescriptor{Name: "tags", Default: []any{}},
			"progress": &schema.FieldDescriptor{Name: "progress"},
			"task": &schema.ReferenceDescriptor{
				FieldDescriptor: schema.FieldDescriptor{Name: "task"},
				Target:          "task",
			},
		},
		FieldOrder: []string{"name", "priority", "tags", "progress", "task"},
	}
}

func TestInstantiate_DefaultsAndOverlay(t *testing.T) {
	e := Instantiate(testSchema(), map[string]any{"name": "fuzz1"})

	name, err := e.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "fuzz1", name)

	priority, err := e.Get("priority")
	require.NoError(t, err)
	assert.Equal(t, 50, priority)

	assert.False(t, e.IsPersisted())
}

func TestInstantiate_PassthroughPreserved(t *testing.T) {
	e := Instantiate(testSchema(), map[string]any{
		"id":          "j1",
		"server_only": map[string]any{"x": 1},
	})
	assert.True(t, e.IsPersisted())
	assert.Equal(t, "j1", e.ID())

	v, err := e.Get("server_only")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1}, v)

	out := e.Serialize()
	assert.Equal(t, map[string]any{"x": 1}, out["server_only"])
}

func TestInstantiate_DefaultsNotShared(t *testing.T) {
	es := testSchema()
	a := Instantiate(es, nil)
	b := Instantiate(es, nil)

	require.NoError(t, a.Set("tags", []string{"x"}))
	tags, err := b.Get("tags")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestSerialize_DropsNil(t *testing.T) {
	e := Instantiate(testSchema(), nil)
	out := e.Serialize()
	_, hasProgress := out["progress"]
	assert.False(t, hasProgress, "nil-valued fields must not serialize")
	_, hasTask := out["task"]
	assert.False(t, hasTask, "unset references must not serialize")
	assert.Equal(t, "", out["name"])
	assert.Equal(t, 50, out["priority"])
}

func TestSerialize_InstantiateRoundTrip(t *testing.T) {
	es := testSchema()
	payloads := []map[string]any{
		{"name": "fuzz1"},
		{"name": "fuzz1", "priority": 75, "task": "t9"},
		{"id": "j1", "extra_key": "kept", "task": map[string]any{"id": "t3"}},
		{"task": map[string]any{"_id": map[string]any{"$oid": "gone"}}},
	}
	for _, p := range payloads {
		first := Instantiate(es, p)
		second := Instantiate(es, first.Serialize())
		assert.Equal(t, first.Serialize(), second.Serialize(), "payload %v", p)
	}
}

func TestSet_CastsAndValidates(t *testing.T) {
	e := Instantiate(testSchema(), nil)

	require.NoError(t, e.Set("priority", "75"))
	v, _ := e.Get("priority")
	assert.Equal(t, 75, v)

	err := e.Set("priority", "150")
	var valErr *schema.ValidationError
	require.ErrorAs(t, err, &valErr)
	v, _ = e.Get("priority")
	assert.Equal(t, 75, v, "rejected writes must not stick")

	err = e.Set("priority", "lots")
	var castErr *schema.TypeCastError
	require.ErrorAs(t, err, &castErr)
}

func TestSet_UnknownField(t *testing.T) {
	e := Instantiate(testSchema(), nil)
	err := e.Set("nope", 1)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = e.Get("nope")
	require.ErrorAs(t, err, &nf)
}

func TestSet_EntityStoresIdentifier(t *testing.T) {
	taskSchema := &schema.EntitySchema{
		Name:    "task",
		APIPath: "api/task",
		Fields: map[string]schema.Descriptor{
			"name": &schema.FieldDescriptor{Name: "name", Default: ""},
		},
		FieldOrder: []string{"name"},
	}
	task := Instantiate(taskSchema, map[string]any{"id": "t42", "name": "boom"})

	job := Instantiate(testSchema(), nil)
	require.NoError(t, job.Set("task", task))

	v, err := job.Get("task")
	require.NoError(t, err)
	assert.Equal(t, "t42", v)
}

func TestGetRef_BrokenSurvives(t *testing.T) {
	e := Instantiate(testSchema(), map[string]any{
		"task": map[string]any{"$id": map[string]any{"$oid": "gone1"}},
	})
	st, err := e.GetRef("task")
	require.NoError(t, err)
	assert.Equal(t, RefBroken, st.Status)
	assert.Equal(t, "gone1", st.ID)

	// identifier form keeps the marker
	v, err := e.Get("task")
	require.NoError(t, err)
	assert.Equal(t, "!gone1", v)
}

func TestClearID_ForksToNew(t *testing.T) {
	e := Instantiate(testSchema(), map[string]any{"id": "j1", "name": "orig"})
	require.True(t, e.IsPersisted())

	e.ClearID()
	assert.False(t, e.IsPersisted())
	_, hasID := e.Serialize()["id"]
	assert.False(t, hasID)
	name, _ := e.Get("name")
	assert.Equal(t, "orig", name)
}

func TestRow_ClipsOnRuneBoundary(t *testing.T) {
	// "ü" is two bytes and straddles the 40-byte cell limit
	long := strings.Repeat("a", 39) + "ü" + strings.Repeat("b", 10)
	e := Instantiate(testSchema(), map[string]any{"name": long})

	row := e.Row([]string{"name", "priority"})
	require.Len(t, row, 2)
	assert.True(t, utf8.ValidString(row[0]), "clipped cell must stay valid UTF-8")
	assert.Equal(t, strings.Repeat("a", 39), row[0])
	assert.Equal(t, "50", row[1])
}
