package entity

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/matthewbaird/crucible/internal/schema"
)

// NotFoundError reports access to a field the entity does not carry.
type NotFoundError struct {
	Field string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no field named %q", e.Field)
}

// UnresolvedReferenceError reports a reference assignment to an identifier
// the store could not enumerate as a candidate (deleted entity, filter
// mismatch). Recoverable: the editor reports it and stays interactive.
type UnresolvedReferenceError struct {
	Field string
	ID    string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("no candidate for reference %q matches %q", e.Field, e.ID)
}

// Entity is a schema-bound record. Declared fields are always present,
// populated from schema defaults and overlaid by store payloads. Keys the
// store sends that the schema does not declare are preserved verbatim so
// the client tolerates server-side fields it does not model.
type Entity struct {
	schema *schema.EntitySchema
	values map[string]any
	extra  []string // passthrough keys, in arrival order
}

// Instantiate builds an entity of the given type. With a nil payload the
// entity carries only schema defaults ("new"); a payload overlays the
// defaults, reference values are normalized to identifier form, and
// unknown keys pass through unmodified ("existing" when an id is present).
func Instantiate(es *schema.EntitySchema, raw map[string]any) *Entity {
	e := &Entity{
		schema: es,
		values: make(map[string]any, len(es.FieldOrder)+len(raw)),
	}
	for _, name := range es.FieldOrder {
		e.values[name] = dup(es.Fields[name].Meta().Default)
	}
	for k, v := range raw {
		if d, ok := es.Fields[k]; ok {
			if d.IsRef() {
				v = Resolve(v).Value()
			}
			e.values[k] = v
			continue
		}
		e.values[k] = v
		e.extra = append(e.extra, k)
	}
	return e
}

// Schema returns the entity's type schema.
func (e *Entity) Schema() *schema.EntitySchema { return e.schema }

// Type returns the entity type name.
func (e *Entity) Type() string { return e.schema.Name }

// ID returns the store-assigned identifier, or "" for a new entity.
func (e *Entity) ID() string {
	if id, ok := e.values["id"]; ok && id != nil {
		return fmt.Sprint(id)
	}
	return ""
}

// IsPersisted reports whether the store has assigned an identifier.
func (e *Entity) IsPersisted() bool { return e.ID() != "" }

// ClearID removes the identifier, flipping the entity to "new" so the next
// commit creates instead of updates (clone/fork workflows).
func (e *Entity) ClearID() {
	delete(e.values, "id")
	for i, k := range e.extra {
		if k == "id" {
			e.extra = append(e.extra[:i], e.extra[i+1:]...)
			break
		}
	}
}

// Get returns the resolved value of a field. Reference fields come back in
// identifier form. Unknown fields fail with a NotFoundError.
func (e *Entity) Get(field string) (any, error) {
	v, ok := e.values[field]
	if !ok {
		return nil, &NotFoundError{Field: field}
	}
	if d := e.schema.Field(field); d != nil && d.IsRef() {
		return Resolve(v).Value(), nil
	}
	return v, nil
}

// GetRef returns the normalized reference state of a reference field.
func (e *Entity) GetRef(field string) (RefState, error) {
	d := e.schema.Field(field)
	if d == nil || !d.IsRef() {
		return RefState{}, &NotFoundError{Field: field}
	}
	return Resolve(e.values[field]), nil
}

// Set writes a field value. Strings are cast when the field is not
// string-typed; the field validator runs on the final value; assigning
// another entity stores its identifier, never the record itself.
func (e *Entity) Set(field string, value any) error {
	d := e.schema.Field(field)
	if d == nil {
		// passthrough keys may be rewritten, never invented
		if _, ok := e.values[field]; !ok {
			return &NotFoundError{Field: field}
		}
		e.values[field] = value
		return nil
	}
	fd := d.Meta()

	if other, ok := value.(*Entity); ok {
		value = other.ID()
	}
	if d.IsRef() {
		e.values[field] = Resolve(value).Value()
		return nil
	}

	if s, ok := value.(string); ok && fd.Kind() != schema.KindString && fd.Kind() != schema.KindAny {
		cast, err := fd.Cast(s)
		if err != nil {
			return err
		}
		value = cast
	}
	if ss, ok := value.([]string); ok && fd.Kind() == schema.KindList {
		vals := make([]any, len(ss))
		for i, s := range ss {
			vals[i] = s
		}
		value = vals
	}
	if k := fd.Kind(); k != schema.KindAny && value != nil && schema.KindOf(value) != k {
		return &schema.TypeCastError{Field: field, Kind: k, Raw: fmt.Sprint(value)}
	}
	if !fd.Validate(value) {
		return &schema.ValidationError{Field: field, Value: value}
	}
	e.values[field] = value
	return nil
}

// UnsetFields returns the declared fields whose current value is nil, in
// declaration order. Reference fields report unset when their state is
// RefUnset.
func (e *Entity) UnsetFields() []string {
	var out []string
	for _, name := range e.schema.FieldOrder {
		v := e.values[name]
		if e.schema.Fields[name].IsRef() {
			if Resolve(v).Status == RefUnset {
				out = append(out, name)
			}
			continue
		}
		if v == nil {
			out = append(out, name)
		}
	}
	return out
}

// Serialize returns the entity's wire payload: every field whose resolved
// value is non-nil, passthrough keys included. The caller owns the map.
func (e *Entity) Serialize() map[string]any {
	out := make(map[string]any, len(e.values))
	for k, v := range e.values {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Row renders the entity's values for the given header columns, clipping
// each cell for tabular display.
func (e *Entity) Row(headers []string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		v, err := e.Get(h)
		if err != nil {
			row[i] = ""
			continue
		}
		row[i] = clip(display(v), 40)
	}
	return row
}

func display(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// back off to a rune boundary so the cut never splits a multibyte rune
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// dup deep-copies a schema default so entities never share mutable
// list/map defaults.
func dup(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = dup(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = dup(e)
		}
		return out
	default:
		return v
	}
}
