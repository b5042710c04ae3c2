// Package schema defines the per-entity-type field schemas that drive the
// interactive editor: field descriptors with defaults, reference descriptors
// pointing at other entity types, and the registry of all known entity types.
//
// Descriptors are pure metadata. Casting and validation never touch the
// network; resolving references and enumerating candidates is the caller's
// job (see internal/entity and internal/editor).
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a field's runtime type. The kind of a field is derived
// from the type of its default value, and every value written to the field
// must carry (or cast to) the same kind.
type Kind int

const (
	KindAny Kind = iota // nil default, no type constraint
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindTuple
	KindMap
)

// String returns the schema-visible kind name.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindMap:
		return "map"
	default:
		return "any"
	}
}

// KindOf derives the kind of an arbitrary value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindAny
	case bool:
		return KindBool
	case int, int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []any, []string:
		return KindList
	case map[string]any:
		return KindMap
	default:
		return KindAny
	}
}

// TypeCastError reports textual input that could not be cast to a field's
// declared kind. It is always recoverable: the editor re-prompts.
type TypeCastError struct {
	Field string
	Kind  Kind
	Raw   string
}

func (e *TypeCastError) Error() string {
	return fmt.Sprintf("cannot cast %q to %s for field %q", e.Raw, e.Kind, e.Field)
}

// ValidationError reports a value rejected by a field's validator.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for field %q", e.Value, e.Field)
}

// FieldDescriptor declares a single field of an entity type: its default
// value (which also fixes the field's kind), whether it is a detail field
// (hidden from terse tabular views), a human description, and an optional
// validator.
type FieldDescriptor struct {
	Name      string
	Default   any
	Detail    bool
	Desc      string
	Validator func(any) bool
}

// Kind returns the field's kind, derived from the default value.
func (f *FieldDescriptor) Kind() Kind {
	return KindOf(f.Default)
}

// Validate runs the field's validator against v. Fields without a
// validator accept everything.
func (f *FieldDescriptor) Validate(v any) bool {
	if f.Validator == nil {
		return true
	}
	return f.Validator(v)
}

// Cast converts a single textual argument to the field's native type.
// Boolean fields treat {true, t, yes, y} (case-insensitive) as true and
// anything else as false. Numeric fields fail with a TypeCastError on
// non-numeric input. String and untyped fields pass through unchanged.
func (f *FieldDescriptor) Cast(raw string) (any, error) {
	switch f.Kind() {
	case KindBool:
		switch strings.ToLower(raw) {
		case "true", "t", "yes", "y":
			return true, nil
		default:
			return false, nil
		}
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &TypeCastError{Field: f.Name, Kind: KindInt, Raw: raw}
		}
		return int(n), nil
	case KindFloat:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &TypeCastError{Field: f.Name, Kind: KindFloat, Raw: raw}
		}
		return x, nil
	default:
		return raw, nil
	}
}

// CastTokens converts a CLI token sequence to the field's native type.
// List and tuple fields consume every token; all other kinds take exactly
// one token and defer to Cast.
func (f *FieldDescriptor) CastTokens(tokens []string) (any, error) {
	switch f.Kind() {
	case KindList, KindTuple:
		vals := make([]any, len(tokens))
		for i, t := range tokens {
			vals[i] = t
		}
		return vals, nil
	default:
		if len(tokens) != 1 {
			return nil, &TypeCastError{Field: f.Name, Kind: f.Kind(), Raw: strings.Join(tokens, " ")}
		}
		return f.Cast(tokens[0])
	}
}

// IsRef reports whether the descriptor is a reference to another entity type.
func (f *FieldDescriptor) IsRef() bool { return false }

// ReferenceDescriptor is a FieldDescriptor whose value names another entity
// by identifier. Target is the referenced entity type; Filter optionally
// restricts candidate enumeration server-side (e.g. only code entities of
// type "tool").
type ReferenceDescriptor struct {
	FieldDescriptor
	Target string
	Filter map[string]string
}

// IsRef reports whether the descriptor is a reference to another entity type.
func (r *ReferenceDescriptor) IsRef() bool { return true }

// Descriptor is implemented by FieldDescriptor and ReferenceDescriptor.
// Editors and entities only ever see this interface.
type Descriptor interface {
	Meta() *FieldDescriptor
	IsRef() bool
}

// Meta returns the descriptor's field metadata.
func (f *FieldDescriptor) Meta() *FieldDescriptor { return f }

// Ref unwraps d into a ReferenceDescriptor, or nil if d is a plain field.
func Ref(d Descriptor) *ReferenceDescriptor {
	if r, ok := d.(*ReferenceDescriptor); ok {
		return r
	}
	return nil
}
