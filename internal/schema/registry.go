package schema

import (
	"fmt"
	"sort"
)

// EntitySchema holds the complete field metadata for one entity type.
type EntitySchema struct {
	// Name is the entity type name (snake_case, e.g. "task").
	Name string
	// APIPath is the store path for this type (e.g. "api/task").
	APIPath string
	// CreateCommand, when non-empty, marks the type as supporting
	// interactive creation; candidate menus offer a NEW entry for it.
	CreateCommand string
	// Fields maps field name -> descriptor.
	Fields map[string]Descriptor
	// FieldOrder lists fields in declaration order.
	FieldOrder []string
}

// Field returns the descriptor for a named field, or nil if not declared.
func (es *EntitySchema) Field(name string) Descriptor {
	return es.Fields[name]
}

// Headers returns the column names used for terse tabular views:
// id first, then name and hostname when declared, then every remaining
// non-detail field in declaration order.
func (es *EntitySchema) Headers() []string {
	res := []string{"id"}
	for _, special := range []string{"name", "hostname"} {
		if _, ok := es.Fields[special]; ok {
			res = append(res, special)
		}
	}
	for _, name := range es.FieldOrder {
		if contains(res, name) || es.Fields[name].Meta().Detail {
			continue
		}
		res = append(res, name)
	}
	return res
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// Registry holds the schemas of all known entity types. It is populated
// once at startup (from the embedded CUE definitions) and is read-only
// afterwards.
type Registry struct {
	entities map[string]*EntitySchema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*EntitySchema)}
}

// Register adds an entity schema to the registry.
func (r *Registry) Register(es *EntitySchema) {
	r.entities[es.Name] = es
}

// Lookup returns the schema for a named entity type.
func (r *Registry) Lookup(name string) (*EntitySchema, error) {
	es, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", name)
	}
	return es, nil
}

// Entity returns the schema for a named entity type, or nil if not found.
func (r *Registry) Entity(name string) *EntitySchema {
	return r.entities[name]
}

// Types returns all registered entity type names in sorted order.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
