// Package entity implements the schema-bound record model: dynamically
// typed entities populated from store payloads, and the resolution of
// cross-entity reference values in all of their wire shapes.
package entity

import (
	"fmt"
	"strings"
)

// BrokenMarker prefixes the identifier of a reference whose target the
// store could no longer dereference. The marker form is display-safe and
// parseable back into a RefState.
const BrokenMarker = "!"

// RefStatus classifies a reference value.
type RefStatus int

const (
	// RefUnset means no reference is stored.
	RefUnset RefStatus = iota
	// RefHealthy means the reference reduces to a plain identifier.
	RefHealthy
	// RefBroken means the referenced entity no longer resolves server-side
	// (tombstoned); the identifier is still recoverable.
	RefBroken
)

// RefState is the normalized form of a reference value.
type RefState struct {
	Status RefStatus
	ID     string
}

// String renders the state in identifier form: the plain id when healthy,
// the marker-prefixed id when broken, empty when unset.
func (s RefState) String() string {
	switch s.Status {
	case RefHealthy:
		return s.ID
	case RefBroken:
		return BrokenMarker + s.ID
	default:
		return ""
	}
}

// Value returns the identifier form suitable for storing on an entity,
// or nil when unset.
func (s RefState) Value() any {
	if s.Status == RefUnset {
		return nil
	}
	return s.String()
}

// Resolve normalizes a raw reference value. It is total and idempotent:
// any input yields a state, never an error, and resolving a rendered
// state yields the same state.
//
// Recognized shapes:
//   - plain identifier string            -> healthy
//   - marker-prefixed identifier string  -> broken
//   - map carrying "id"                  -> healthy with that id
//   - map carrying "_id" or "$id" with a raw datastore oid and no
//     resolvable entity                  -> broken, id recovered from the oid
//   - nil                                -> unset
//
// Anything else degrades to a healthy reference on the value's string form.
func Resolve(raw any) RefState {
	switch v := raw.(type) {
	case nil:
		return RefState{Status: RefUnset}
	case string:
		if v == "" {
			return RefState{Status: RefUnset}
		}
		if strings.HasPrefix(v, BrokenMarker) {
			return RefState{Status: RefBroken, ID: strings.TrimPrefix(v, BrokenMarker)}
		}
		return RefState{Status: RefHealthy, ID: v}
	case RefState:
		return v
	case map[string]any:
		if id, ok := v["id"]; ok {
			return RefState{Status: RefHealthy, ID: fmt.Sprint(id)}
		}
		for _, key := range []string{"_id", "$id"} {
			raw, ok := v[key]
			if !ok {
				continue
			}
			return RefState{Status: RefBroken, ID: oid(raw)}
		}
		return RefState{Status: RefUnset}
	default:
		return RefState{Status: RefHealthy, ID: fmt.Sprint(v)}
	}
}

// oid digs the datastore object id out of a tombstone value. The exact
// shape is store-defined; both {"$oid": x} wrappers and bare ids occur.
func oid(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		if x, ok := m["$oid"]; ok {
			return fmt.Sprint(x)
		}
	}
	return fmt.Sprint(raw)
}
