// Package store defines the entity store contract the editor and command
// layer depend on, plus the shared error type for collaborator failures.
// Implementations: httpstore (the live API) and sqlitestore (local).
package store

import (
	"context"
	"fmt"
)

// Filter restricts a List call server-side, e.g. {"type": "tool"} or
// {"bases": "Mutator"}.
type Filter map[string]string

// Store performs CRUD against an entity store. Raw entities travel as
// maps; binding them to schemas is the caller's job (internal/entity).
type Store interface {
	// List returns the raw entities of a type matching the filter.
	List(ctx context.Context, entityType string, filter Filter) ([]map[string]any, error)
	// Create persists a new entity and returns its stored form.
	Create(ctx context.Context, entityType string, payload map[string]any) (map[string]any, error)
	// Update replaces an existing entity and returns its stored form.
	Update(ctx context.Context, entityType, id string, payload map[string]any) (map[string]any, error)
	// Delete removes an entity.
	Delete(ctx context.Context, entityType, id string) error
	// Find returns the first entity whose id or name matches, or nil.
	Find(ctx context.Context, entityType, nameOrID string) (map[string]any, error)
}

// CollaboratorError wraps a store or registry failure. The editor surfaces
// the message verbatim and never retries on its own.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
