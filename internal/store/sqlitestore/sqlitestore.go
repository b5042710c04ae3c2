// Package sqlitestore implements store.Store on a local SQLite database.
// Entities are stored as JSON documents keyed by type and a ulid
// identifier; it backs the dev server and offline work.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/crucible/internal/store"
)

// Store is a SQLite-backed entity store. Safe for concurrent use; the
// dev server and the websocket edit handler share one instance.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens or creates a SQLite database at the given path.
func New(dbPath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL,
		doc        TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// newID mints a ulid from the package-level locked entropy source, so
// concurrent Creates never share unsynchronized state.
func (s *Store) newID() string {
	return ulid.Make().String()
}

// Close closes the store.
func (s *Store) Close() error { return s.db.Close() }

// List returns the raw entities of a type matching the filter. Filters
// compare against document fields; list-valued fields match by
// containment (so {"bases": "Mutator"} finds entities listing that base).
func (s *Store) List(ctx context.Context, entityType string, filter store.Filter) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM entities WHERE type = ? ORDER BY created_at`, entityType)
	if err != nil {
		return nil, &store.CollaboratorError{Op: "list " + entityType, Err: err}
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, &store.CollaboratorError{Op: "list " + entityType, Err: err}
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, &store.CollaboratorError{Op: "list " + entityType, Err: err}
		}
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, rows.Err()
}

func matches(doc map[string]any, filter store.Filter) bool {
	for k, want := range filter {
		switch v := doc[k].(type) {
		case []any:
			found := false
			for _, item := range v {
				if fmt.Sprint(item) == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if fmt.Sprint(v) != want {
				return false
			}
		}
	}
	return true
}

// Create persists a new entity, minting its identifier.
func (s *Store) Create(ctx context.Context, entityType string, payload map[string]any) (map[string]any, error) {
	doc := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		doc[k] = v
	}
	id := s.newID()
	doc["id"] = id

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &store.CollaboratorError{Op: "create " + entityType, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, type, doc, created_at) VALUES (?, ?, ?, ?)`,
		id, entityType, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, &store.CollaboratorError{Op: "create " + entityType, Err: err}
	}
	s.log.Debug("created entity", zap.String("type", entityType), zap.String("id", id))
	return doc, nil
}

// Update replaces an existing entity's document.
func (s *Store) Update(ctx context.Context, entityType, id string, payload map[string]any) (map[string]any, error) {
	doc := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		doc[k] = v
	}
	doc["id"] = id

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &store.CollaboratorError{Op: "update " + entityType, Err: err}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET doc = ? WHERE id = ? AND type = ?`,
		string(raw), id, entityType)
	if err != nil {
		return nil, &store.CollaboratorError{Op: "update " + entityType, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &store.CollaboratorError{Op: "update " + entityType, Err: fmt.Errorf("no entity with id %s", id)}
	}
	return doc, nil
}

// Delete removes an entity.
func (s *Store) Delete(ctx context.Context, entityType, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE id = ? AND type = ?`, id, entityType)
	if err != nil {
		return &store.CollaboratorError{Op: "delete " + entityType, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &store.CollaboratorError{Op: "delete " + entityType, Err: fmt.Errorf("no entity with id %s", id)}
	}
	return nil
}

// Find returns the first entity whose id or name matches, or nil.
func (s *Store) Find(ctx context.Context, entityType, nameOrID string) (map[string]any, error) {
	all, err := s.List(ctx, entityType, nil)
	if err != nil {
		return nil, err
	}
	for _, doc := range all {
		if fmt.Sprint(doc["id"]) == nameOrID {
			return doc, nil
		}
	}
	for _, doc := range all {
		if name, ok := doc["name"].(string); ok && name == nameOrID {
			return doc, nil
		}
	}
	return nil, nil
}
