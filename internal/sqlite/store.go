package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/rpggio/trips/internal/repository"
)

// Store implements trip.Store over the nodes table. A path is either a
// collection ("trips") or a child of one ("trips/1700000000000").
type Store struct {
	db *DB
}

// NewStore creates a new Store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SetValue replaces the fields of the child at path
func (s *Store) SetValue(ctx context.Context, path string, fields map[string]string) error {
	collection, key, err := splitChildPath(path)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	query := `
		INSERT INTO nodes (collection, key, fields, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (collection, key) DO UPDATE SET
			fields = excluded.fields,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, collection, key, string(data)); err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

// RemoveValue deletes the child at path. Removing a missing child is not
// an error.
func (s *Store) RemoveValue(ctx context.Context, path string) error {
	collection, key, err := splitChildPath(path)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE collection = ? AND key = ?`, collection, key); err != nil {
		return fmt.Errorf("failed to remove value: %w", err)
	}
	return nil
}

// ReadOrderedByKey reads every child of a collection, ascending by key
func (s *Store) ReadOrderedByKey(ctx context.Context, path string) (trip.Snapshot, error) {
	collection := strings.Trim(path, "/")
	if collection == "" || strings.Contains(collection, "/") {
		return trip.Snapshot{}, fmt.Errorf("%w: %q", repository.ErrInvalidPath, path)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, fields FROM nodes WHERE collection = ? ORDER BY key ASC`, collection)
	if err != nil {
		return trip.Snapshot{}, fmt.Errorf("failed to read collection: %w", err)
	}
	defer rows.Close()

	snap := trip.Snapshot{Path: collection}
	for rows.Next() {
		var child trip.Child
		var data string
		if err := rows.Scan(&child.Key, &data); err != nil {
			return trip.Snapshot{}, fmt.Errorf("failed to scan node: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &child.Fields); err != nil {
			return trip.Snapshot{}, fmt.Errorf("failed to decode node %s: %w", child.Key, err)
		}
		snap.Children = append(snap.Children, child)
	}
	if err := rows.Err(); err != nil {
		return trip.Snapshot{}, fmt.Errorf("failed to read collection: %w", err)
	}
	return snap, nil
}

func splitChildPath(path string) (collection, key string, err error) {
	collection, key, ok := strings.Cut(strings.Trim(path, "/"), "/")
	if !ok || collection == "" || key == "" || strings.Contains(key, "/") {
		return "", "", fmt.Errorf("%w: %q", repository.ErrInvalidPath, path)
	}
	return collection, key, nil
}
