package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Separator joins path segments.
const Separator = "."

// Entry is a single stored leaf.
type Entry struct {
	Path  string
	Value string
}

// Tx is a view of the document inside one SQLite transaction.
// A Tx must not be used after the Update or View callback returns.
type Tx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

// Join builds a path from its segments.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Get returns the value at path. The boolean is false when nothing is stored
// there; an interior node (a path with children but no value) is also absent.
func (t *Tx) Get(path string) (string, bool, error) {
	var value string
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM entries WHERE path = ?`, path).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", path, err)
	}
	return value, true, nil
}

// Set stores value at path, replacing any previous value.
// Updating an existing path keeps its position in first-write order.
func (t *Tx) Set(path, value string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if path == "" {
		return fmt.Errorf("set: empty path")
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO entries (path, value)
		VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET value = excluded.value
	`, path, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	return nil
}

// Delete removes path and its whole subtree.
func (t *Tx) Delete(path string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	child := path + Separator
	_, err := t.tx.ExecContext(t.ctx, `
		DELETE FROM entries
		WHERE path = ? OR substr(path, 1, length(?)) = ?
	`, path, child, child)
	if err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	return nil
}

// Exists reports whether path holds a value or has any children.
func (t *Tx) Exists(path string) (bool, error) {
	child := path + Separator
	var count int
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT COUNT(*) FROM entries
		WHERE path = ? OR substr(path, 1, length(?)) = ?
	`, path, child, child).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", path, err)
	}
	return count > 0, nil
}

// Move renames the subtree rooted at from so it is rooted at to. Whatever was
// stored under to beforehand is discarded. Rows keep their first-write order.
func (t *Tx) Move(from, to string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if from == to {
		return nil
	}
	if err := t.Delete(to); err != nil {
		return fmt.Errorf("move %q -> %q: %w", from, to, err)
	}
	child := from + Separator
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE entries
		SET path = ? || substr(path, ?)
		WHERE path = ? OR substr(path, 1, length(?)) = ?
	`, to, len(from)+1, from, child, child)
	if err != nil {
		return fmt.Errorf("move %q -> %q: %w", from, to, err)
	}
	return nil
}

// Entries returns the leaves under prefix in first-write order. An empty
// prefix returns the whole document.
func (t *Tx) Entries(prefix string) ([]Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = t.tx.QueryContext(t.ctx, `SELECT path, value FROM entries ORDER BY rowid ASC`)
	} else {
		child := prefix + Separator
		rows, err = t.tx.QueryContext(t.ctx, `
			SELECT path, value FROM entries
			WHERE path = ? OR substr(path, 1, length(?)) = ?
			ORDER BY rowid ASC
		`, prefix, child, child)
	}
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Value); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Replace discards the whole document and writes entries in order.
func (t *Tx) Replace(entries []Entry) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("replace: clear: %w", err)
	}
	for _, e := range entries {
		if err := t.Set(e.Path, e.Value); err != nil {
			return fmt.Errorf("replace: %w", err)
		}
	}
	return nil
}
