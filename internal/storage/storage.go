// Package storage persists small string values on the local device in SQLite.
// It is the client's equivalent of browser local storage.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver with database/sql
)

// DB wraps a *sql.DB with the path it was opened from.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path and initialises the schema.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage.Open: %w", err)
	}
	d := &DB{db: sqldb, path: path}
	if err := d.createSchema(); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("storage.Open createSchema: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the file the database was opened from.
func (d *DB) Path() string { return d.path }

func (d *DB) createSchema() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS device_storage (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	)`)
	return err
}

// Get returns the value stored under key. ok is false when the key is absent.
func (d *DB) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = d.db.QueryRowContext(ctx,
		`SELECT value FROM device_storage WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage.Get %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts a single key.
func (d *DB) Set(ctx context.Context, key, value string) error {
	return d.SetMany(ctx, map[string]string{key: value})
}

// SetMany upserts every pair in one transaction.
func (d *DB) SetMany(ctx context.Context, kv map[string]string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SetMany begin: %w", err)
	}
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO device_storage (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
			k, v,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("storage.SetMany %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Delete removes every listed key in one transaction. Absent keys are ignored.
func (d *DB) Delete(ctx context.Context, keys ...string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.Delete begin: %w", err)
	}
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM device_storage WHERE key = ?`, k); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("storage.Delete %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Keys lists the stored keys in lexical order.
func (d *DB) Keys(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key FROM device_storage ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("storage.Keys: %w", err)
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
