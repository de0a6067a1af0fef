// Package store implements the tenant-scoped persistence layer backed
// by SQLite. All article, job, and settings queries are methods on a
// TenantStore obtained via DB.Tenant, so every statement carries the
// org id structurally rather than by convention at each call site.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"curator/migrations"
)

const timeLayout = time.RFC3339Nano

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateLink is returned when an insert collides with the
	// (org_id, link) uniqueness constraint.
	ErrDuplicateLink = errors.New("article link already exists for tenant")
)

// DB wraps the SQLite handle shared by all tenants.
type DB struct {
	db *sql.DB
}

// Open opens the SQLite database at dsn and runs pending migrations.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Tenant returns a handle whose every query is scoped to the given org.
func (d *DB) Tenant(orgID string) *TenantStore {
	return &TenantStore{db: d.db, orgID: orgID}
}

// TenantStore is the only path to read or write a tenant's data.
type TenantStore struct {
	db    *sql.DB
	orgID string
}

// OrgID returns the tenant this store is bound to.
func (t *TenantStore) OrgID() string { return t.orgID }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	ts, _ := time.Parse(timeLayout, raw)
	return ts
}
