package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for the reconciliation tables.
// It implements the Repository interface.
type Storage struct {
	db     *sql.DB
	readDB *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database.
//
// WithTx transactions are opened with BEGIN IMMEDIATE, so they take the
// database write lock up front. Two import or link passes therefore never
// interleave, and the max-sequence read inside a pass stays valid until
// commit. ReadTx uses a separate query-only handle with deferred
// transactions, so pure reads do not queue behind a running pass.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath, "_txlock=immediate"))
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite3", dsn(dbPath, "_txlock=deferred&_query_only=true"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.readDB = readDB

	return s, nil
}

func dsn(path, lockParams string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + lockParams + "&_foreign_keys=on&_busy_timeout=10000"
}

// Close closes both database handles
func (s *Storage) Close() error {
	return errors.Join(s.readDB.Close(), s.db.Close())
}

// WithTx runs fn inside one database transaction scoped to tenantID. The
// transaction commits only if fn returns nil; any error or panic rolls it
// back so no partial state is ever visible.
func (s *Storage) WithTx(ctx context.Context, tenantID string, fn func(Queries) error) error {
	return runTx(ctx, s.db, tenantID, fn)
}

// ReadTx runs fn inside a read-only transaction scoped to tenantID. It sees
// the last committed state and never waits for the write lock. Any write
// attempted through it fails.
func (s *Storage) ReadTx(ctx context.Context, tenantID string, fn func(Queries) error) error {
	return runTx(ctx, s.readDB, tenantID, fn)
}

func runTx(ctx context.Context, db *sql.DB, tenantID string, fn func(Queries) error) (err error) {
	if tenantID == "" {
		return fmt.Errorf("tenant is required")
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{tx: sqlTx, tenantID: tenantID, now: nowUTC}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Tx is a unit of work bound to one tenant. Every query it issues is
// filtered by that tenant.
type Tx struct {
	tx       *sql.Tx
	tenantID string
	now      func() time.Time
}

// Compile-time check that Tx implements Queries
var _ Queries = (*Tx)(nil)

// TenantID returns the tenant this unit of work is scoped to.
func (t *Tx) TenantID() string {
	return t.tenantID
}

// Savepoint opens a nested scope that can be rolled back on its own.
func (t *Tx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name)
	return err
}

// RollbackTo undoes everything since the named savepoint and releases it.
func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return err
	}
	return t.Release(ctx, name)
}

// Release keeps the work done since the named savepoint.
func (t *Tx) Release(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
