// Package store persists transfer certificate records.
//
// Stores are append-only: Insert always creates a new row with a fresh id and
// there is no update operation. Three backends share the Store interface:
//
//   - PgStore: PostgreSQL via a pgx connection pool
//   - SQLiteStore: a local SQLite file (the default, college.db)
//   - MemStore: in-process, used by tests and memory:// URLs
//
// Open picks the backend from the URL scheme.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tcgen/internal/schema"
)

// Table is the name of the records table.
const Table = "transfer_certificates"

// Store is the persistence contract for records.
type Store interface {
	// Insert validates and appends a record, assigning its id and timestamp.
	Insert(ctx context.Context, rec schema.Record) (schema.StoredRecord, error)
	// Get returns the record with the given id.
	Get(ctx context.Context, id int64) (schema.StoredRecord, bool, error)
	// FindLatestByName returns the highest-id record whose student name
	// equals name exactly.
	FindLatestByName(ctx context.Context, name string) (schema.StoredRecord, bool, error)
	// ListDistinctNames returns non-blank student names, deduplicated and
	// sorted ascending.
	ListDistinctNames(ctx context.Context) ([]string, error)
	// Search matches pattern as a case-insensitive substring of the student
	// name, register number or father name. Results are ordered by student
	// name, then id.
	Search(ctx context.Context, pattern string) ([]schema.StoredRecord, error)
	// List returns every record, newest first.
	List(ctx context.Context) ([]schema.StoredRecord, error)
	// Delete removes the record with the given id and reports whether a row
	// was removed.
	Delete(ctx context.Context, id int64) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options configures Open.
type Options struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the store named by opts.URL and ensures the records table
// exists. Supported schemes: postgres://, postgresql://, sqlite://, file:, memory://.
func Open(ctx context.Context, opts Options) (Store, error) {
	u := strings.TrimSpace(opts.URL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return OpenPostgres(ctx, opts)
	case strings.HasPrefix(u, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(u, "sqlite://"))
	case strings.HasPrefix(u, "file:"):
		return OpenSQLite(ctx, strings.TrimPrefix(u, "file:"))
	case strings.HasPrefix(u, "memory://"):
		return NewMemStore(), nil
	case u == "":
		return nil, &StorageError{Op: "open", Err: errors.New("database url is empty")}
	default:
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("unsupported database url scheme: %s", redactURL(u))}
	}
}

// ValidationError reports a record that cannot be inserted.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: required field %s is empty", e.Field)
}

// StorageError wraps a driver or connectivity failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// validate checks the fields a record needs before it can be stored.
func validate(rec schema.Record) error {
	for _, f := range schema.Fields() {
		if !f.Required {
			continue
		}
		v, _ := rec.Get(f.Key)
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: f.Key}
		}
	}
	return nil
}

// matches reports whether rec matches a search pattern. Shared by MemStore
// and tests; the SQL stores express the same rule in their queries.
func matches(rec schema.Record, pattern string) bool {
	p := strings.ToLower(pattern)
	return strings.Contains(strings.ToLower(rec.StudentName), p) ||
		strings.Contains(strings.ToLower(rec.RegisterNo), p) ||
		strings.Contains(strings.ToLower(rec.FatherName), p)
}

// redactURL strips credentials from a connection URL for error messages.
func redactURL(u string) string {
	at := strings.LastIndex(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return u
	}
	return u[:scheme+3] + "***" + u[at:]
}
