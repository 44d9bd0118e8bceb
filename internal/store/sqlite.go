package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/tcgen/internal/schema"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in a SQLite database file. Writes are serialized
// so ids are assigned in call order.
type SQLiteStore struct {
	db *sql.DB

	writeMu sync.Mutex

	insertSQL string
}

// OpenSQLite opens (creating if needed) the database at path. The path
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, &StorageError{Op: "open", Err: errors.New("sqlite path is empty")}
	}

	inMemory := path == ":memory:"
	dsn := "file:" + path + "?_busy_timeout=5000&_foreign_keys=on"
	if !inMemory {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	if inMemory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}

	s := &SQLiteStore{
		db: db,
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s, created_at) VALUES (%s, ?)",
			Table, strings.Join(schema.Columns(), ", "), placeholders(dialectSQLite, schema.FieldCount)),
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	for _, stmt := range []string{createTableSQL(dialectSQLite), createIndexSQL()} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &StorageError{Op: "migrate", Err: err}
		}
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec schema.Record) (schema.StoredRecord, error) {
	if err := validate(rec); err != nil {
		return schema.StoredRecord{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UTC()
	args := append(recordArgs(rec), now)
	res, err := s.db.ExecContext(ctx, s.insertSQL, args...)
	if err != nil {
		return schema.StoredRecord{}, &StorageError{Op: "insert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return schema.StoredRecord{}, &StorageError{Op: "insert", Err: err}
	}
	return schema.StoredRecord{ID: id, CreatedAt: now, Record: rec}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (schema.StoredRecord, bool, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + " WHERE id = ?"
	return s.queryOne(ctx, "get", q, id)
}

func (s *SQLiteStore) FindLatestByName(ctx context.Context, name string) (schema.StoredRecord, bool, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + " WHERE student_name = ? ORDER BY id DESC LIMIT 1"
	return s.queryOne(ctx, "find latest", q, name)
}

func (s *SQLiteStore) ListDistinctNames(ctx context.Context) ([]string, error) {
	q := "SELECT DISTINCT student_name FROM " + Table + " WHERE trim(student_name) <> '' ORDER BY student_name"
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &StorageError{Op: "list names", Err: err}
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, &StorageError{Op: "list names", Err: err}
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list names", Err: err}
	}
	return names, nil
}

func (s *SQLiteStore) Search(ctx context.Context, pattern string) ([]schema.StoredRecord, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + `
		WHERE instr(lower(student_name), lower(?1)) > 0
		   OR instr(lower(register_no), lower(?1)) > 0
		   OR instr(lower(father_name), lower(?1)) > 0
		ORDER BY student_name, id`
	return s.queryMany(ctx, "search", q, pattern)
}

func (s *SQLiteStore) List(ctx context.Context) ([]schema.StoredRecord, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + " ORDER BY id DESC"
	return s.queryMany(ctx, "list", q)
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+Table+" WHERE id = ?", id)
	if err != nil {
		return false, &StorageError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "delete", Err: err}
	}
	return n > 0, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryOne(ctx context.Context, op, q string, args ...any) (schema.StoredRecord, bool, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return schema.StoredRecord{}, false, nil
	}
	if err != nil {
		return schema.StoredRecord{}, false, &StorageError{Op: op, Err: err}
	}
	return rec, true, nil
}

func (s *SQLiteStore) queryMany(ctx context.Context, op, q string, args ...any) ([]schema.StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &StorageError{Op: op, Err: err}
	}
	defer rows.Close()

	out := make([]schema.StoredRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &StorageError{Op: op, Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: op, Err: err}
	}
	return out, nil
}
