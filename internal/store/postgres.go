package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore keeps records in PostgreSQL. Ids come from a BIGSERIAL sequence,
// which serializes id assignment across connections.
type PgStore struct {
	pool *pgxpool.Pool

	insertSQL string
}

// OpenPostgres connects a pgx pool using opts and migrates the records table.
func OpenPostgres(ctx context.Context, opts Options) (*PgStore, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("parse database url: %w", err)}
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &StorageError{Op: "open", Err: err}
	}

	s := NewPgStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPgStore wraps an existing pool. Call Migrate before first use if the
// table may not exist.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		pool: pool,
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id, created_at",
			Table, strings.Join(schema.Columns(), ", "), placeholders(dialectPostgres, schema.FieldCount)),
	}
}

// Migrate creates the records table and index if they do not exist.
func (s *PgStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createTableSQL(dialectPostgres), createIndexSQL()} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return pgError("migrate", err)
		}
	}
	return nil
}

func (s *PgStore) Insert(ctx context.Context, rec schema.Record) (schema.StoredRecord, error) {
	if err := validate(rec); err != nil {
		return schema.StoredRecord{}, err
	}

	out := schema.StoredRecord{Record: rec}
	err := s.pool.QueryRow(ctx, s.insertSQL, recordArgs(rec)...).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return schema.StoredRecord{}, pgError("insert", err)
	}
	return out, nil
}

func (s *PgStore) Get(ctx context.Context, id int64) (schema.StoredRecord, bool, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + " WHERE id = $1"
	return s.queryOne(ctx, "get", q, id)
}

func (s *PgStore) FindLatestByName(ctx context.Context, name string) (schema.StoredRecord, bool, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + " WHERE student_name = $1 ORDER BY id DESC LIMIT 1"
	return s.queryOne(ctx, "find latest", q, name)
}

func (s *PgStore) ListDistinctNames(ctx context.Context) ([]string, error) {
	q := `SELECT DISTINCT student_name FROM ` + Table + `
		WHERE btrim(student_name) <> ''
		ORDER BY student_name COLLATE "C"`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, pgError("list names", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, pgError("list names", err)
	}
	return names, nil
}

func (s *PgStore) Search(ctx context.Context, pattern string) ([]schema.StoredRecord, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + `
		WHERE strpos(lower(student_name), lower($1)) > 0
		   OR strpos(lower(register_no), lower($1)) > 0
		   OR strpos(lower(father_name), lower($1)) > 0
		ORDER BY student_name COLLATE "C", id`
	return s.queryMany(ctx, "search", q, pattern)
}

func (s *PgStore) List(ctx context.Context) ([]schema.StoredRecord, error) {
	q := "SELECT " + selectColumns() + " FROM " + Table + " ORDER BY id DESC"
	return s.queryMany(ctx, "list", q)
}

func (s *PgStore) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM "+Table+" WHERE id = $1", id)
	if err != nil {
		return false, pgError("delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return pgError("ping", err)
	}
	return nil
}

func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PgStore) queryOne(ctx context.Context, op, q string, args ...any) (schema.StoredRecord, bool, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.StoredRecord{}, false, nil
	}
	if err != nil {
		return schema.StoredRecord{}, false, pgError(op, err)
	}
	return rec, true, nil
}

func (s *PgStore) queryMany(ctx context.Context, op, q string, args ...any) ([]schema.StoredRecord, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, pgError(op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.StoredRecord, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, pgError(op, err)
	}
	return out, nil
}

// pgError wraps err as a StorageError, folding the SQLSTATE into the message
// when the server reported one.
func pgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &StorageError{Op: op, Err: fmt.Errorf("%s (SQLSTATE %s): %w", pgErr.Message, pgErr.Code, err)}
	}
	return &StorageError{Op: op, Err: err}
}
