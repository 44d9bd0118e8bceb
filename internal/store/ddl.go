package store

import (
	"strconv"
	"strings"

	"github.com/JonMunkholm/tcgen/internal/schema"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// createTableSQL builds the records table DDL from the field schema.
func createTableSQL(d dialect) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(Table)
	b.WriteString(" (\n")
	switch d {
	case dialectPostgres:
		b.WriteString("    id BIGSERIAL PRIMARY KEY,\n")
	default:
		b.WriteString("    id INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	}
	for _, col := range schema.Columns() {
		b.WriteString("    ")
		b.WriteString(col)
		b.WriteString(" TEXT NOT NULL DEFAULT '',\n")
	}
	switch d {
	case dialectPostgres:
		b.WriteString("    created_at TIMESTAMPTZ NOT NULL DEFAULT now()\n")
	default:
		b.WriteString("    created_at TIMESTAMP NOT NULL\n")
	}
	b.WriteString(")")
	return b.String()
}

// createIndexSQL indexes student_name for name lookups and ordering.
func createIndexSQL() string {
	return "CREATE INDEX IF NOT EXISTS idx_" + Table + "_student_name ON " + Table + " (student_name)"
}

// selectColumns is the column list every read query returns, in scan order.
func selectColumns() string {
	return "id, " + strings.Join(schema.Columns(), ", ") + ", created_at"
}

// placeholders returns n bind parameters in the dialect's style.
func placeholders(d dialect, n int) string {
	parts := make([]string, n)
	for i := range parts {
		if d == dialectPostgres {
			parts[i] = "$" + strconv.Itoa(i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc rowScanner) (schema.StoredRecord, error) {
	var out schema.StoredRecord
	vals := make([]string, schema.FieldCount)
	dest := make([]any, 0, schema.FieldCount+2)
	dest = append(dest, &out.ID)
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	dest = append(dest, &out.CreatedAt)
	if err := sc.Scan(dest...); err != nil {
		return schema.StoredRecord{}, err
	}
	out.Record = schema.FromValues(vals)
	return out, nil
}

func recordArgs(rec schema.Record) []any {
	vals := rec.Values()
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}
