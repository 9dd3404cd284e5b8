package store

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect covers the SQL differences between the supported drivers.
type Dialect interface {
	// DriverName is the name registered with database/sql.
	DriverName() string
	// Placeholder returns the bind marker for a 1-indexed position.
	Placeholder(position int) string
	// ReturningClause is appended to INSERT when LastInsertId is unsupported.
	ReturningClause(column string) string
	SupportsLastInsertID() bool
	InitStatements() []string
	// Schema creates the spectra table.
	Schema() string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NewDialect maps a driver name to its dialect.
func NewDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite, "sqlite3":
		return sqliteDialect{}, nil
	case DriverPostgres, "postgresql", "pq":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return DriverSQLite }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) ReturningClause(string) string { return "" }
func (sqliteDialect) SupportsLastInsertID() bool { return true }
func (sqliteDialect) InitStatements() []string {
	return []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

func (sqliteDialect) Schema() string {
	return `CREATE TABLE IF NOT EXISTS spectra (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL DEFAULT '',
		wavelengths TEXT NOT NULL,
		spectrum_values TEXT NOT NULL,
		captured_at TEXT NOT NULL
	)`
}

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return DriverPostgres }

func (postgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (postgresDialect) ReturningClause(column string) string {
	return " RETURNING " + column
}

func (postgresDialect) SupportsLastInsertID() bool { return false }
func (postgresDialect) InitStatements() []string { return nil }

func (postgresDialect) Schema() string {
	return `CREATE TABLE IF NOT EXISTS spectra (
		id BIGSERIAL PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		wavelengths TEXT NOT NULL,
		spectrum_values TEXT NOT NULL,
		captured_at TEXT NOT NULL
	)`
}

// rebind rewrites ? markers into the dialect's placeholders.
func rebind(d Dialect, query string) string {
	if _, ok := d.(sqliteDialect); ok {
		return query
	}
	var b strings.Builder
	pos := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(d.Placeholder(pos))
			pos++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
