// Package store persists acquired spectra in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danmuck/stsctl/internal/spectrum"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound      = errors.New("store: spectrum not found")
	ErrUnknownDriver = errors.New("store: unknown driver")
	ErrInvalidLimit  = errors.New("store: limit must be positive")
)

const DefaultListLimit = 50

// Store is a spectra table behind database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects, applies the dialect's init statements, and creates the
// schema. For sqlite the dsn is a file path whose directory is created.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := NewDialect(driver)
	if err != nil {
		return nil, err
	}
	if dialect.DriverName() == DriverSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dialect.DriverName(), err)
	}
	if dialect.DriverName() == DriverSQLite {
		// Pragmas are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", dialect.DriverName(), err)
	}

	stmts := append(dialect.InitStatements(), dialect.Schema())
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: init: %w", err)
		}
	}
	log.Debug().Str("driver", dialect.DriverName()).Msg("spectra store ready")
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts sp and returns its id; sp.ID is set on success.
func (s *Store) Save(ctx context.Context, sp *spectrum.Spectrum) (int64, error) {
	if err := sp.Validate(); err != nil {
		return 0, err
	}
	if sp.CapturedAt.IsZero() {
		sp.CapturedAt = time.Now().UTC()
	}
	query := rebind(s.dialect, `INSERT INTO spectra (label, wavelengths, spectrum_values, captured_at) VALUES (?, ?, ?, ?)`) +
		s.dialect.ReturningClause("id")
	args := []any{
		sp.Label,
		spectrum.FormatValues(sp.Wavelengths),
		spectrum.FormatValues(sp.Values),
		sp.CapturedAt.UTC().Format(time.RFC3339Nano),
	}

	var id int64
	if s.dialect.SupportsLastInsertID() {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("store: insert: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("store: insert id: %w", err)
		}
	} else if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("store: insert: %w", err)
	}
	sp.ID = id
	return id, nil
}

func (s *Store) Get(ctx context.Context, id int64) (spectrum.Spectrum, error) {
	row := s.db.QueryRowContext(ctx,
		rebind(s.dialect, `SELECT id, label, wavelengths, spectrum_values, captured_at FROM spectra WHERE id = ?`), id)
	sp, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return spectrum.Spectrum{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return sp, err
}

// List returns up to limit spectra, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]spectrum.Spectrum, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		rebind(s.dialect, `SELECT id, label, wavelengths, spectrum_values, captured_at FROM spectra ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := make([]spectrum.Spectrum, 0)
	for rows.Next() {
		sp, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, rebind(s.dialect, `DELETE FROM spectra WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (spectrum.Spectrum, error) {
	var (
		sp                      spectrum.Spectrum
		wavelengths, values, at string
	)
	if err := row.Scan(&sp.ID, &sp.Label, &wavelengths, &values, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sp, err
		}
		return sp, fmt.Errorf("store: scan: %w", err)
	}
	var err error
	if sp.Wavelengths, err = spectrum.ParseText(wavelengths); err != nil {
		return sp, fmt.Errorf("store: spectrum %d wavelengths: %w", sp.ID, err)
	}
	if sp.Values, err = spectrum.ParseText(values); err != nil {
		return sp, fmt.Errorf("store: spectrum %d values: %w", sp.ID, err)
	}
	if sp.CapturedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return sp, fmt.Errorf("store: spectrum %d captured_at: %w", sp.ID, err)
	}
	return sp, nil
}
