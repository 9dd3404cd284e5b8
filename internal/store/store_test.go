package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/danmuck/stsctl/internal/spectrum"
	"github.com/danmuck/stsctl/internal/testutil/testlog"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	testlog.Start(t)
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "data", "spectra.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 30, 0, 5000, time.UTC)
	in := spectrum.Spectrum{
		Label:       "halogen",
		Wavelengths: []float64{350.5, 351, 351.5},
		Values:      []float64{0.1, 1e4, 2},
		CapturedAt:  at,
	}

	id, err := s.Save(ctx, &in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == 0 || in.ID != id {
		t.Fatalf("id: %d (spectrum %d)", id, in.ID)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Label != in.Label || !got.CapturedAt.Equal(at) ||
		!reflect.DeepEqual(got.Wavelengths, in.Wavelengths) || !reflect.DeepEqual(got.Values, in.Values) {
		t.Fatalf("got %+v want %+v", got, in)
	}
}

func TestSaveRejectsInvalidSpectrum(t *testing.T) {
	s := openTemp(t)
	bad := spectrum.Spectrum{Wavelengths: []float64{1, 2}, Values: []float64{1}}
	if _, err := s.Save(context.Background(), &bad); !errors.Is(err, spectrum.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestListNewestFirstAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		sp := spectrum.Spectrum{Wavelengths: []float64{400}, Values: []float64{float64(i)}}
		id, err := s.Save(ctx, &sp)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != ids[2] || list[1].ID != ids[1] {
		t.Fatalf("list order: %+v", list)
	}
	if _, err := s.List(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}

	if err := s.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestNewDialect(t *testing.T) {
	for _, name := range []string{"", "sqlite", "SQLite3"} {
		d, err := NewDialect(name)
		if err != nil || d.DriverName() != DriverSQLite {
			t.Fatalf("NewDialect(%q) = %v, %v", name, d, err)
		}
	}
	d, err := NewDialect("postgresql")
	if err != nil || d.DriverName() != DriverPostgres {
		t.Fatalf("postgres dialect: %v, %v", d, err)
	}
	if _, err := NewDialect("oracle"); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT id FROM spectra WHERE id = ? AND label = ?`
	if got := rebind(sqliteDialect{}, q); got != q {
		t.Fatalf("sqlite rebind: %s", got)
	}
	want := `SELECT id FROM spectra WHERE id = $1 AND label = $2`
	if got := rebind(postgresDialect{}, q); got != want {
		t.Fatalf("postgres rebind: %s", got)
	}
	if got := (postgresDialect{}).ReturningClause("id"); got != " RETURNING id" {
		t.Fatalf("returning: %q", got)
	}
}
