// Package sqlite implements the persistence store on a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

//go:embed schema.sql
var schema string

const timeLayout = time.RFC3339Nano

// Store implements store.Store using modernc.org/sqlite.
type Store struct {
	db    *sql.DB
	clock housing.Clock
}

var _ store.Store = (*Store)(nil)

// New opens the database at dsn. The batch is single-threaded, so one connection is
// kept open; this also keeps ":memory:" databases alive across calls.
func New(dsn string, clock housing.Clock) (*Store, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: dsn is required")
	}
	if clock == nil {
		return nil, eris.New("sqlite: clock is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &Store{db: db, clock: clock}, nil
}

// Migrate creates the schema. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertMunicipality writes the resolution columns for m.
func (s *Store) UpsertMunicipality(ctx context.Context, m housing.Municipality) (housing.Municipality, error) {
	key := housing.NameKey(m.Name)
	if key == "" {
		return housing.Municipality{}, eris.New("sqlite: municipality name is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO municipalities (name, name_key, county, official_website, resolution_confidence, last_resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name_key) DO UPDATE SET
			official_website = excluded.official_website,
			resolution_confidence = excluded.resolution_confidence,
			last_resolved_at = excluded.last_resolved_at,
			county = CASE WHEN excluded.county <> '' THEN excluded.county ELSE municipalities.county END`,
		m.Name, key, m.County, nullString(m.OfficialWebsite), m.ResolutionConfidence, nullTime(m.LastResolvedAt),
	)
	if err != nil {
		return housing.Municipality{}, eris.Wrapf(err, "sqlite: upsert municipality %s", m.Name)
	}
	return s.municipalityByKey(ctx, key)
}

// RegisterMunicipality ensures name exists and records its county.
func (s *Store) RegisterMunicipality(ctx context.Context, name, county string) (housing.Municipality, error) {
	key := housing.NameKey(name)
	if key == "" {
		return housing.Municipality{}, eris.New("sqlite: municipality name is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO municipalities (name, name_key, county) VALUES (?, ?, ?)
		ON CONFLICT (name_key) DO UPDATE SET
			county = CASE WHEN excluded.county <> '' THEN excluded.county ELSE municipalities.county END`,
		name, key, county,
	)
	if err != nil {
		return housing.Municipality{}, eris.Wrapf(err, "sqlite: register municipality %s", name)
	}
	return s.municipalityByKey(ctx, key)
}

// GetMunicipality loads a municipality by name.
func (s *Store) GetMunicipality(ctx context.Context, name string) (housing.Municipality, error) {
	return s.municipalityByKey(ctx, housing.NameKey(name))
}

const municipalityColumns = `id, name, county, official_website, resolution_confidence, last_resolved_at`

func (s *Store) municipalityByKey(ctx context.Context, key string) (housing.Municipality, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+municipalityColumns+` FROM municipalities WHERE name_key = ?`, key)
	m, err := scanMunicipality(row)
	if errors.Is(err, sql.ErrNoRows) {
		return housing.Municipality{}, store.ErrNotFound
	}
	return m, err
}

// ListMunicipalities returns all municipalities ordered by name.
func (s *Store) ListMunicipalities(ctx context.Context) ([]housing.Municipality, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+municipalityColumns+` FROM municipalities ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list municipalities")
	}
	defer rows.Close()

	var out []housing.Municipality
	for rows.Next() {
		m, err := scanMunicipality(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list municipalities iterate")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMunicipality(row scanner) (housing.Municipality, error) {
	var (
		m        housing.Municipality
		website  sql.NullString
		resolved sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Name, &m.County, &website, &m.ResolutionConfidence, &resolved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, err
		}
		return m, eris.Wrap(err, "sqlite: scan municipality")
	}
	m.OfficialWebsite = website.String
	t, err := parseTime(resolved)
	if err != nil {
		return m, err
	}
	m.LastResolvedAt = t
	return m, nil
}

func (s *Store) municipalityID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM municipalities WHERE name_key = ?`, housing.NameKey(name)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: lookup municipality %s", name)
	}
	return id, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", v.String)
	}
	return t, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return housing.IntPtr(int(v.Int64))
}

func nullDate(d housing.Date) sql.NullString {
	return nullString(d.String())
}

func parseDate(v sql.NullString) (housing.Date, error) {
	d, err := housing.ParseDate(v.String)
	if err != nil {
		return housing.Date{}, eris.Wrap(err, "sqlite: parse date")
	}
	return d, nil
}
