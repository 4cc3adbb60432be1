// Package postgres implements the persistence store on PostgreSQL using pgx, with the
// schema managed by golang-migrate.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/storage/postgres/migrations"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

// pgxConn is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in tests.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	pool  pgxConn
	dsn   string
	clock housing.Clock
}

var _ store.Store = (*Store)(nil)

// New connects to dsn and returns a Store.
func New(ctx context.Context, dsn string, clock housing.Clock) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewWithPool(pool, clock)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.dsn = dsn
	return s, nil
}

// NewWithPool wraps an existing pool (or mock).
func NewWithPool(pool pgxConn, clock housing.Clock) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Store{pool: pool, clock: clock}, nil
}

// Migrate applies every pending migration embedded in the binary.
func (s *Store) Migrate(_ context.Context) error {
	if s.dsn == "" {
		return fmt.Errorf("migrate requires a store opened with New")
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, s.dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const municipalityColumns = `id, name, county, official_website, resolution_confidence, last_resolved_at`

const upsertMunicipalitySQL = `
	INSERT INTO municipalities (name, name_key, county, official_website, resolution_confidence, last_resolved_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (name_key) DO UPDATE SET
		official_website = EXCLUDED.official_website,
		resolution_confidence = EXCLUDED.resolution_confidence,
		last_resolved_at = EXCLUDED.last_resolved_at,
		county = CASE WHEN EXCLUDED.county <> '' THEN EXCLUDED.county ELSE municipalities.county END
	RETURNING ` + municipalityColumns

// UpsertMunicipality writes the resolution columns for m.
func (s *Store) UpsertMunicipality(ctx context.Context, m housing.Municipality) (housing.Municipality, error) {
	key := housing.NameKey(m.Name)
	if key == "" {
		return housing.Municipality{}, fmt.Errorf("municipality name is required")
	}
	row := s.pool.QueryRow(ctx, upsertMunicipalitySQL,
		m.Name, key, m.County, nullString(m.OfficialWebsite), m.ResolutionConfidence, nullTime(m.LastResolvedAt))
	out, err := scanMunicipality(row)
	if err != nil {
		return housing.Municipality{}, fmt.Errorf("upsert municipality %s: %w", m.Name, err)
	}
	return out, nil
}

const registerMunicipalitySQL = `
	INSERT INTO municipalities (name, name_key, county) VALUES ($1, $2, $3)
	ON CONFLICT (name_key) DO UPDATE SET
		county = CASE WHEN EXCLUDED.county <> '' THEN EXCLUDED.county ELSE municipalities.county END
	RETURNING ` + municipalityColumns

// RegisterMunicipality ensures name exists and records its county.
func (s *Store) RegisterMunicipality(ctx context.Context, name, county string) (housing.Municipality, error) {
	key := housing.NameKey(name)
	if key == "" {
		return housing.Municipality{}, fmt.Errorf("municipality name is required")
	}
	out, err := scanMunicipality(s.pool.QueryRow(ctx, registerMunicipalitySQL, name, key, county))
	if err != nil {
		return housing.Municipality{}, fmt.Errorf("register municipality %s: %w", name, err)
	}
	return out, nil
}

// GetMunicipality loads a municipality by name.
func (s *Store) GetMunicipality(ctx context.Context, name string) (housing.Municipality, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+municipalityColumns+` FROM municipalities WHERE name_key = $1`, housing.NameKey(name))
	m, err := scanMunicipality(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return housing.Municipality{}, store.ErrNotFound
	}
	if err != nil {
		return housing.Municipality{}, fmt.Errorf("get municipality %s: %w", name, err)
	}
	return m, nil
}

// ListMunicipalities returns all municipalities ordered by name.
func (s *Store) ListMunicipalities(ctx context.Context) ([]housing.Municipality, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+municipalityColumns+` FROM municipalities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	defer rows.Close()

	var out []housing.Municipality
	for rows.Next() {
		m, err := scanMunicipality(rows)
		if err != nil {
			return nil, fmt.Errorf("scan municipality: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	return out, nil
}

func scanMunicipality(row pgx.Row) (housing.Municipality, error) {
	var (
		m        housing.Municipality
		website  pgtype.Text
		resolved pgtype.Timestamptz
	)
	if err := row.Scan(&m.ID, &m.Name, &m.County, &website, &m.ResolutionConfidence, &resolved); err != nil {
		return housing.Municipality{}, err
	}
	m.OfficialWebsite = website.String
	if resolved.Valid {
		m.LastResolvedAt = resolved.Time.UTC()
	}
	return m, nil
}

func (s *Store) municipalityID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM municipalities WHERE name_key = $1`, housing.NameKey(name)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup municipality %s: %w", name, err)
	}
	return id, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func intPtr(v pgtype.Int8) *int {
	if !v.Valid {
		return nil
	}
	return housing.IntPtr(int(v.Int64))
}
