package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

const commitmentColumns = `c.id, m.name, c.commitment_type, c.total_units, c.low_income_units,
	c.moderate_income_units, c.deadline, c.developer, c.location_address, c.source_document_url,
	c.date_announced, c.extraction_confidence, c.version, c.supersedes_id, c.created_at`

const commitmentFrom = ` FROM commitments c JOIN municipalities m ON m.id = c.municipality_id`

const insertCommitmentSQL = `
	INSERT INTO commitments (
		municipality_id, natural_key, commitment_type, total_units, low_income_units,
		moderate_income_units, deadline, developer, location_address, source_document_url,
		date_announced, extraction_confidence, version, supersedes_id, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (natural_key) DO NOTHING`

// InsertCommitment records c unless its natural key already exists.
func (s *Store) InsertCommitment(ctx context.Context, c housing.Commitment) (housing.Commitment, bool, error) {
	if err := store.ValidateCommitment(c); err != nil {
		return housing.Commitment{}, false, err
	}
	muniID, err := s.municipalityID(ctx, c.Municipality)
	if errors.Is(err, store.ErrNotFound) {
		return housing.Commitment{}, false, &housing.DanglingReferenceError{
			Municipality: c.Municipality,
			SourceURL:    c.SourceDocumentURL,
		}
	}
	if err != nil {
		return housing.Commitment{}, false, err
	}
	if c.Version == 0 {
		c.Version = 1
	}
	key := store.CommitmentKey(muniID, c)

	tag, err := s.pool.Exec(ctx, insertCommitmentSQL,
		muniID, key, string(store.NormalizedType(c.Type)), nullInt(c.TotalUnits), nullInt(c.LowIncomeUnits),
		nullInt(c.ModerateIncomeUnits), nullString(c.Deadline.String()), nullString(c.Developer),
		nullString(c.LocationAddress), c.SourceDocumentURL, nullString(c.DateAnnounced.String()),
		c.Confidence, c.Version, nullID(c.SupersedesID), s.clock.Now().UTC(),
	)
	if err != nil {
		return housing.Commitment{}, false, fmt.Errorf("insert commitment from %s: %w", c.SourceDocumentURL, err)
	}

	row := s.pool.QueryRow(ctx, `SELECT `+commitmentColumns+commitmentFrom+` WHERE c.natural_key = $1`, key)
	stored, err := scanCommitment(row)
	if err != nil {
		return housing.Commitment{}, false, fmt.Errorf("load commitment %s: %w", key, err)
	}
	return stored, tag.RowsAffected() > 0, nil
}

// CorrectCommitment records corrected as the next version of priorID.
func (s *Store) CorrectCommitment(ctx context.Context, priorID int64, corrected housing.Commitment) (housing.Commitment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+commitmentColumns+commitmentFrom+` WHERE c.id = $1`, priorID)
	prior, err := scanCommitment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return housing.Commitment{}, store.ErrNotFound
	}
	if err != nil {
		return housing.Commitment{}, fmt.Errorf("load commitment %d: %w", priorID, err)
	}
	if corrected.Municipality == "" {
		corrected.Municipality = prior.Municipality
	}
	corrected.Version = prior.Version + 1
	corrected.SupersedesID = prior.ID
	stored, inserted, err := s.InsertCommitment(ctx, corrected)
	if err != nil {
		return housing.Commitment{}, err
	}
	if !inserted {
		return stored, fmt.Errorf("correct commitment %d: %w", priorID, store.ErrDuplicateCorrection)
	}
	return stored, nil
}

// ListCommitments returns commitments for one municipality, or all when municipality is empty.
func (s *Store) ListCommitments(ctx context.Context, municipality string) ([]housing.Commitment, error) {
	query := `SELECT ` + commitmentColumns + commitmentFrom
	var args []any
	if municipality != "" {
		query += ` WHERE m.name_key = $1`
		args = append(args, housing.NameKey(municipality))
	}
	query += ` ORDER BY m.name, c.source_document_url, c.id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	defer rows.Close()

	var out []housing.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return out, nil
}

func scanCommitment(row pgx.Row) (housing.Commitment, error) {
	var (
		c                    housing.Commitment
		typ                  string
		total, low, moderate pgtype.Int8
		deadline, announced  pgtype.Text
		developer, address   pgtype.Text
		supersedes           pgtype.Int8
	)
	err := row.Scan(&c.ID, &c.Municipality, &typ, &total, &low, &moderate, &deadline, &developer,
		&address, &c.SourceDocumentURL, &announced, &c.Confidence, &c.Version, &supersedes, &c.CreatedAt)
	if err != nil {
		return housing.Commitment{}, err
	}
	c.Type = housing.CommitmentType(typ)
	c.TotalUnits, c.LowIncomeUnits, c.ModerateIncomeUnits = intPtr(total), intPtr(low), intPtr(moderate)
	c.Developer, c.LocationAddress = developer.String, address.String
	c.SupersedesID = supersedes.Int64
	c.CreatedAt = c.CreatedAt.UTC()
	if c.Deadline, err = housing.ParseDate(deadline.String); err != nil {
		return housing.Commitment{}, err
	}
	if c.DateAnnounced, err = housing.ParseDate(announced.String); err != nil {
		return housing.Commitment{}, err
	}
	return c, nil
}

const insertStatusSQL = `
	INSERT INTO status_updates (commitment_id, status, source_type, source_url, verified_date, notes)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (commitment_id, status, source_url) DO NOTHING`

// InsertStatusUpdate records u unless an identical update exists.
func (s *Store) InsertStatusUpdate(ctx context.Context, u housing.StatusUpdate) (bool, error) {
	if !u.Status.Valid() {
		return false, fmt.Errorf("invalid status %q", u.Status)
	}
	if u.SourceURL == "" {
		return false, housing.ErrMissingProvenance
	}
	verified := u.VerifiedDate
	if verified.IsZero() {
		verified = s.clock.Now()
	}
	tag, err := s.pool.Exec(ctx, insertStatusSQL,
		u.CommitmentID, string(u.Status), u.SourceType, u.SourceURL, verified.UTC(), u.Notes)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, &housing.DanglingReferenceError{CommitmentID: u.CommitmentID, SourceURL: u.SourceURL}
		}
		return false, fmt.Errorf("insert status update for commitment %d: %w", u.CommitmentID, err)
	}
	return tag.RowsAffected() > 0, nil
}
