package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

const commitmentColumns = `c.id, m.name, c.commitment_type, c.total_units, c.low_income_units,
	c.moderate_income_units, c.deadline, c.developer, c.location_address, c.source_document_url,
	c.date_announced, c.extraction_confidence, c.version, c.supersedes_id, c.created_at`

const commitmentFrom = ` FROM commitments c JOIN municipalities m ON m.id = c.municipality_id`

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

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO commitments (
			municipality_id, natural_key, commitment_type, total_units, low_income_units,
			moderate_income_units, deadline, developer, location_address, source_document_url,
			date_announced, extraction_confidence, version, supersedes_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (natural_key) DO NOTHING`,
		muniID, key, string(store.NormalizedType(c.Type)), nullInt(c.TotalUnits), nullInt(c.LowIncomeUnits),
		nullInt(c.ModerateIncomeUnits), nullDate(c.Deadline), nullString(c.Developer), nullString(c.LocationAddress),
		c.SourceDocumentURL, nullDate(c.DateAnnounced), c.Confidence, c.Version,
		sql.NullInt64{Int64: c.SupersedesID, Valid: c.SupersedesID != 0}, nullTime(s.clock.Now()),
	)
	if err != nil {
		return housing.Commitment{}, false, eris.Wrapf(err, "sqlite: insert commitment from %s", c.SourceDocumentURL)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return housing.Commitment{}, false, eris.Wrap(err, "sqlite: insert commitment rows affected")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+commitmentColumns+commitmentFrom+` WHERE c.natural_key = ?`, key)
	stored, err := scanCommitment(row)
	if err != nil {
		return housing.Commitment{}, false, err
	}
	return stored, n > 0, nil
}

// CorrectCommitment records corrected as the next version of priorID.
func (s *Store) CorrectCommitment(ctx context.Context, priorID int64, corrected housing.Commitment) (housing.Commitment, error) {
	prior, err := s.commitmentByID(ctx, priorID)
	if err != nil {
		return housing.Commitment{}, err
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
		return stored, eris.Wrapf(store.ErrDuplicateCorrection, "sqlite: correct commitment %d", priorID)
	}
	return stored, nil
}

func (s *Store) commitmentByID(ctx context.Context, id int64) (housing.Commitment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commitmentColumns+commitmentFrom+` WHERE c.id = ?`, id)
	c, err := scanCommitment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return housing.Commitment{}, store.ErrNotFound
	}
	return c, err
}

// ListCommitments returns commitments for one municipality, or all when municipality is empty.
func (s *Store) ListCommitments(ctx context.Context, municipality string) ([]housing.Commitment, error) {
	query := `SELECT ` + commitmentColumns + commitmentFrom
	var args []any
	if municipality != "" {
		query += ` WHERE m.name_key = ?`
		args = append(args, housing.NameKey(municipality))
	}
	query += ` ORDER BY m.name, c.source_document_url, c.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list commitments")
	}
	defer rows.Close()

	var out []housing.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list commitments iterate")
}

func scanCommitment(row scanner) (housing.Commitment, error) {
	var (
		c                    housing.Commitment
		typ                  string
		total, low, moderate sql.NullInt64
		deadline, announced  sql.NullString
		developer, address   sql.NullString
		supersedes           sql.NullInt64
		created              sql.NullString
	)
	err := row.Scan(&c.ID, &c.Municipality, &typ, &total, &low, &moderate, &deadline, &developer,
		&address, &c.SourceDocumentURL, &announced, &c.Confidence, &c.Version, &supersedes, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, eris.Wrap(err, "sqlite: scan commitment")
	}
	c.Type = housing.CommitmentType(typ)
	c.TotalUnits, c.LowIncomeUnits, c.ModerateIncomeUnits = intPtr(total), intPtr(low), intPtr(moderate)
	c.Developer, c.LocationAddress = developer.String, address.String
	c.SupersedesID = supersedes.Int64
	if c.Deadline, err = parseDate(deadline); err != nil {
		return c, err
	}
	if c.DateAnnounced, err = parseDate(announced); err != nil {
		return c, err
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return c, err
	}
	return c, nil
}

// InsertStatusUpdate records u unless an identical update exists.
func (s *Store) InsertStatusUpdate(ctx context.Context, u housing.StatusUpdate) (bool, error) {
	if !u.Status.Valid() {
		return false, eris.Errorf("sqlite: invalid status %q", u.Status)
	}
	if u.SourceURL == "" {
		return false, housing.ErrMissingProvenance
	}
	verified := u.VerifiedDate
	if verified.IsZero() {
		verified = s.clock.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO status_updates (commitment_id, status, source_type, source_url, verified_date, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (commitment_id, status, source_url) DO NOTHING`,
		u.CommitmentID, string(u.Status), u.SourceType, u.SourceURL, nullTime(verified), u.Notes,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert status update for commitment %d", u.CommitmentID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: status update rows affected")
	}
	return n > 0, nil
}
