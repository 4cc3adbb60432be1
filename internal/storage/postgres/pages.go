package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

// foreignKeyViolation is the SQLSTATE Postgres reports for a missing referenced row.
const foreignKeyViolation = "23503"

// ScrapedPageHash returns the last recorded content hash for url.
func (s *Store) ScrapedPageHash(ctx context.Context, url string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT content_hash FROM scraped_pages WHERE url = $1`, url).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("scraped page hash %s: %w", url, err)
	}
	return hash, nil
}

const recordPageSQL = `
	INSERT INTO scraped_pages (url, municipality_id, content_hash, content_type, blob_uri, commitments_found, run_id, scraped_at)
	VALUES ($1, (SELECT id FROM municipalities WHERE name_key = $2), $3, $4, $5, $6, $7, $8)
	ON CONFLICT (url) DO UPDATE SET
		municipality_id = EXCLUDED.municipality_id,
		content_hash = EXCLUDED.content_hash,
		content_type = EXCLUDED.content_type,
		blob_uri = EXCLUDED.blob_uri,
		commitments_found = EXCLUDED.commitments_found,
		run_id = EXCLUDED.run_id,
		scraped_at = EXCLUDED.scraped_at`

// RecordScrapedPage upserts the page row keyed by URL. An unknown municipality
// leaves the reference empty.
func (s *Store) RecordScrapedPage(ctx context.Context, p housing.ScrapedPage) error {
	if p.URL == "" {
		return fmt.Errorf("scraped page url is required")
	}
	scraped := p.ScrapedAt
	if scraped.IsZero() {
		scraped = s.clock.Now()
	}
	_, err := s.pool.Exec(ctx, recordPageSQL,
		p.URL, housing.NameKey(p.Municipality), p.ContentHash, p.ContentType, p.BlobURI,
		p.CommitmentsFound, p.RunID, scraped.UTC())
	if err != nil {
		return fmt.Errorf("record scraped page %s: %w", p.URL, err)
	}
	return nil
}

const upsertObligationSQL = `
	INSERT INTO official_obligations (
		municipality_id, round, region, present_need, prospective_need, households, urban_aid, fips_code, dca_municode
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (municipality_id, round) DO UPDATE SET
		region = EXCLUDED.region,
		present_need = EXCLUDED.present_need,
		prospective_need = EXCLUDED.prospective_need,
		households = EXCLUDED.households,
		urban_aid = EXCLUDED.urban_aid,
		fips_code = EXCLUDED.fips_code,
		dca_municode = EXCLUDED.dca_municode`

// UpsertObligation writes o keyed by (municipality, round).
func (s *Store) UpsertObligation(ctx context.Context, o housing.Obligation) error {
	if o.Round == "" {
		return fmt.Errorf("obligation round is required")
	}
	muniID, err := s.municipalityID(ctx, o.Municipality)
	if err != nil {
		return fmt.Errorf("obligation for %s: %w", o.Municipality, err)
	}
	_, err = s.pool.Exec(ctx, upsertObligationSQL,
		muniID, o.Round, o.Region, nullInt(o.PresentNeed), nullInt(o.ProspectiveNeed), nullInt(o.Households),
		o.UrbanAid, o.FIPSCode, o.DCAMunicode)
	if err != nil {
		return fmt.Errorf("upsert obligation %s %s: %w", o.Municipality, o.Round, err)
	}
	return nil
}
