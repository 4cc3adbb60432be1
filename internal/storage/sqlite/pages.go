package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

// ScrapedPageHash returns the last recorded content hash for url.
func (s *Store) ScrapedPageHash(ctx context.Context, url string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM scraped_pages WHERE url = ?`, url).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: scraped page hash %s", url)
	}
	return hash, nil
}

// RecordScrapedPage upserts the page row keyed by URL.
func (s *Store) RecordScrapedPage(ctx context.Context, p housing.ScrapedPage) error {
	if p.URL == "" {
		return eris.New("sqlite: scraped page url is required")
	}
	var muni sql.NullInt64
	if p.Municipality != "" {
		id, err := s.municipalityID(ctx, p.Municipality)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		muni = sql.NullInt64{Int64: id, Valid: err == nil}
	}
	scraped := p.ScrapedAt
	if scraped.IsZero() {
		scraped = s.clock.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scraped_pages (url, municipality_id, content_hash, content_type, blob_uri, commitments_found, run_id, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			municipality_id = excluded.municipality_id,
			content_hash = excluded.content_hash,
			content_type = excluded.content_type,
			blob_uri = excluded.blob_uri,
			commitments_found = excluded.commitments_found,
			run_id = excluded.run_id,
			scraped_at = excluded.scraped_at`,
		p.URL, muni, p.ContentHash, p.ContentType, p.BlobURI, p.CommitmentsFound, p.RunID, nullTime(scraped),
	)
	return eris.Wrapf(err, "sqlite: record scraped page %s", p.URL)
}

// UpsertObligation writes o keyed by (municipality, round).
func (s *Store) UpsertObligation(ctx context.Context, o housing.Obligation) error {
	if o.Round == "" {
		return eris.New("sqlite: obligation round is required")
	}
	muniID, err := s.municipalityID(ctx, o.Municipality)
	if err != nil {
		return eris.Wrapf(err, "sqlite: obligation for %s", o.Municipality)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO official_obligations (
			municipality_id, round, region, present_need, prospective_need, households, urban_aid, fips_code, dca_municode
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (municipality_id, round) DO UPDATE SET
			region = excluded.region,
			present_need = excluded.present_need,
			prospective_need = excluded.prospective_need,
			households = excluded.households,
			urban_aid = excluded.urban_aid,
			fips_code = excluded.fips_code,
			dca_municode = excluded.dca_municode`,
		muniID, o.Round, o.Region, nullInt(o.PresentNeed), nullInt(o.ProspectiveNeed), nullInt(o.Households),
		o.UrbanAid, o.FIPSCode, o.DCAMunicode,
	)
	return eris.Wrapf(err, "sqlite: upsert obligation %s %s", o.Municipality, o.Round)
}
