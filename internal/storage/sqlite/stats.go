package sqlite

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

const latestStatusQuery = `
	SELECT su.status, COUNT(*)
	FROM status_updates su
	WHERE su.id = (SELECT MAX(id) FROM status_updates WHERE commitment_id = su.commitment_id)
	GROUP BY su.status`

const countyQuery = `
	SELECT m.county,
		COUNT(*),
		SUM(CASE WHEN m.official_website IS NOT NULL AND m.official_website <> '' THEN 1 ELSE 0 END),
		COALESCE(SUM(c.n), 0),
		COALESCE(SUM(c.units), 0)
	FROM municipalities m
	LEFT JOIN (
		SELECT municipality_id, COUNT(*) AS n, SUM(COALESCE(total_units, 0)) AS units
		FROM commitments
		WHERE id NOT IN (SELECT supersedes_id FROM commitments WHERE supersedes_id IS NOT NULL)
		GROUP BY municipality_id
	) c ON c.municipality_id = m.id
	GROUP BY m.county
	ORDER BY m.county`

// Stats aggregates table sizes, latest commitment statuses and per-county totals.
// Superseded commitment versions are excluded from county totals.
func (s *Store) Stats(ctx context.Context) (housing.Stats, error) {
	stats := housing.Stats{
		TableCounts: make(map[string]int, len(store.Tables)),
		ByStatus:    make(map[housing.Status]int),
	}
	for _, table := range store.Tables {
		var n int
		// Table names come from a fixed list.
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return housing.Stats{}, eris.Wrapf(err, "sqlite: count %s", table)
		}
		stats.TableCounts[table] = n
	}

	rows, err := s.db.QueryContext(ctx, latestStatusQuery)
	if err != nil {
		return housing.Stats{}, eris.Wrap(err, "sqlite: status counts")
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return housing.Stats{}, eris.Wrap(err, "sqlite: scan status count")
		}
		stats.ByStatus[housing.Status(status)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return housing.Stats{}, eris.Wrap(err, "sqlite: status counts iterate")
	}

	rows, err = s.db.QueryContext(ctx, countyQuery)
	if err != nil {
		return housing.Stats{}, eris.Wrap(err, "sqlite: county stats")
	}
	defer rows.Close()
	for rows.Next() {
		var cs housing.CountyStats
		if err := rows.Scan(&cs.County, &cs.Municipalities, &cs.Resolved, &cs.Commitments, &cs.TotalUnits); err != nil {
			return housing.Stats{}, eris.Wrap(err, "sqlite: scan county stats")
		}
		stats.ByCounty = append(stats.ByCounty, cs)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: county stats iterate")
}
