package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

const latestStatusSQL = `
	SELECT DISTINCT ON (commitment_id) commitment_id, status
	FROM status_updates
	ORDER BY commitment_id, id DESC`

const countySQL = `
	SELECT m.county,
		COUNT(*)::bigint,
		COUNT(*) FILTER (WHERE m.official_website IS NOT NULL AND m.official_website <> '')::bigint,
		COALESCE(SUM(c.n), 0)::bigint,
		COALESCE(SUM(c.units), 0)::bigint
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
func (s *Store) Stats(ctx context.Context) (housing.Stats, error) {
	stats := housing.Stats{
		TableCounts: make(map[string]int, len(store.Tables)),
		ByStatus:    make(map[housing.Status]int),
	}
	for _, table := range store.Tables {
		var n int64
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return housing.Stats{}, fmt.Errorf("count %s: %w", table, err)
		}
		stats.TableCounts[table] = int(n)
	}

	rows, err := s.pool.Query(ctx, latestStatusSQL)
	if err != nil {
		return housing.Stats{}, fmt.Errorf("status counts: %w", err)
	}
	for rows.Next() {
		var (
			id     int64
			status string
		)
		if err := rows.Scan(&id, &status); err != nil {
			rows.Close()
			return housing.Stats{}, fmt.Errorf("scan status: %w", err)
		}
		stats.ByStatus[housing.Status(status)]++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return housing.Stats{}, fmt.Errorf("status counts: %w", err)
	}

	rows, err = s.pool.Query(ctx, countySQL)
	if err != nil {
		return housing.Stats{}, fmt.Errorf("county stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cs                                  housing.CountyStats
			munis, resolved, commitments, units int64
		)
		if err := rows.Scan(&cs.County, &munis, &resolved, &commitments, &units); err != nil {
			return housing.Stats{}, fmt.Errorf("scan county stats: %w", err)
		}
		cs.Municipalities, cs.Resolved, cs.Commitments, cs.TotalUnits = int(munis), int(resolved), int(commitments), int(units)
		stats.ByCounty = append(stats.ByCounty, cs)
	}
	if err := rows.Err(); err != nil {
		return housing.Stats{}, fmt.Errorf("county stats: %w", err)
	}
	return stats, nil
}
