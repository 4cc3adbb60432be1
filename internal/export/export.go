// Package export writes the human-diffable outputs: the resolved-website mapping as
// YAML and commitment records as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

// Website is one entry of the resolved-website mapping.
type Website struct {
	OfficialWebsite      *string `yaml:"official_website"`
	ResolutionConfidence int     `yaml:"resolution_confidence"`
	LastUpdated          *string `yaml:"last_updated"`
}

// WebsiteFile is the YAML document written by Websites.
type WebsiteFile struct {
	Municipalities map[string]Website `yaml:"municipalities"`
}

// Websites writes municipalities as YAML keyed by name. Keys are emitted in sorted
// order; unresolved municipalities have a null website.
func Websites(w io.Writer, munis []housing.Municipality) error {
	doc := WebsiteFile{Municipalities: make(map[string]Website, len(munis))}
	for _, m := range munis {
		entry := Website{ResolutionConfidence: m.ResolutionConfidence}
		if m.OfficialWebsite != "" {
			site := m.OfficialWebsite
			entry.OfficialWebsite = &site
		}
		if !m.LastResolvedAt.IsZero() {
			ts := m.LastResolvedAt.UTC().Format(time.RFC3339)
			entry.LastUpdated = &ts
		}
		doc.Municipalities[m.Name] = entry
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode websites yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close websites yaml: %w", err)
	}
	return nil
}

// ReadWebsites parses a file written by Websites.
func ReadWebsites(r io.Reader) (WebsiteFile, error) {
	var doc WebsiteFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return WebsiteFile{}, fmt.Errorf("decode websites yaml: %w", err)
	}
	return doc, nil
}

// CommitmentHeader is the column order of the commitments CSV.
var CommitmentHeader = []string{
	"municipality",
	"source_document_url",
	"commitment_id",
	"commitment_type",
	"total_units",
	"low_income_units",
	"moderate_income_units",
	"deadline",
	"date_announced",
	"developer",
	"location_address",
	"extraction_confidence",
	"version",
	"supersedes_id",
}

// Commitments writes commitments as CSV ordered by municipality, source URL and id.
// Unknown values are empty cells.
func Commitments(w io.Writer, commitments []housing.Commitment) error {
	sorted := make([]housing.Commitment, len(commitments))
	copy(sorted, commitments)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Municipality != b.Municipality {
			return a.Municipality < b.Municipality
		}
		if a.SourceDocumentURL != b.SourceDocumentURL {
			return a.SourceDocumentURL < b.SourceDocumentURL
		}
		return a.ID < b.ID
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(CommitmentHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range sorted {
		supersedes := ""
		if c.SupersedesID != 0 {
			supersedes = strconv.FormatInt(c.SupersedesID, 10)
		}
		record := []string{
			c.Municipality,
			c.SourceDocumentURL,
			strconv.FormatInt(c.ID, 10),
			string(c.Type),
			optionalInt(c.TotalUnits),
			optionalInt(c.LowIncomeUnits),
			optionalInt(c.ModerateIncomeUnits),
			c.Deadline.String(),
			c.DateAnnounced.String(),
			c.Developer,
			c.LocationAddress,
			strconv.FormatFloat(c.Confidence, 'f', 3, 64),
			strconv.Itoa(c.Version),
			supersedes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
