package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/JakeFAU/nj-housing-tracker/internal/hash/sha256"
	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateCorrection signals that an identical correction of the same prior row
// was already recorded.
var ErrDuplicateCorrection = errors.New("identical correction already recorded")

// MunicipalityRepo persists municipalities keyed by housing.NameKey.
type MunicipalityRepo interface {
	// UpsertMunicipality writes the resolver-owned columns (website, confidence,
	// last_resolved_at), creating the row if needed. An empty county never clears a
	// stored one.
	UpsertMunicipality(ctx context.Context, m housing.Municipality) (housing.Municipality, error)
	// RegisterMunicipality ensures the row exists and records its county without
	// touching resolution columns.
	RegisterMunicipality(ctx context.Context, name, county string) (housing.Municipality, error)
	// GetMunicipality loads one municipality by name or returns ErrNotFound.
	GetMunicipality(ctx context.Context, name string) (housing.Municipality, error)
	// ListMunicipalities returns every municipality ordered by name.
	ListMunicipalities(ctx context.Context) ([]housing.Municipality, error)
}

// CommitmentRepo persists the append-only commitment history.
type CommitmentRepo interface {
	// InsertCommitment records c unless an identical commitment exists. It returns the
	// stored row and whether it was newly inserted. A missing source URL fails with
	// housing.ErrMissingProvenance; an unknown municipality with
	// *housing.DanglingReferenceError.
	InsertCommitment(ctx context.Context, c housing.Commitment) (housing.Commitment, bool, error)
	// CorrectCommitment records a reviewed correction of priorID as a new version.
	// The prior row is left untouched. Repeating a correction returns the stored row
	// together with ErrDuplicateCorrection.
	CorrectCommitment(ctx context.Context, priorID int64, corrected housing.Commitment) (housing.Commitment, error)
	// ListCommitments returns commitments for one municipality, or all when name is empty,
	// ordered by municipality, source URL and id.
	ListCommitments(ctx context.Context, municipality string) ([]housing.Commitment, error)
	// InsertStatusUpdate records u unless the same (commitment, status, source) exists.
	InsertStatusUpdate(ctx context.Context, u housing.StatusUpdate) (bool, error)
}

// PageRepo tracks scraped pages for change detection.
type PageRepo interface {
	// ScrapedPageHash returns the last content hash recorded for url or ErrNotFound.
	ScrapedPageHash(ctx context.Context, url string) (string, error)
	// RecordScrapedPage upserts the page row keyed by URL.
	RecordScrapedPage(ctx context.Context, p housing.ScrapedPage) error
}

// ObligationRepo persists state-published obligations.
type ObligationRepo interface {
	// UpsertObligation writes o keyed by (municipality, round). The municipality must exist.
	UpsertObligation(ctx context.Context, o housing.Obligation) error
}

// StatsRepo provides aggregate read accessors.
type StatsRepo interface {
	Stats(ctx context.Context) (housing.Stats, error)
}

// Store is the full persistence surface used by the commands.
type Store interface {
	MunicipalityRepo
	CommitmentRepo
	PageRepo
	ObligationRepo
	StatsRepo
	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error
	Close() error
}

// Tables lists the tables reported by Stats, in display order.
var Tables = []string{
	"municipalities",
	"commitments",
	"status_updates",
	"scraped_pages",
	"official_obligations",
}

// CommitmentKey is the natural key of a commitment: a digest over the municipality,
// type, unit count, deadline, source URL and, for corrections, the superseded id.
// Unknown values take part as empty strings so they collide like known ones.
func CommitmentKey(municipalityID int64, c housing.Commitment) string {
	units := ""
	if c.TotalUnits != nil {
		units = strconv.Itoa(*c.TotalUnits)
	}
	parts := []string{
		strconv.FormatInt(municipalityID, 10),
		string(NormalizedType(c.Type)),
		units,
		c.Deadline.String(),
		c.SourceDocumentURL,
	}
	if c.SupersedesID != 0 {
		parts = append(parts, "supersedes:"+strconv.FormatInt(c.SupersedesID, 10))
	}
	return sha256.Key(parts...)
}

// ValidateCommitment checks the invariants every store enforces before writing.
func ValidateCommitment(c housing.Commitment) error {
	if c.SourceDocumentURL == "" {
		return housing.ErrMissingProvenance
	}
	if !NormalizedType(c.Type).Valid() {
		return errors.New("invalid commitment type " + string(c.Type))
	}
	for _, v := range []*int{c.TotalUnits, c.LowIncomeUnits, c.ModerateIncomeUnits} {
		if v != nil && *v < 0 {
			return errors.New("unit counts must be non-negative")
		}
	}
	if c.TotalUnits != nil {
		for _, v := range []*int{c.LowIncomeUnits, c.ModerateIncomeUnits} {
			if v != nil && *v > *c.TotalUnits {
				return errors.New("income tier exceeds total units")
			}
		}
	}
	if !c.Deadline.Valid() || !c.DateAnnounced.Valid() {
		return errors.New("invalid commitment date")
	}
	return nil
}

// NormalizedType maps an empty type to housing.CommitmentUnknown.
func NormalizedType(t housing.CommitmentType) housing.CommitmentType {
	if t == "" {
		return housing.CommitmentUnknown
	}
	return t
}
