// Package pipeline runs the extraction batch: for each resolved municipality it walks the
// homepage, its planning pages and linked housing documents, extracts commitments and
// persists them with provenance.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/document"
	"github.com/JakeFAU/nj-housing-tracker/internal/extract"
	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/metrics"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

// DefaultMaxPages caps the pages fetched per municipality.
const DefaultMaxPages = 10

// SourceTypeMunicipalDocument marks status updates observed in municipal documents.
const SourceTypeMunicipalDocument = "municipal_document"

// DocumentFetcher implements fetch(url) -> text, content_type.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (document.Document, bool)
}

// Extractor turns document text into commitments.
type Extractor interface {
	Extract(text, sourceURL, contentType string) (extract.Result, error)
}

// Store is the persistence the pipeline writes to.
type Store interface {
	GetMunicipality(ctx context.Context, name string) (housing.Municipality, error)
	ListMunicipalities(ctx context.Context) ([]housing.Municipality, error)
	InsertCommitment(ctx context.Context, c housing.Commitment) (housing.Commitment, bool, error)
	InsertStatusUpdate(ctx context.Context, u housing.StatusUpdate) (bool, error)
	store.PageRepo
}

// Archive stores raw document bytes and returns their URI.
type Archive interface {
	PutObject(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
}

// Publisher announces newly recorded commitments.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) (string, error)
}

// Config controls pipeline behavior.
type Config struct {
	// MaxPages caps fetches per municipality: homepage, then planning pages, then documents.
	MaxPages int
	// Force re-extracts pages whose content hash is unchanged since the last run.
	Force bool
	// ArchivePrefix is the first segment of archive keys.
	ArchivePrefix string
}

// Options wires the optional collaborators of a Pipeline.
type Options struct {
	Archive   Archive
	Publisher Publisher
	IDs       housing.IDGenerator
	Logger    *zap.Logger
}

// Pipeline runs extraction for municipalities.
type Pipeline struct {
	cfg       Config
	fetcher   DocumentFetcher
	extractor Extractor
	store     Store
	hasher    housing.Hasher
	clock     housing.Clock
	archive   Archive
	publisher Publisher
	ids       housing.IDGenerator
	logger    *zap.Logger
}

// New builds a Pipeline.
func New(cfg Config, fetcher DocumentFetcher, extractor Extractor, st Store, hasher housing.Hasher, clock housing.Clock, opts Options) (*Pipeline, error) {
	switch {
	case fetcher == nil:
		return nil, errors.New("document fetcher is required")
	case extractor == nil:
		return nil, errors.New("extractor is required")
	case st == nil:
		return nil, errors.New("store is required")
	case hasher == nil:
		return nil, errors.New("hasher is required")
	case clock == nil:
		return nil, errors.New("clock is required")
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxPages < 0 {
		return nil, &housing.ConfigurationError{Field: "extract.max_pages_per_municipality", Reason: "must be > 0"}
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "documents"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		store:     st,
		hasher:    hasher,
		clock:     clock,
		archive:   opts.Archive,
		publisher: opts.Publisher,
		ids:       opts.IDs,
		logger:    opts.Logger,
	}, nil
}

// Run processes names in input order, or every resolved municipality by name when names
// is empty. Per-municipality failures are counted and logged; the batch continues.
// Cancellation stops the batch and returns the partial summary with the context error.
func (p *Pipeline) Run(ctx context.Context, names []string) (summary housing.RunSummary, err error) {
	summary = housing.RunSummary{StartedAt: p.clock.Now(), RunID: p.newRunID()}
	defer func() { summary.EndedAt = p.clock.Now() }()

	targets, err := p.targets(ctx, names, &summary)
	if err != nil {
		return summary, err
	}

	for _, m := range targets {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("extract run: %w", err)
		}
		summary.Processed++
		if !m.Resolved() {
			summary.Unresolved++
			p.logger.Info("municipality has no website, skipping", zap.String("municipality", m.Name))
			continue
		}
		summary.Resolved++
		summary.Merge(p.ProcessMunicipality(ctx, m, summary.RunID))
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("extract run: %w", err)
	}
	return summary, nil
}

func (p *Pipeline) targets(ctx context.Context, names []string, summary *housing.RunSummary) ([]housing.Municipality, error) {
	if len(names) == 0 {
		all, err := p.store.ListMunicipalities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list municipalities: %w", err)
		}
		return all, nil
	}
	out := make([]housing.Municipality, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m, err := p.store.GetMunicipality(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			summary.DanglingReferences++
			p.logger.Error("municipality is not known to the store; run resolve first",
				zap.String("municipality", name))
			continue
		}
		if err != nil {
			summary.Failures++
			p.logger.Error("load municipality failed", zap.String("municipality", name), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (p *Pipeline) newRunID() string {
	if p.ids == nil {
		return ""
	}
	id, err := p.ids.NewID()
	if err != nil {
		p.logger.Warn("generate run id failed", zap.Error(err))
		return ""
	}
	return id
}

// ProcessMunicipality walks one municipality's site within the page budget and returns
// the counters for it.
func (p *Pipeline) ProcessMunicipality(ctx context.Context, m housing.Municipality, runID string) housing.RunSummary {
	var (
		summary housing.RunSummary
		visited = make(map[string]bool)
		budget  = p.cfg.MaxPages
	)
	logger := p.logger.With(zap.String("municipality", m.Name), zap.String("run_id", runID))

	visit := func(rawURL string) (document.Document, bool) {
		if budget <= 0 || visited[rawURL] || ctx.Err() != nil {
			return document.Document{}, false
		}
		visited[rawURL] = true
		budget--
		doc, ok := p.fetcher.Fetch(ctx, rawURL)
		if !ok {
			summary.FetchFailures++
			return document.Document{}, false
		}
		visited[doc.URL] = true
		p.processPage(ctx, m, doc, runID, &summary, logger)
		return doc, true
	}

	home, ok := visit(m.OfficialWebsite)
	if !ok {
		logger.Warn("homepage unavailable", zap.String("url", m.OfficialWebsite))
		return summary
	}

	docs := document.DocumentLinks(home)
	for _, link := range document.RelevantLinks(home) {
		page, ok := visit(link.URL)
		if ok {
			docs = append(docs, document.DocumentLinks(page)...)
		}
	}
	for _, link := range docs {
		visit(link.URL)
	}
	logger.Debug("municipality processed",
		zap.Int("pages_fetched", summary.PagesFetched),
		zap.Int("pages_skipped", summary.PagesSkipped),
		zap.Int("accepted", summary.Accepted),
	)
	return summary
}

func (p *Pipeline) processPage(ctx context.Context, m housing.Municipality, doc document.Document, runID string, summary *housing.RunSummary, logger *zap.Logger) {
	logger = logger.With(zap.String("url", doc.URL))

	hash, err := p.hasher.Hash(doc.Raw)
	if err != nil {
		summary.Failures++
		logger.Error("hash page failed", zap.Error(err))
		return
	}
	if !p.cfg.Force {
		prev, err := p.store.ScrapedPageHash(ctx, doc.URL)
		switch {
		case err == nil && prev == hash:
			summary.PagesSkipped++
			logger.Debug("page unchanged, skipping")
			return
		case err != nil && !errors.Is(err, store.ErrNotFound):
			logger.Warn("load page hash failed", zap.Error(err))
		}
	}
	summary.PagesFetched++

	page := housing.ScrapedPage{
		URL:          doc.URL,
		Municipality: m.Name,
		ContentHash:  hash,
		ContentType:  doc.ContentType,
		RunID:        runID,
	}
	page.BlobURI = p.archiveDocument(ctx, doc, hash, logger)

	res, err := p.extractor.Extract(doc.Text, doc.URL, doc.ContentType)
	if err != nil {
		summary.Failures++
		logger.Error("extract page failed", zap.Error(err))
		return
	}
	summary.LowConfidenceDiscards += res.Discarded
	for range res.Discarded {
		metrics.ObserveCommitment(metrics.CommitmentLowConfidence)
	}

	ids := make([]int64, len(res.Commitments))
	for i, c := range res.Commitments {
		c.Municipality = m.Name
		stored, inserted, err := p.store.InsertCommitment(ctx, c)
		var dangling *housing.DanglingReferenceError
		switch {
		case errors.As(err, &dangling):
			summary.DanglingReferences++
			metrics.ObserveCommitment(metrics.CommitmentDangling)
			logger.Error("commitment rejected: dangling reference",
				zap.String("source_url", dangling.SourceURL),
				zap.String("referenced_municipality", dangling.Municipality),
				zap.Error(err),
			)
			continue
		case err != nil:
			summary.Failures++
			metrics.ObserveCommitment(metrics.CommitmentFailed)
			logger.Error("insert commitment failed", zap.Error(err))
			continue
		case inserted:
			summary.Accepted++
			metrics.ObserveCommitment(metrics.CommitmentAccepted)
			p.publish(ctx, stored, runID, logger)
		default:
			summary.Duplicates++
			metrics.ObserveCommitment(metrics.CommitmentDuplicate)
		}
		ids[i] = stored.ID
		page.CommitmentsFound++
	}

	for _, draft := range res.Statuses {
		if draft.Index >= len(ids) || ids[draft.Index] == 0 {
			continue
		}
		inserted, err := p.store.InsertStatusUpdate(ctx, housing.StatusUpdate{
			CommitmentID: ids[draft.Index],
			Status:       draft.Status,
			SourceType:   SourceTypeMunicipalDocument,
			SourceURL:    doc.URL,
			VerifiedDate: p.clock.Now(),
			Notes:        draft.Evidence,
		})
		if err != nil {
			summary.Failures++
			logger.Error("insert status update failed", zap.String("status", string(draft.Status)), zap.Error(err))
			continue
		}
		if inserted {
			summary.StatusUpdates++
			metrics.ObserveStatusUpdate()
		}
	}

	page.ScrapedAt = p.clock.Now()
	if err := p.store.RecordScrapedPage(ctx, page); err != nil {
		summary.Failures++
		logger.Error("record scraped page failed", zap.Error(err))
	}
}

func (p *Pipeline) archiveDocument(ctx context.Context, doc document.Document, hash string, logger *zap.Logger) string {
	if p.archive == nil || len(doc.Raw) == 0 {
		return ""
	}
	uri, err := p.archive.PutObject(ctx, ArchiveKey(p.cfg.ArchivePrefix, doc.URL, hash), doc.ContentType, bytes.NewReader(doc.Raw))
	if err != nil {
		logger.Warn("archive document failed", zap.Error(err))
		return ""
	}
	return uri
}

// ArchiveKey builds the content-addressed archive key <prefix>/<host>/<hash>.
func ArchiveKey(prefix, rawURL, hash string) string {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	return strings.Trim(prefix, "/") + "/" + host + "/" + hash
}

// EventCommitmentRecorded names the notification sent for each new commitment.
const EventCommitmentRecorded = "commitment.recorded"

// CommitmentEvent is the JSON payload published for a newly recorded commitment.
type CommitmentEvent struct {
	RunID               string    `json:"run_id,omitempty"`
	CommitmentID        int64     `json:"commitment_id"`
	Municipality        string    `json:"municipality"`
	CommitmentType      string    `json:"commitment_type"`
	TotalUnits          *int      `json:"total_units"`
	LowIncomeUnits      *int      `json:"low_income_units"`
	ModerateIncomeUnits *int      `json:"moderate_income_units"`
	Deadline            string    `json:"deadline,omitempty"`
	DateAnnounced       string    `json:"date_announced,omitempty"`
	Developer           string    `json:"developer,omitempty"`
	LocationAddress     string    `json:"location_address,omitempty"`
	SourceDocumentURL   string    `json:"source_document_url"`
	Confidence          float64   `json:"extraction_confidence"`
	Version             int       `json:"version"`
	RecordedAt          time.Time `json:"recorded_at"`
}

// NewCommitmentEvent builds the notification payload for c.
func NewCommitmentEvent(c housing.Commitment, runID string) CommitmentEvent {
	return CommitmentEvent{
		RunID:               runID,
		CommitmentID:        c.ID,
		Municipality:        c.Municipality,
		CommitmentType:      string(c.Type),
		TotalUnits:          c.TotalUnits,
		LowIncomeUnits:      c.LowIncomeUnits,
		ModerateIncomeUnits: c.ModerateIncomeUnits,
		Deadline:            c.Deadline.String(),
		DateAnnounced:       c.DateAnnounced.String(),
		Developer:           c.Developer,
		LocationAddress:     c.LocationAddress,
		SourceDocumentURL:   c.SourceDocumentURL,
		Confidence:          c.Confidence,
		Version:             c.Version,
		RecordedAt:          c.CreatedAt,
	}
}

func (p *Pipeline) publish(ctx context.Context, c housing.Commitment, runID string, logger *zap.Logger) {
	if p.publisher == nil {
		return
	}
	if _, err := p.publisher.Publish(ctx, EventCommitmentRecorded, NewCommitmentEvent(c, runID)); err != nil {
		logger.Warn("publish commitment failed", zap.Int64("commitment_id", c.ID), zap.Error(err))
	}
}
