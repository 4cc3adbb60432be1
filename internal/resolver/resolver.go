// Package resolver orchestrates website discovery for municipalities: it queries every
// candidate source, scores the merged candidates and upserts the winner.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/metrics"
	"github.com/JakeFAU/nj-housing-tracker/internal/scorer"
)

// DefaultSearchDelay is the pause before each search query.
const DefaultSearchDelay = 2 * time.Second

// CandidateSource is one lookup strategy. Find never fails; it returns an empty slice instead.
type CandidateSource interface {
	Source() housing.CandidateSource
	Find(ctx context.Context, name string) []housing.Candidate
}

// Store persists resolved municipalities.
type Store interface {
	UpsertMunicipality(ctx context.Context, m housing.Municipality) (housing.Municipality, error)
}

// Pauser blocks for a fixed delay unless the context ends first.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// TimerPauser pauses with a timer.
type TimerPauser struct{}

// Pause sleeps for delay or until ctx is done.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Config controls resolver behavior.
type Config struct {
	// SearchDelay is paused before every search-source call. Directory calls are not delayed.
	SearchDelay time.Duration
	// Priority orders source calls and breaks score ties.
	Priority []housing.CandidateSource
}

// Outcome describes the resolution of one municipality.
type Outcome struct {
	Municipality housing.Municipality
	Candidates   []housing.Candidate
	Resolved     bool
}

// Resolver resolves municipality names to official websites.
type Resolver struct {
	cfg     Config
	sources []CandidateSource
	store   Store
	clock   housing.Clock
	pauser  Pauser
	logger  *zap.Logger
}

// New builds a Resolver. Sources are called in cfg.Priority order; sources whose kind
// is missing from the priority list are called last in the order given.
func New(cfg Config, sources []CandidateSource, store Store, clock housing.Clock, pauser Pauser, logger *zap.Logger) (*Resolver, error) {
	if len(sources) == 0 {
		return nil, errors.New("at least one candidate source is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if cfg.SearchDelay < 0 {
		return nil, &housing.ConfigurationError{Field: "resolver.search_delay", Reason: "must be >= 0"}
	}
	if len(cfg.Priority) == 0 {
		cfg.Priority = scorer.DefaultPriority
	}
	if pauser == nil {
		pauser = TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cfg:     cfg,
		sources: orderSources(sources, cfg.Priority),
		store:   store,
		clock:   clock,
		pauser:  pauser,
		logger:  logger,
	}, nil
}

func orderSources(sources []CandidateSource, priority []housing.CandidateSource) []CandidateSource {
	ordered := make([]CandidateSource, 0, len(sources))
	used := make([]bool, len(sources))
	for _, kind := range priority {
		for i, s := range sources {
			if !used[i] && s.Source() == kind {
				ordered = append(ordered, s)
				used[i] = true
			}
		}
	}
	for i, s := range sources {
		if !used[i] {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

// Resolve looks up one municipality and upserts the result. Only persistence failures
// are returned; an unresolved municipality is a valid outcome stored with no website.
func (r *Resolver) Resolve(ctx context.Context, name string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Outcome{}, errors.New("municipality name is required")
	}

	var candidates []housing.Candidate
	for _, src := range r.sources {
		if src.Source() == housing.SourceSearch && r.cfg.SearchDelay > 0 {
			start := time.Now()
			r.pauser.Pause(ctx, r.cfg.SearchDelay)
			metrics.ObserveSearchPause(time.Since(start))
		}
		if err := ctx.Err(); err != nil {
			return Outcome{}, fmt.Errorf("resolve %s: %w", name, err)
		}
		candidates = append(candidates, src.Find(ctx, name)...)
	}

	sel := scorer.Select(candidates, name, r.cfg.Priority)
	m := housing.Municipality{
		Name:           name,
		LastResolvedAt: r.clock.Now(),
	}
	if sel.Resolved {
		m.OfficialWebsite = sel.Best.URL
		m.ResolutionConfidence = sel.Best.RawScore
	}

	stored, err := r.store.UpsertMunicipality(ctx, m)
	if err != nil {
		return Outcome{}, fmt.Errorf("upsert municipality %s: %w", name, err)
	}
	return Outcome{Municipality: stored, Candidates: sel.Scored, Resolved: sel.Resolved}, nil
}

// Run resolves names sequentially in input order. A failure for one municipality is
// logged and counted; the batch continues. Cancellation stops the batch and returns
// the partial summary with the context error.
func (r *Resolver) Run(ctx context.Context, names []string) (housing.RunSummary, error) {
	summary := housing.RunSummary{StartedAt: r.clock.Now()}

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			summary.EndedAt = r.clock.Now()
			return summary, fmt.Errorf("resolver run: %w", err)
		}
		summary.Processed++
		out, err := r.Resolve(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				summary.Processed--
				summary.EndedAt = r.clock.Now()
				return summary, fmt.Errorf("resolver run: %w", ctx.Err())
			}
			summary.Failures++
			r.logger.Error("municipality resolution failed", zap.String("municipality", name), zap.Error(err))
			continue
		}
		if out.Resolved {
			summary.Resolved++
			metrics.ObserveMunicipality("resolved")
			r.logger.Info("municipality resolved",
				zap.String("municipality", name),
				zap.String("website", out.Municipality.OfficialWebsite),
				zap.Int("score", out.Municipality.ResolutionConfidence),
				zap.Int("candidates", len(out.Candidates)),
			)
			continue
		}
		summary.Unresolved++
		metrics.ObserveMunicipality("unresolved")
		r.logger.Info("municipality unresolved",
			zap.String("municipality", name),
			zap.Int("candidates", len(out.Candidates)),
		)
	}
	summary.EndedAt = r.clock.Now()
	return summary, nil
}
