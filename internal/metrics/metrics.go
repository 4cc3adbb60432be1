// Package metrics exposes Prometheus collectors for the housing tracker batch commands.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commitment outcomes.
const (
	CommitmentAccepted      = "accepted"
	CommitmentDuplicate     = "duplicate"
	CommitmentLowConfidence = "low_confidence"
	CommitmentDangling      = "dangling_reference"
	CommitmentFailed        = "failed"
)

var (
	candidatesTotal         *prometheus.CounterVec
	municipalitiesTotal     *prometheus.CounterVec
	fetchesTotal            *prometheus.CounterVec
	fetchBytesTotal         *prometheus.CounterVec
	commitmentsTotal        *prometheus.CounterVec
	statusUpdatesTotal      prometheus.Counter
	rateLimitDelaysSeconds  *prometheus.HistogramVec
	searchPauseSecondsTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "housing_candidates_total",
				Help: "Website candidates proposed, labeled by source.",
			},
			[]string{"source"},
		)

		municipalitiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "housing_municipalities_total",
				Help: "Municipalities processed by the resolver, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "housing_document_fetches_total",
				Help: "Document fetches, labeled by content type and outcome.",
			},
			[]string{"content_type", "outcome"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "housing_document_bytes_total",
				Help: "Raw bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		commitmentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "housing_commitments_total",
				Help: "Extracted commitments, labeled by persistence outcome.",
			},
			[]string{"outcome"},
		)

		statusUpdatesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "housing_status_updates_total",
				Help: "Status updates recorded from document language.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "housing_rate_limit_delay_seconds",
				Help:    "Time spent waiting on per-host fetch spacing.",
				Buckets: []float64{0.1, 0.5, 1, 1.5, 2, 5, 10},
			},
			[]string{"domain"},
		)

		searchPauseSecondsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "housing_search_pause_seconds_total",
				Help: "Total time spent pausing before search queries.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveCandidates counts candidates proposed by one source.
func ObserveCandidates(source string, n int) {
	Init()
	if n > 0 {
		candidatesTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveMunicipality counts a resolver outcome ("resolved" or "unresolved").
func ObserveMunicipality(outcome string) {
	Init()
	municipalitiesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch counts a document fetch.
func ObserveFetch(site, contentType, outcome string, bytesFetched int) {
	Init()
	if contentType == "" {
		contentType = "none"
	}
	fetchesTotal.WithLabelValues(contentType, outcome).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// ObserveCommitment counts a commitment outcome.
func ObserveCommitment(outcome string) {
	Init()
	commitmentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStatusUpdate counts a recorded status update.
func ObserveStatusUpdate() {
	Init()
	statusUpdatesTotal.Inc()
}

// ObserveRateLimitDelay records the duration of a per-host wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveSearchPause records time spent pausing before a search query.
func ObserveSearchPause(duration time.Duration) {
	Init()
	searchPauseSecondsTotal.Add(duration.Seconds())
}

// WriteTextfile writes every registered metric to path in the node_exporter textfile format.
func WriteTextfile(path string) error {
	Init()
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
