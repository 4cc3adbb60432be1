package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/metrics"
)

// DefaultDirectoryURL is the state's local government directory.
const DefaultDirectoryURL = "https://www.nj.gov/nj/gov/county/localgov.shtml"

// minSimilarity is the Jaro-Winkler threshold for a fuzzy base-name match.
const minSimilarity = 0.96

type directoryEntry struct {
	text string
	href string
}

// DirectoryAdapter proposes candidates from the anchor table of the government directory page.
// The page is fetched once per adapter; failed fetches are retried on the next lookup.
type DirectoryAdapter struct {
	fetcher housing.Fetcher
	pageURL string
	logger  *zap.Logger

	mu      sync.Mutex
	entries []directoryEntry
	loaded  bool
}

// NewDirectoryAdapter creates a DirectoryAdapter reading pageURL through fetcher.
func NewDirectoryAdapter(fetcher housing.Fetcher, pageURL string, logger *zap.Logger) *DirectoryAdapter {
	if pageURL == "" {
		pageURL = DefaultDirectoryURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryAdapter{fetcher: fetcher, pageURL: pageURL, logger: logger}
}

// Source identifies the adapter.
func (a *DirectoryAdapter) Source() housing.CandidateSource {
	return housing.SourceDirectory
}

// Find returns the directory links whose anchor text matches name, in page order.
func (a *DirectoryAdapter) Find(ctx context.Context, name string) []housing.Candidate {
	entries, err := a.load(ctx)
	if err != nil {
		a.logger.Warn("directory lookup failed",
			zap.String("municipality", name),
			zap.String("url", a.pageURL),
			zap.Error(err),
		)
		return nil
	}
	var out []housing.Candidate
	for _, e := range entries {
		if namesMatch(e.text, name) {
			out = append(out, housing.Candidate{URL: e.href, Title: e.text, Source: housing.SourceDirectory})
		}
	}
	metrics.ObserveCandidates(string(housing.SourceDirectory), len(out))
	return out
}

func (a *DirectoryAdapter) load(ctx context.Context) ([]directoryEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loaded {
		return a.entries, nil
	}
	resp, err := a.fetcher.Fetch(ctx, a.pageURL)
	if err != nil {
		return nil, &housing.TransientSourceError{Source: "directory", URL: a.pageURL, Err: err}
	}
	entries, err := parseDirectory(resp.URL, resp.Body)
	if err != nil {
		return nil, &housing.TransientSourceError{Source: "directory", URL: a.pageURL, Err: err}
	}
	a.entries = entries
	a.loaded = true
	return entries, nil
}

func parseDirectory(pageURL string, body []byte) ([]directoryEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse directory html: %w", err)
	}
	base, _ := url.Parse(pageURL)
	seen := make(map[directoryEntry]struct{})
	var entries []directoryEntry
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}
		href, _ := sel.Attr("href")
		u, ok := absoluteHTTP(base, href)
		if !ok {
			return
		}
		e := directoryEntry{text: text, href: u.String()}
		if _, dup := seen[e]; dup {
			return
		}
		seen[e] = struct{}{}
		entries = append(entries, e)
	})
	if len(entries) == 0 {
		return nil, fmt.Errorf("directory page has no links")
	}
	return entries, nil
}

// namesMatch compares an anchor text to a municipality name: case and punctuation
// insensitive, tolerant of a missing entity word, and of small spelling differences.
// Conflicting entity words ("Washington Borough" vs "Washington Township") never match.
func namesMatch(anchor, name string) bool {
	aBase, aEntity := housing.SplitEntity(anchor)
	nBase, nEntity := housing.SplitEntity(name)
	if aBase == "" || nBase == "" {
		return false
	}
	if aEntity != "" && nEntity != "" && aEntity != nEntity {
		return false
	}
	if aBase == nBase {
		return true
	}
	return matchr.JaroWinkler(aBase, nBase, false) >= minSimilarity
}
