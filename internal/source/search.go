package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/metrics"
)

// DefaultSearchResults is the number of search links kept as candidates.
const DefaultSearchResults = 10

// SearchResult is one organic result link.
type SearchResult struct {
	URL   string
	Title string
}

// Searcher runs a single web search query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Query builds the search query for a municipality.
func Query(name string) string {
	return fmt.Sprintf("%s NJ official website government", strings.TrimSpace(name))
}

// SearchAdapter proposes the top search results for a municipality as candidates.
type SearchAdapter struct {
	searcher Searcher
	blocked  *Blocklist
	limit    int
	logger   *zap.Logger
}

// NewSearchAdapter creates a SearchAdapter. Results on blocked hosts are dropped before
// the top limit results are taken.
func NewSearchAdapter(searcher Searcher, blocked *Blocklist, limit int, logger *zap.Logger) *SearchAdapter {
	if limit <= 0 {
		limit = DefaultSearchResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchAdapter{searcher: searcher, blocked: blocked, limit: limit, logger: logger}
}

// Source identifies the adapter.
func (a *SearchAdapter) Source() housing.CandidateSource {
	return housing.SourceSearch
}

// Find issues one search query and returns up to limit candidates in result order.
func (a *SearchAdapter) Find(ctx context.Context, name string) []housing.Candidate {
	query := Query(name)
	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		a.logger.Warn("search lookup failed",
			zap.String("municipality", name),
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}
	out := make([]housing.Candidate, 0, a.limit)
	for _, r := range results {
		if len(out) == a.limit {
			break
		}
		u, err := url.Parse(r.URL)
		if err != nil || u.Hostname() == "" || a.blocked.IsBlocked(u.Hostname()) {
			continue
		}
		out = append(out, housing.Candidate{URL: r.URL, Title: r.Title, Source: housing.SourceSearch})
	}
	metrics.ObserveCandidates(string(housing.SourceSearch), len(out))
	return out
}

// WebSearcher queries an HTML search endpoint through a Fetcher and parses result links.
type WebSearcher struct {
	fetcher  housing.Fetcher
	endpoint string
}

// NewWebSearcher creates a WebSearcher for endpoint (for example https://html.duckduckgo.com/html/).
func NewWebSearcher(fetcher housing.Fetcher, endpoint string) *WebSearcher {
	return &WebSearcher{fetcher: fetcher, endpoint: endpoint}
}

// Search fetches the result page for query and returns its outbound links, one per host.
func (s *WebSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse search endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", query)
	endpoint.RawQuery = params.Encode()

	resp, err := s.fetcher.Fetch(ctx, endpoint.String())
	if err != nil {
		return nil, &housing.TransientSourceError{Source: "search", URL: endpoint.String(), Err: err}
	}
	results, err := parseResults(endpoint, resp.Body)
	if err != nil {
		return nil, &housing.TransientSourceError{Source: "search", URL: endpoint.String(), Err: err}
	}
	return results, nil
}

func parseResults(page *url.URL, body []byte) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse search html: %w", err)
	}
	engine := baseDomain(page.Hostname())
	seenHosts := make(map[string]struct{})
	var results []SearchResult
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved, ok := absoluteHTTP(page, href)
		if !ok {
			return
		}
		target, ok := absoluteHTTP(nil, unwrapRedirect(resolved.String()))
		if !ok {
			return
		}
		host := strings.ToLower(target.Hostname())
		if host == engine || strings.HasSuffix(host, "."+engine) {
			return
		}
		if _, dup := seenHosts[host]; dup {
			return
		}
		seenHosts[host] = struct{}{}
		results = append(results, SearchResult{
			URL:   target.String(),
			Title: strings.Join(strings.Fields(sel.Text()), " "),
		})
	})
	return results, nil
}

// baseDomain keeps the last two labels of host, so html.duckduckgo.com yields duckduckgo.com.
func baseDomain(host string) string {
	labels := strings.Split(strings.ToLower(host), ".")
	if len(labels) <= 2 {
		return strings.Join(labels, ".")
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
