// Package scorer ranks website candidates for a municipality with a fixed additive rubric
// and selects a single winner deterministically. It has no dependencies on time or I/O.
package scorer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

// Rubric weights.
const (
	GovernmentTLDPoints = 10
	NameInDomainPoints  = 8
	EntityKeywordPoints = 3
	CommercialPenalty   = -2
)

// suffixBonuses is ordered longest first so ".nj.us" wins over ".us".
var suffixBonuses = []struct {
	suffix string
	bonus  int
}{
	{".nj.us", 4},
	{".gov", 5},
	{".org", 2},
	{".us", 3},
}

var commercialSuffixes = []string{".com", ".net"}

// DefaultPriority prefers directory listings over search results in ties.
var DefaultPriority = []housing.CandidateSource{housing.SourceDirectory, housing.SourceSearch}

// Score rates candidate c for the named municipality. Directory and search candidates
// are scored identically.
func Score(c housing.Candidate, name string) int {
	u, ok := parse(c.URL)
	if !ok {
		return 0
	}
	host := strings.ToLower(u.Hostname())
	score := 0

	if bonus, ok := governmentSuffixBonus(host); ok {
		score += GovernmentTLDPoints + bonus
	}
	if compact := housing.CompactName(name); compact != "" && strings.Contains(host, compact) {
		score += NameInDomainPoints
	}
	if containsEntityKeyword(strings.ToLower(u.Path)) || containsEntityKeyword(strings.ToLower(c.Title)) {
		score += EntityKeywordPoints
	}
	for _, s := range commercialSuffixes {
		if strings.HasSuffix(host, s) {
			score += CommercialPenalty
			break
		}
	}
	return score
}

func governmentSuffixBonus(host string) (int, bool) {
	for _, sb := range suffixBonuses {
		if strings.HasSuffix(host, sb.suffix) {
			return sb.bonus, true
		}
	}
	return 0, false
}

func containsEntityKeyword(s string) bool {
	for _, w := range housing.EntityWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Result is the outcome of Select.
type Result struct {
	// Best is the winning candidate; meaningful only when Resolved is true.
	Best housing.Candidate
	// Scored holds every candidate with RawScore filled, in ranking order.
	Scored   []housing.Candidate
	Resolved bool
}

// Select scores every candidate and picks the winner: strictly highest score, then the
// source listed first in priority, then the shortest host, then input order. When no
// candidate scores above zero the municipality is unresolved.
func Select(candidates []housing.Candidate, name string, priority []housing.CandidateSource) Result {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	rank := make(map[housing.CandidateSource]int, len(priority))
	for i, s := range priority {
		rank[s] = i
	}
	sourceRank := func(s housing.CandidateSource) int {
		if r, ok := rank[s]; ok {
			return r
		}
		return len(priority)
	}

	scored := make([]housing.Candidate, len(candidates))
	for i, c := range candidates {
		c.RawScore = Score(c, name)
		scored[i] = c
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.RawScore != b.RawScore {
			return a.RawScore > b.RawScore
		}
		if ra, rb := sourceRank(a.Source), sourceRank(b.Source); ra != rb {
			return ra < rb
		}
		return hostLen(a.URL) < hostLen(b.URL)
	})

	res := Result{Scored: scored}
	if len(scored) > 0 && scored[0].RawScore > 0 {
		res.Best = scored[0]
		res.Resolved = true
	}
	return res
}

func hostLen(raw string) int {
	u, ok := parse(raw)
	if !ok {
		return len(raw)
	}
	return len(u.Hostname())
}

func parse(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	return u, true
}
