// Package extract pulls structured affordable housing commitments out of document text.
// Extraction is a generic interpreter over a declarative rule table: text is segmented
// into keyword-anchored passages and every rule is applied to every passage.
package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

// Defaults.
const (
	DefaultMinFields       = 2
	DefaultWindowSentences = 2
	// MaxUnits bounds unit counts; values outside (0, MaxUnits) are ignored.
	MaxUnits = 10000
)

// Config controls the extractor.
type Config struct {
	// MinFields is the minimum number of extracted fields, provenance excluded.
	MinFields int
	// WindowSentences is the number of sentences kept on each side of a keyword hit.
	// Zero keeps only the sentence holding the keyword; callers wanting the usual
	// context pass DefaultWindowSentences.
	WindowSentences int
	Keywords        []string
	Rules           []Rule
}

// StatusDraft is status language observed in the passage that produced
// Result.Commitments[Index].
type StatusDraft struct {
	Index    int
	Status   housing.Status
	Evidence string
}

// Result holds the outcome of extracting one document.
type Result struct {
	Commitments []housing.Commitment
	Statuses    []StatusDraft
	// Discarded counts passages whose record fell below the field threshold.
	Discarded int
	Passages  int
}

// Extractor applies a rule table to document text.
type Extractor struct {
	minFields int
	window    int
	keywords  []string
	rules     []Rule
}

// New validates cfg and builds an Extractor.
func New(cfg Config) (*Extractor, error) {
	if cfg.MinFields == 0 {
		cfg.MinFields = DefaultMinFields
	}
	if cfg.MinFields < 1 || cfg.MinFields > housing.TargetFields {
		return nil, &housing.ConfigurationError{
			Field:  "extract.min_fields",
			Reason: fmt.Sprintf("must be between 1 and %d", housing.TargetFields),
		}
	}
	if cfg.WindowSentences < 0 {
		return nil, &housing.ConfigurationError{Field: "extract.window_sentences", Reason: "must be >= 0"}
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultKeywords
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultRules
	}
	for _, r := range cfg.Rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("rule %q has no pattern", r.Name)
		}
		if r.Maps == "" && r.Pattern.NumSubexp() < 1 {
			return nil, fmt.Errorf("rule %q needs a capture group", r.Name)
		}
	}
	keywords := make([]string, len(cfg.Keywords))
	for i, kw := range cfg.Keywords {
		keywords[i] = strings.ToLower(kw)
	}
	return &Extractor{
		minFields: cfg.MinFields,
		window:    cfg.WindowSentences,
		keywords:  keywords,
		rules:     cfg.Rules,
	}, nil
}

// Extract returns the commitments found in text. sourceURL becomes every record's
// provenance; an empty sourceURL is rejected with housing.ErrMissingProvenance.
// contentType selects which rules are tried first ("application/pdf" or "text/html").
// The same input always yields the same result.
func (e *Extractor) Extract(text, sourceURL, contentType string) (Result, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return Result{}, housing.ErrMissingProvenance
	}
	pref := preferenceFor(contentType)
	rules := e.ordered(pref)

	sentences := Sentences(text, pref == PreferHTML)
	passages := Segment(sentences, e.keywords, e.window)

	var (
		res   = Result{Passages: len(passages)}
		found []finding
		byKey = make(map[string]int)
	)
	for _, p := range passages {
		f := e.apply(rules, p)
		f.commitment.SourceDocumentURL = sourceURL
		if !e.accept(f.commitment) {
			res.Discarded++
			continue
		}
		f.commitment.Confidence = Confidence(f.commitment)

		key := dedupeKey(f.commitment)
		if i, ok := byKey[key]; ok {
			if f.commitment.Confidence > found[i].commitment.Confidence {
				found[i] = f
			}
			continue
		}
		byKey[key] = len(found)
		found = append(found, f)
	}

	for i, f := range found {
		res.Commitments = append(res.Commitments, f.commitment)
		if f.status != "" {
			res.Statuses = append(res.Statuses, StatusDraft{Index: i, Status: f.status, Evidence: f.evidence})
		}
	}
	return res, nil
}

// Confidence is the share of the target fields populated, provenance included.
func Confidence(c housing.Commitment) float64 {
	return float64(c.PopulatedFields()) / float64(housing.TargetFields)
}

type finding struct {
	commitment housing.Commitment
	status     housing.Status
	evidence   string
}

func (e *Extractor) accept(c housing.Commitment) bool {
	if c.TotalUnits == nil && c.Type == housing.CommitmentUnknown {
		return false
	}
	return c.ExtractedFields() >= e.minFields
}

func (e *Extractor) apply(rules []Rule, p Passage) finding {
	c := housing.Commitment{Type: housing.CommitmentUnknown}
	var (
		f          finding
		typeRank   = -1
		statusRank = -1
		unitsSet   = map[Field]bool{}
	)
	for _, r := range rules {
		if r.Maps != "" {
			if !r.Pattern.MatchString(p.Text) {
				continue
			}
			switch r.Field {
			case FieldType:
				if typeRank == -1 || r.Precedence < typeRank {
					typeRank = r.Precedence
					c.Type = housing.CommitmentType(r.Maps)
				}
			case FieldStatus:
				if statusRank == -1 || r.Precedence < statusRank {
					statusRank = r.Precedence
					f.status = housing.Status(r.Maps)
				}
			}
			continue
		}

		switch r.Field {
		case FieldTotalUnits, FieldLowIncome, FieldModerate:
			if unitsSet[r.Field] {
				continue
			}
			if n, ok := largestCount(r, p.Text); ok {
				unitsSet[r.Field] = true
				setUnits(&c, r.Field, n)
			}
		case FieldDeadline:
			if c.Deadline.IsZero() {
				c.Deadline = firstDate(r, p.Text)
			}
		case FieldDateAnnounced:
			if c.DateAnnounced.IsZero() {
				c.DateAnnounced = firstDate(r, p.Text)
			}
		case FieldDeveloper:
			if c.Developer == "" {
				c.Developer = cleanName(firstCapture(r, p.Text))
			}
		case FieldAddress:
			if c.LocationAddress == "" {
				c.LocationAddress = strings.TrimSpace(firstCapture(r, p.Text))
			}
		}
	}

	// Income tiers cannot exceed the total.
	if c.TotalUnits != nil {
		if c.LowIncomeUnits != nil && *c.LowIncomeUnits > *c.TotalUnits {
			c.LowIncomeUnits = nil
		}
		if c.ModerateIncomeUnits != nil && *c.ModerateIncomeUnits > *c.TotalUnits {
			c.ModerateIncomeUnits = nil
		}
	}
	// A date cannot be both the deadline and the announcement.
	if !c.Deadline.IsZero() && c.Deadline == c.DateAnnounced {
		c.Deadline = housing.Date{}
	}
	if f.status != "" {
		f.evidence = p.Anchor
	}
	f.commitment = c
	return f
}

func setUnits(c *housing.Commitment, field Field, n int) {
	switch field {
	case FieldTotalUnits:
		c.TotalUnits = housing.IntPtr(n)
	case FieldLowIncome:
		c.LowIncomeUnits = housing.IntPtr(n)
	case FieldModerate:
		c.ModerateIncomeUnits = housing.IntPtr(n)
	}
}

// largestCount returns the largest in-range count captured by r.
func largestCount(r Rule, text string) (int, bool) {
	best, ok := 0, false
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil || n <= 0 || n >= MaxUnits {
			continue
		}
		if !ok || n > best {
			best, ok = n, true
		}
	}
	return best, ok
}

func firstDate(r Rule, text string) housing.Date {
	for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
		if d := parseDate(m[1]); !d.IsZero() {
			return d
		}
	}
	return housing.Date{}
}

func firstCapture(r Rule, text string) string {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

var trailingConnectors = []string{" of", " &", " and"}

func cleanName(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimRight(s, ".,;: ")
		for _, suffix := range trailingConnectors {
			trimmed = strings.TrimSuffix(trimmed, suffix)
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func preferenceFor(contentType string) Preference {
	switch strings.ToLower(contentType) {
	case "application/pdf":
		return PreferPDF
	case "text/html", "application/xhtml+xml":
		return PreferHTML
	}
	return AnyContent
}

// ordered returns the rules with those preferring pref first, table order otherwise.
func (e *Extractor) ordered(pref Preference) []Rule {
	rules := append([]Rule(nil), e.rules...)
	if pref == AnyContent {
		return rules
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Prefer == pref && rules[j].Prefer != pref
	})
	return rules
}

func dedupeKey(c housing.Commitment) string {
	units := ""
	if c.TotalUnits != nil {
		units = strconv.Itoa(*c.TotalUnits)
	}
	return string(c.Type) + "|" + units + "|" + c.Deadline.String()
}
