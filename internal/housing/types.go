package housing

import "time"

// CandidateSource identifies which lookup strategy proposed a website candidate.
type CandidateSource string

const (
	// SourceDirectory marks candidates scraped from the state government directory.
	SourceDirectory CandidateSource = "directory"
	// SourceSearch marks candidates returned by the web search fallback.
	SourceSearch CandidateSource = "search"
)

// Candidate is an unverified URL proposed for a municipality. Candidates are never persisted.
type Candidate struct {
	URL      string
	Title    string
	Source   CandidateSource
	RawScore int
}

// Municipality is one of New Jersey's municipalities and its resolved website.
type Municipality struct {
	ID                   int64
	Name                 string
	County               string
	OfficialWebsite      string // empty when unresolved
	ResolutionConfidence int
	LastResolvedAt       time.Time // zero when never resolved
}

// Resolved reports whether an official website has been selected.
func (m Municipality) Resolved() bool {
	return m.OfficialWebsite != ""
}

// Commitment is an affordable housing commitment extracted from a municipal document.
// Nil unit pointers and zero dates mean the value is unknown.
type Commitment struct {
	ID                  int64
	Municipality        string
	Type                CommitmentType
	TotalUnits          *int
	LowIncomeUnits      *int
	ModerateIncomeUnits *int
	Deadline            Date
	Developer           string
	LocationAddress     string
	SourceDocumentURL   string
	DateAnnounced       Date
	Confidence          float64
	Version             int
	SupersedesID        int64
	CreatedAt           time.Time
}

// TargetFields is the number of fields that contribute to extraction confidence.
const TargetFields = 9

// ExtractedFields counts populated fields other than the source document URL.
func (c Commitment) ExtractedFields() int {
	n := 0
	if c.Type != "" && c.Type != CommitmentUnknown {
		n++
	}
	for _, v := range []*int{c.TotalUnits, c.LowIncomeUnits, c.ModerateIncomeUnits} {
		if v != nil {
			n++
		}
	}
	if !c.Deadline.IsZero() {
		n++
	}
	if !c.DateAnnounced.IsZero() {
		n++
	}
	if c.Developer != "" {
		n++
	}
	if c.LocationAddress != "" {
		n++
	}
	return n
}

// PopulatedFields counts all populated target fields, provenance included.
func (c Commitment) PopulatedFields() int {
	n := c.ExtractedFields()
	if c.SourceDocumentURL != "" {
		n++
	}
	return n
}

// StatusUpdate records an observed status for a commitment.
type StatusUpdate struct {
	ID           int64
	CommitmentID int64
	Status       Status
	SourceType   string
	SourceURL    string
	VerifiedDate time.Time
	Notes        string
}

// ScrapedPage tracks the last fetch of a municipal page or document.
type ScrapedPage struct {
	URL              string
	Municipality     string
	ContentHash      string
	ContentType      string
	BlobURI          string
	CommitmentsFound int
	RunID            string
	ScrapedAt        time.Time
}

// Obligation is a state-published affordable housing obligation for one municipality and round.
type Obligation struct {
	Municipality    string
	County          string
	Round           string
	Region          string
	PresentNeed     *int
	ProspectiveNeed *int
	Households      *int
	UrbanAid        bool
	FIPSCode        string
	DCAMunicode     string
}

// CountyStats aggregates municipality and commitment totals for one county.
type CountyStats struct {
	County         string
	Municipalities int
	Resolved       int
	Commitments    int
	TotalUnits     int
}

// Stats is the aggregate view consumed by reporting.
type Stats struct {
	TableCounts map[string]int
	ByStatus    map[Status]int
	ByCounty    []CountyStats
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
