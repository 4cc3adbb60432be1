package housing

import "time"

// RunSummary counts outcomes of one batch run. Unresolved municipalities and
// low-confidence discards are outcomes, not failures.
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	EndedAt   time.Time

	Processed  int
	Resolved   int
	Unresolved int

	PagesFetched  int
	PagesSkipped  int
	FetchFailures int

	Accepted              int
	Duplicates            int
	LowConfidenceDiscards int
	StatusUpdates         int

	DanglingReferences int
	Failures           int
}

// Merge adds the counters of other into s.
func (s *RunSummary) Merge(other RunSummary) {
	s.Processed += other.Processed
	s.Resolved += other.Resolved
	s.Unresolved += other.Unresolved
	s.PagesFetched += other.PagesFetched
	s.PagesSkipped += other.PagesSkipped
	s.FetchFailures += other.FetchFailures
	s.Accepted += other.Accepted
	s.Duplicates += other.Duplicates
	s.LowConfidenceDiscards += other.LowConfidenceDiscards
	s.StatusUpdates += other.StatusUpdates
	s.DanglingReferences += other.DanglingReferences
	s.Failures += other.Failures
}
