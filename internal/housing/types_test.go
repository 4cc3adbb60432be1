package housing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitmentFieldCounts(t *testing.T) {
	t.Parallel()

	c := Commitment{Type: CommitmentUnknown, SourceDocumentURL: "https://example.nj.us/plan.pdf"}
	require.Zero(t, c.ExtractedFields())
	require.Equal(t, 1, c.PopulatedFields())

	c.Type = CommitmentCourtOrder
	c.TotalUnits = IntPtr(120)
	c.Deadline = YearOnly(2027)
	c.Developer = "Acme Homes"
	require.Equal(t, 4, c.ExtractedFields())
	require.Equal(t, 5, c.PopulatedFields())
}

func TestVocabularies(t *testing.T) {
	t.Parallel()

	typ, err := ParseCommitmentType(" COAH_Settlement ")
	require.NoError(t, err)
	require.Equal(t, CommitmentCOAHSettlement, typ)

	typ, err = ParseCommitmentType("")
	require.NoError(t, err)
	require.Equal(t, CommitmentUnknown, typ)

	_, err = ParseCommitmentType("builders_remedy")
	require.Error(t, err)

	status, err := ParseStatus("Under_Construction")
	require.NoError(t, err)
	require.Equal(t, StatusUnderConstruction, status)

	_, err = ParseStatus("almost done")
	require.Error(t, err)
	require.Len(t, Statuses, 8)
}

func TestErrorTypes(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	var err error = fmt.Errorf("directory lookup: %w", &TransientSourceError{Source: "directory", URL: "https://www.nj.gov", Err: cause})
	var transient *TransientSourceError
	require.ErrorAs(t, err, &transient)
	require.ErrorIs(t, err, cause)

	err = fmt.Errorf("insert commitment: %w", &DanglingReferenceError{Municipality: "Nowhere", SourceURL: "https://x.nj.us/a.pdf"})
	var dangling *DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	require.Contains(t, err.Error(), "Nowhere")

	require.True(t, IsTransientHTTPStatus(503))
	require.True(t, IsTransientHTTPStatus(429))
	require.False(t, IsTransientHTTPStatus(404))
}

func TestRunSummaryMerge(t *testing.T) {
	t.Parallel()

	total := RunSummary{Processed: 1, Resolved: 1}
	total.Merge(RunSummary{Processed: 2, Unresolved: 1, Resolved: 1, Accepted: 3, LowConfidenceDiscards: 2})
	require.Equal(t, 3, total.Processed)
	require.Equal(t, 2, total.Resolved)
	require.Equal(t, 1, total.Unresolved)
	require.Equal(t, 3, total.Accepted)
	require.Equal(t, 2, total.LowConfidenceDiscards)
	require.Zero(t, total.Failures)
}
