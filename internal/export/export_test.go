package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func TestWebsitesYAML(t *testing.T) {
	t.Parallel()

	resolved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := Websites(&buf, []housing.Municipality{
		{Name: "Pine Valley Borough", LastResolvedAt: resolved},
		{Name: "Newark City", OfficialWebsite: "https://www.newarknj.gov", ResolutionConfidence: 23, LastResolvedAt: resolved},
	})
	require.NoError(t, err)

	want := `municipalities:
  Newark City:
    official_website: https://www.newarknj.gov
    resolution_confidence: 23
    last_updated: "2026-03-01T12:00:00Z"
  Pine Valley Borough:
    official_website: null
    resolution_confidence: 0
    last_updated: "2026-03-01T12:00:00Z"
`
	assert.Equal(t, want, buf.String())

	doc, err := ReadWebsites(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Municipalities, 2)
	assert.Nil(t, doc.Municipalities["Pine Valley Borough"].OfficialWebsite)
	assert.Equal(t, "https://www.newarknj.gov", *doc.Municipalities["Newark City"].OfficialWebsite)
}

func TestWebsitesNeverResolved(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Websites(&buf, []housing.Municipality{{Name: "Edison Township"}}))
	assert.Contains(t, buf.String(), "last_updated: null")
}

func TestCommitmentsCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Commitments(&buf, []housing.Commitment{
		{
			ID: 5, Municipality: "Newark City", Type: housing.CommitmentRedevelopmentPlan,
			SourceDocumentURL: "https://www.newarknj.gov/plan.pdf", Confidence: 3.0 / 9.0, Version: 1,
			TotalUnits: housing.IntPtr(300), DateAnnounced: housing.Date{Year: 2025, Month: time.May},
		},
		{
			ID: 2, Municipality: "Cherry Hill Township", Type: housing.CommitmentCOAHSettlement,
			SourceDocumentURL: "https://chnj.gov/settlement.pdf", Confidence: 6.0 / 9.0, Version: 2, SupersedesID: 1,
			TotalUnits: housing.IntPtr(120), LowIncomeUnits: housing.IntPtr(60), ModerateIncomeUnits: housing.IntPtr(60),
			Deadline: housing.YearOnly(2027), Developer: "Acme Homes, LLC",
		},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CommitmentHeader, records[0])
	assert.Equal(t, []string{
		"Cherry Hill Township", "https://chnj.gov/settlement.pdf", "2", "coah_settlement",
		"120", "60", "60", "2027", "", "Acme Homes, LLC", "", "0.667", "2", "1",
	}, records[1])
	assert.Equal(t, []string{
		"Newark City", "https://www.newarknj.gov/plan.pdf", "5", "redevelopment_plan",
		"300", "", "", "", "2025-05", "", "", "0.333", "1", "",
	}, records[2])
}

func TestCommitmentsCSVEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Commitments(&buf, nil))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
