package extract

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

const docURL = "https://www.maplewoodnj.gov/DocumentCenter/View/12/HEFSP.pdf"

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(Config{WindowSentences: DefaultWindowSentences})
	require.NoError(t, err)
	return e
}

func TestExtractSettlementAgreement(t *testing.T) {
	t.Parallel()

	text := "Background on the township. The settlement agreement requires 120 affordable units, " +
		"60 low-income and 60 moderate-income, by 2027. Questions may be directed to the clerk."
	res, err := newExtractor(t).Extract(text, docURL, "text/html")
	require.NoError(t, err)

	want := []housing.Commitment{{
		Type:                housing.CommitmentCOAHSettlement,
		TotalUnits:          housing.IntPtr(120),
		LowIncomeUnits:      housing.IntPtr(60),
		ModerateIncomeUnits: housing.IntPtr(60),
		Deadline:            housing.YearOnly(2027),
		SourceDocumentURL:   docURL,
		Confidence:          6.0 / 9.0,
	}}
	if diff := cmp.Diff(want, res.Commitments); diff != "" {
		t.Fatalf("commitments mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, res.Discarded)
	assert.Empty(t, res.Statuses)
}

func TestExtractDiscardsTypeOnlyRecords(t *testing.T) {
	t.Parallel()

	res, err := newExtractor(t).Extract("The township entered into a COAH settlement.", docURL, "text/html")
	require.NoError(t, err)
	assert.Empty(t, res.Commitments)
	assert.Equal(t, 1, res.Discarded)
}

func TestExtractRequiresProvenance(t *testing.T) {
	t.Parallel()

	_, err := newExtractor(t).Extract("The settlement agreement requires 120 affordable units.", "  ", "")
	require.ErrorIs(t, err, housing.ErrMissingProvenance)
}

func TestExtractIsDeterministic(t *testing.T) {
	t.Parallel()

	text := "The court order requires 75 affordable units by June 2028. " +
		"The redeveloper is Prism Capital Partners. Separately, the redevelopment plan adds 40 affordable units."
	e := newExtractor(t)
	first, err := e.Extract(text, docURL, "application/pdf")
	require.NoError(t, err)
	second, err := e.Extract(text, docURL, "application/pdf")
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("extraction not deterministic:\n%s", diff)
	}
	require.NotEmpty(t, first.Commitments)
	for _, c := range first.Commitments {
		assert.Equal(t, docURL, c.SourceDocumentURL)
	}
}

func TestExtractTypePrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want housing.CommitmentType
	}{
		{"The COAH plan and the court order require 50 affordable units.", housing.CommitmentCourtOrder},
		{"Under the consent judgment the township will zone for 50 affordable units.", housing.CommitmentCourtOrder},
		{"The redevelopment plan and settlement agreement provide 50 affordable units.", housing.CommitmentCOAHSettlement},
		{"A voluntary inclusionary zoning ordinance within the redevelopment area yields 50 affordable units.", housing.CommitmentVoluntary},
		{"The redevelopment plan provides 50 affordable units.", housing.CommitmentRedevelopmentPlan},
		{"The project provides 50 affordable units at 10 Main Street.", housing.CommitmentUnknown},
	}
	e := newExtractor(t)
	for _, tc := range cases {
		res, err := e.Extract(tc.text, docURL, "text/html")
		require.NoError(t, err, tc.text)
		require.Len(t, res.Commitments, 1, tc.text)
		assert.Equal(t, tc.want, res.Commitments[0].Type, tc.text)
	}
}

func TestExtractDeduplicatesKeepingMostComplete(t *testing.T) {
	t.Parallel()

	filler := strings.Repeat("The council met on Tuesday. ", 5)
	text := "The settlement agreement requires 120 affordable units by 2027. " + filler +
		"The settlement agreement requires 120 affordable units by 2027. The developer is Prism Capital Partners."
	res, err := newExtractor(t).Extract(text, docURL, "text/html")
	require.NoError(t, err)
	require.Len(t, res.Commitments, 1)
	assert.Equal(t, "Prism Capital Partners", res.Commitments[0].Developer)
	assert.InDelta(t, 5.0/9.0, res.Commitments[0].Confidence, 1e-9)
	assert.Equal(t, 2, res.Passages)
}

func TestExtractZeroWindowKeepsAnchorSentenceOnly(t *testing.T) {
	t.Parallel()

	e, err := New(Config{})
	require.NoError(t, err)
	text := "The settlement agreement requires 120 affordable units by 2027. The developer is Prism Capital Partners."
	res, err := e.Extract(text, docURL, "text/html")
	require.NoError(t, err)
	require.Len(t, res.Commitments, 1)
	assert.Empty(t, res.Commitments[0].Developer)
}

func TestExtractDeveloperStopsAtSentenceEnd(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"The developer is Prism Capital Partners. It will build 120 affordable units.":          "Prism Capital Partners",
		"Built by Hovnanian Enterprises Inc. The project adds 80 affordable units.":             "Hovnanian Enterprises Inc",
		"The redeveloper is St.James Housing. The redevelopment plan adds 40 affordable units.": "St.James Housing",
	}
	e := newExtractor(t)
	for text, want := range cases {
		res, err := e.Extract(text, docURL, "text/html")
		require.NoError(t, err, text)
		require.Len(t, res.Commitments, 1, text)
		assert.Equal(t, want, res.Commitments[0].Developer, text)
	}
}

func TestExtractStatusAndAddress(t *testing.T) {
	t.Parallel()

	text := "Habitat for Humanity broke ground on 24 affordable units at 150 Orange Road in March 2024."
	res, err := newExtractor(t).Extract(text, docURL, "text/html")
	require.NoError(t, err)
	require.Len(t, res.Commitments, 1)
	c := res.Commitments[0]
	assert.Equal(t, 24, *c.TotalUnits)
	assert.Equal(t, "150 Orange Road", c.LocationAddress)
	assert.Equal(t, housing.CommitmentUnknown, c.Type)
	require.Equal(t, []StatusDraft{{Index: 0, Status: housing.StatusUnderConstruction, Evidence: text}}, res.Statuses)
}

func TestExtractStatusPrecedence(t *testing.T) {
	t.Parallel()

	text := "The redevelopment plan for 60 affordable units was approved in 2021 but the project has stalled."
	res, err := newExtractor(t).Extract(text, docURL, "text/html")
	require.NoError(t, err)
	require.Len(t, res.Statuses, 1)
	assert.Equal(t, housing.StatusStalled, res.Statuses[0].Status)
	assert.Equal(t, housing.YearOnly(2021), res.Commitments[0].DateAnnounced)
}

func TestExtractUnitBounds(t *testing.T) {
	t.Parallel()

	res, err := newExtractor(t).Extract("The COAH plan lists 12000 affordable units.", docURL, "text/html")
	require.NoError(t, err)
	assert.Empty(t, res.Commitments)
	assert.Equal(t, 1, res.Discarded)
}

func TestExtractIncomeTiersNeverExceedTotal(t *testing.T) {
	t.Parallel()

	text := "The redevelopment plan calls for 20 affordable units, including 30 low-income units and 8 moderate-income units."
	res, err := newExtractor(t).Extract(text, docURL, "text/html")
	require.NoError(t, err)
	require.Len(t, res.Commitments, 1)
	c := res.Commitments[0]
	assert.Equal(t, 20, *c.TotalUnits)
	assert.Nil(t, c.LowIncomeUnits)
	assert.Equal(t, 8, *c.ModerateIncomeUnits)
}

func TestExtractPrefersRulesByContentType(t *testing.T) {
	t.Parallel()

	text := "The COAH Housing Element provides 40 affordable units toward a fair share obligation of 250."
	e := newExtractor(t)

	pdf, err := e.Extract(text, docURL, "application/pdf")
	require.NoError(t, err)
	require.Len(t, pdf.Commitments, 1)
	assert.Equal(t, 250, *pdf.Commitments[0].TotalUnits)

	html, err := e.Extract(text, docURL, "text/html")
	require.NoError(t, err)
	require.Len(t, html.Commitments, 1)
	assert.Equal(t, 40, *html.Commitments[0].TotalUnits)
}

func TestExtractDatesByCue(t *testing.T) {
	t.Parallel()

	text := "The settlement agreement was approved on March 3, 2024 and requires 90 affordable units no later than December 31, 2030."
	res, err := newExtractor(t).Extract(text, docURL, "text/html")
	require.NoError(t, err)
	require.Len(t, res.Commitments, 1)
	c := res.Commitments[0]
	assert.Equal(t, housing.Date{Year: 2024, Month: 3, Day: 3}, c.DateAnnounced)
	assert.Equal(t, housing.Date{Year: 2030, Month: 12, Day: 31}, c.Deadline)
}

func TestExtractNoKeywords(t *testing.T) {
	t.Parallel()

	res, err := newExtractor(t).Extract("Leaf collection begins Monday.", docURL, "text/html")
	require.NoError(t, err)
	assert.Empty(t, res.Commitments)
	assert.Zero(t, res.Passages)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	var cfgErr *housing.ConfigurationError
	_, err := New(Config{MinFields: 10})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "extract.min_fields", cfgErr.Field)

	_, err = New(Config{WindowSentences: -1})
	require.ErrorAs(t, err, &cfgErr)

	_, err = New(Config{Rules: []Rule{{Name: "broken", Field: FieldTotalUnits, Pattern: rx(`units`)}}})
	require.Error(t, err)
}

func TestMinFieldsThreshold(t *testing.T) {
	t.Parallel()

	e, err := New(Config{MinFields: 1})
	require.NoError(t, err)
	res, err := e.Extract("The township entered into a COAH settlement.", docURL, "")
	require.NoError(t, err)
	require.Len(t, res.Commitments, 1)
	assert.InDelta(t, 2.0/9.0, res.Commitments[0].Confidence, 1e-9)
}
