package scorer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func dir(url string) housing.Candidate {
	return housing.Candidate{URL: url, Source: housing.SourceDirectory}
}

func search(url string) housing.Candidate {
	return housing.Candidate{URL: url, Source: housing.SourceSearch}
}

func TestScoreRubric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		c     housing.Candidate
		muni  string
		score int
	}{
		{"gov with name", dir("https://www.newarknj.gov/"), "Newark", 10 + 8 + 5},
		{"nj.us beats us", search("http://www.edison.nj.us/"), "Edison Township", 10 + 8 + 4},
		{"plain us", search("https://montclair.us"), "Montclair Township", 10 + 8 + 3},
		{"org", search("https://www.hobokennj.org/"), "Hoboken City", 10 + 8 + 2},
		{"entity-first name form", dir("https://www.edisonnj.org/"), "Township of Edison", 10 + 8 + 2},
		{"commercial with name", search("https://newark-nj.com/"), "Newark", 8 - 2},
		{"commercial net", search("https://tapinto.net/newark"), "Camden", -2},
		{"entity keyword in path", search("https://www.nj.gov/township/info"), "Camden", 10 + 5 + 3},
		{"entity keyword in title", housing.Candidate{URL: "https://example.org/", Title: "Borough of Example", Source: housing.SourceSearch}, "Camden", 10 + 2 + 3},
		{"no signal", search("https://example.edu/"), "Camden", 0},
		{"scheme-less", dir("trentonnj.org"), "Trenton City", 10 + 8 + 2},
		{"garbage", dir("://"), "Trenton", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.score, Score(tt.c, tt.muni))
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	c := search("https://www.jerseycitynj.gov/cityhall")
	first := Score(c, "Jersey City")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Score(c, "Jersey City"))
	}
}

func TestSelectNewarkDirectoryBeatsCommercialSearch(t *testing.T) {
	t.Parallel()

	res := Select([]housing.Candidate{search("https://newark-nj.com/"), dir("https://newarknj.gov/")}, "Newark", nil)
	require.True(t, res.Resolved)
	require.Equal(t, "https://newarknj.gov/", res.Best.URL)
	require.Equal(t, housing.SourceDirectory, res.Best.Source)
	require.Len(t, res.Scored, 2)
}

func TestSelectTieBreaks(t *testing.T) {
	t.Parallel()

	// Same score: directory beats search regardless of length.
	res := Select([]housing.Candidate{search("https://cape.nj.us/"), dir("https://www.capemaycity.nj.us/")}, "Lower", nil)
	require.Equal(t, Score(search("https://cape.nj.us/"), "Lower"), Score(dir("https://www.capemaycity.nj.us/"), "Lower"))
	require.Equal(t, housing.SourceDirectory, res.Best.Source)

	// Same score and source: shorter host wins.
	res = Select([]housing.Candidate{dir("https://www.newarknj.gov/"), dir("https://newarknj.gov/")}, "Newark", nil)
	require.Equal(t, "https://newarknj.gov/", res.Best.URL)

	// Priority order is configurable.
	res = Select(
		[]housing.Candidate{dir("https://www.capemaycity.nj.us/"), search("https://cape.nj.us/")},
		"Lower",
		[]housing.CandidateSource{housing.SourceSearch, housing.SourceDirectory},
	)
	require.Equal(t, housing.SourceSearch, res.Best.Source)
}

func TestSelectIsOrderIndependent(t *testing.T) {
	t.Parallel()

	cands := []housing.Candidate{
		dir("https://www.newarknj.gov/"),
		search("https://newarknj.gov/"),
		search("https://newark-nj.com/"),
		search("https://www.essexcountynj.org/"),
		dir("https://newarknj.gov/"),
	}
	want := Select(cands, "Newark", nil).Best
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]housing.Candidate(nil), cands...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, Select(shuffled, "Newark", nil).Best)
	}
	require.Equal(t, "https://newarknj.gov/", want.URL)
	require.Equal(t, housing.SourceDirectory, want.Source)
}

func TestSelectUnresolved(t *testing.T) {
	t.Parallel()

	res := Select(nil, "Nowhere", nil)
	require.False(t, res.Resolved)
	require.Empty(t, res.Scored)

	res = Select([]housing.Candidate{search("https://tapinto.net/x"), search("https://example.edu/")}, "Camden", nil)
	require.False(t, res.Resolved)
	require.Len(t, res.Scored, 2)
}
