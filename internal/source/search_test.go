package source

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func TestQuery(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Newark NJ official website government", Query(" Newark "))
}

func TestSearchAdapterFiltersAndLimits(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{results: []SearchResult{
		{URL: "https://en.wikipedia.org/wiki/Newark,_New_Jersey", Title: "Newark - Wikipedia"},
		{URL: "https://www.newarknj.gov/", Title: "City of Newark"},
		{URL: "https://www.facebook.com/CityofNewark", Title: "Facebook"},
		{URL: "https://newark-nj.com/", Title: "Newark NJ"},
		{URL: "https://www.rutgers.edu/newark", Title: "Rutgers Newark"},
	}}
	a := NewSearchAdapter(s, NewBlocklist([]string{"*.wikipedia.org", "*.facebook.com"}), 2, zap.NewNop())

	got := a.Find(context.Background(), "Newark")
	require.Equal(t, []housing.Candidate{
		{URL: "https://www.newarknj.gov/", Title: "City of Newark", Source: housing.SourceSearch},
		{URL: "https://newark-nj.com/", Title: "Newark NJ", Source: housing.SourceSearch},
	}, got)
	require.Equal(t, []string{"Newark NJ official website government"}, s.queries)
}

func TestSearchAdapterFailureDegradesToEmpty(t *testing.T) {
	t.Parallel()

	a := NewSearchAdapter(&fakeSearcher{err: errors.New("429 too many requests")}, nil, 0, nil)
	require.Empty(t, a.Find(context.Background(), "Newark"))
}

const ddgHTML = `<html><body>
<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.newarknj.gov%2F&rut=abc">City of Newark, NJ</a>
<a class="result__url" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.newarknj.gov%2Fdepartments&rut=def">newarknj.gov/departments</a>
<a href="/url?q=https://newark-nj.com/&sa=U">Newark NJ Guide</a>
<a href="https://duckduckgo.com/settings">Settings</a>
<a href="javascript:void(0)">More</a>
<a href="https://www.essexcountynj.org/">Essex County</a>
</body></html>`

func TestWebSearcherParsesResults(t *testing.T) {
	t.Parallel()

	endpoint := "https://html.duckduckgo.com/html/"
	f := &fakeFetcher{pages: map[string]string{endpoint: ddgHTML}}
	s := NewWebSearcher(f, endpoint)

	got, err := s.Search(context.Background(), Query("Newark"))
	require.NoError(t, err)
	require.Equal(t, []SearchResult{
		{URL: "https://www.newarknj.gov/", Title: "City of Newark, NJ"},
		{URL: "https://newark-nj.com/", Title: "Newark NJ Guide"},
		{URL: "https://www.essexcountynj.org/", Title: "Essex County"},
	}, got)

	require.Len(t, f.calls, 1)
	requested, err := url.Parse(f.calls[0])
	require.NoError(t, err)
	require.Equal(t, "Newark NJ official website government", requested.Query().Get("q"))
}

func TestWebSearcherFetchError(t *testing.T) {
	t.Parallel()

	s := NewWebSearcher(&fakeFetcher{err: errors.New("timeout")}, "https://html.duckduckgo.com/html/")
	_, err := s.Search(context.Background(), "Newark NJ")
	require.Error(t, err)
}

func TestUnwrapRedirect(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://www.hobokennj.gov/", unwrapRedirect("https://www.google.com/url?q=https://www.hobokennj.gov/&sa=U"))
	require.Equal(t, "https://www.hobokennj.gov/", unwrapRedirect("https://duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.hobokennj.gov%2F"))
	require.Equal(t, "https://www.hobokennj.gov/", unwrapRedirect("https://www.hobokennj.gov/"))
}
