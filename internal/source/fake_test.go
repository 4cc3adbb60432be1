package source

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

type fakeFetcher struct {
	pages map[string]string
	calls []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (housing.FetchResponse, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return housing.FetchResponse{}, f.err
	}
	for prefix, body := range f.pages {
		if strings.HasPrefix(url, prefix) {
			return housing.FetchResponse{
				URL:        url,
				StatusCode: http.StatusOK,
				Headers:    http.Header{"Content-Type": {"text/html"}},
				Body:       []byte(body),
			}, nil
		}
	}
	return housing.FetchResponse{}, &housing.TransientSourceError{Source: "fetch", URL: url, StatusCode: http.StatusNotFound, Err: errors.New("not found")}
}

type fakeSearcher struct {
	results []SearchResult
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}
