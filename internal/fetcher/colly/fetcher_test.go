package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func TestFetcherBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", RespectRobots: false, Timeout: time.Second, MaxBodyBytes: 1024})
	collector := f.buildCollector()
	require.Equal(t, "coverage-agent", collector.UserAgent)
	require.True(t, collector.IgnoreRobotsTxt)
	require.True(t, collector.AllowURLRevisit)
	require.Equal(t, 1024, collector.MaxBodySize)

	strict := New(Config{RespectRobots: true}).buildCollector()
	require.False(t, strict.IgnoreRobotsTxt)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	var result housing.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Equal(t, acceptHeader, collyReq.Headers.Get("Accept"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("body"),
		Headers:    &http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://www.newarknj.gov/")},
	})
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, "body", string(result.Body))
	require.Equal(t, "text/html", result.ContentType())

	hooks.onError(&colly.Response{StatusCode: http.StatusNotFound}, errors.New("Not Found"))
	require.EqualError(t, fetchErr, "Not Found")
	require.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestFetchAgainstServer(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/plan", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Fair share plan</body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{Timeout: 2 * time.Second})

	resp, err := f.Fetch(context.Background(), srv.URL+"/plan")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(resp.Body), "Fair share plan")

	again, err := f.Fetch(context.Background(), srv.URL+"/plan")
	require.NoError(t, err, "revisiting a URL within a run must be allowed")
	require.Equal(t, resp.Body, again.Body)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	var transient *housing.TransientSourceError
	require.ErrorAs(t, err, &transient)
	require.Equal(t, http.StatusNotFound, transient.StatusCode)
}

func TestFetchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Timeout: time.Second}).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
