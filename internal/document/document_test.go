package document

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

type stubFetcher struct {
	resp  housing.FetchResponse
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (housing.FetchResponse, error) {
	s.calls++
	if s.err != nil {
		return housing.FetchResponse{}, s.err
	}
	r := s.resp
	if r.URL == "" {
		r.URL = url
	}
	return r, nil
}

type stubLimiter struct {
	waited []string
	err    error
}

func (l *stubLimiter) Wait(_ context.Context, rawURL string) error {
	l.waited = append(l.waited, rawURL)
	return l.err
}

type stubPDF struct {
	text string
	err  error
}

func (p stubPDF) Text(context.Context, []byte) (string, error) { return p.text, p.err }

type alwaysPromote bool

func (a alwaysPromote) ShouldPromote(housing.FetchResponse) bool { return bool(a) }

func response(ct string, body string) housing.FetchResponse {
	return housing.FetchResponse{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {ct}},
		Body:       []byte(body),
	}
}

func TestFetchHTMLStripsBoilerplate(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Planning</title><style>p{}</style></head><body>
<nav><a href="/">Home</a></nav>
<header>Township of Maplewood</header>
<main><h1>Affordable Housing</h1><p>The   settlement agreement requires
120 affordable units.</p><script>track()</script></main>
<footer>Copyright</footer></body></html>`
	limiter := &stubLimiter{}
	f, err := NewFetcher(&stubFetcher{resp: response("text/html; charset=utf-8", page)}, Options{Limiter: limiter})
	require.NoError(t, err)

	doc, ok := f.Fetch(context.Background(), "https://www.maplewoodnj.gov/housing")
	require.True(t, ok)
	assert.Equal(t, KindHTML, doc.ContentType)
	assert.Equal(t, "Affordable Housing\nThe settlement agreement requires 120 affordable units.", doc.Text)
	assert.Equal(t, []string{"https://www.maplewoodnj.gov/housing"}, limiter.waited)
	assert.False(t, doc.IsPDF())
}

func TestFetchFailureIsEmptySignal(t *testing.T) {
	t.Parallel()

	http404 := &stubFetcher{err: &housing.TransientSourceError{Source: "fetch", URL: "u", StatusCode: 404}}
	f, err := NewFetcher(http404, Options{})
	require.NoError(t, err)
	doc, ok := f.Fetch(context.Background(), "https://example.org/missing")
	assert.False(t, ok)
	assert.Empty(t, doc.Text)
}

func TestFetchLimiterAbortSkipsRequest(t *testing.T) {
	t.Parallel()

	stub := &stubFetcher{resp: response("text/html", "<p>x</p>")}
	f, err := NewFetcher(stub, Options{Limiter: &stubLimiter{err: context.Canceled}})
	require.NoError(t, err)
	_, ok := f.Fetch(context.Background(), "https://example.org/")
	assert.False(t, ok)
	assert.Zero(t, stub.calls)
}

func TestFetchPDF(t *testing.T) {
	t.Parallel()

	stub := &stubFetcher{resp: response("application/pdf", "%PDF-1.7 ...")}
	f, err := NewFetcher(stub, Options{PDF: stubPDF{text: "  Total obligation: 250 units  "}})
	require.NoError(t, err)
	doc, ok := f.Fetch(context.Background(), "https://example.org/hefsp.pdf")
	require.True(t, ok)
	assert.True(t, doc.IsPDF())
	assert.Equal(t, "Total obligation: 250 units", doc.Text)
	assert.Equal(t, []byte("%PDF-1.7 ..."), doc.Raw)
}

func TestFetchPDFConversionFailure(t *testing.T) {
	t.Parallel()

	stub := &stubFetcher{resp: response("application/pdf", "%PDF-1.7")}
	f, err := NewFetcher(stub, Options{PDF: stubPDF{err: errors.New("broken xref")}})
	require.NoError(t, err)
	_, ok := f.Fetch(context.Background(), "https://example.org/a.pdf")
	assert.False(t, ok)

	f, err = NewFetcher(stub, Options{})
	require.NoError(t, err)
	_, ok = f.Fetch(context.Background(), "https://example.org/a.pdf")
	assert.False(t, ok)
}

func TestFetchUnsupportedAndEmpty(t *testing.T) {
	t.Parallel()

	f, err := NewFetcher(&stubFetcher{resp: response("image/png", "\x89PNG")}, Options{})
	require.NoError(t, err)
	_, ok := f.Fetch(context.Background(), "https://example.org/logo.png")
	assert.False(t, ok)

	f, err = NewFetcher(&stubFetcher{resp: response("text/html", "<html><script>x()</script></html>")}, Options{})
	require.NoError(t, err)
	_, ok = f.Fetch(context.Background(), "https://example.org/")
	assert.False(t, ok)
}

func TestFetchPromotesToRenderer(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{resp: response("text/html", `<div id="root"></div>`)}
	renderer := &stubFetcher{resp: response("text/html", `<div id="root"><p>Housing Element and Fair Share Plan</p></div>`)}
	f, err := NewFetcher(static, Options{Renderer: renderer, Promoter: alwaysPromote(true)})
	require.NoError(t, err)

	doc, ok := f.Fetch(context.Background(), "https://example.org/")
	require.True(t, ok)
	assert.True(t, doc.Rendered)
	assert.Equal(t, "Housing Element and Fair Share Plan", doc.Text)
	assert.Equal(t, 1, renderer.calls)

	_, err = NewFetcher(static, Options{Renderer: renderer})
	require.Error(t, err)
}

func TestFetchRendererFailureFallsBack(t *testing.T) {
	t.Parallel()

	static := &stubFetcher{resp: response("text/html", `<p>Static text</p>`)}
	renderer := &stubFetcher{err: errors.New("chrome not found")}
	f, err := NewFetcher(static, Options{Renderer: renderer, Promoter: alwaysPromote(true)})
	require.NoError(t, err)
	doc, ok := f.Fetch(context.Background(), "https://example.org/")
	require.True(t, ok)
	assert.False(t, doc.Rendered)
	assert.Equal(t, "Static text", doc.Text)
}

func TestClassifySniffs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindPDF, classify(housing.FetchResponse{Body: []byte("%PDF-1.4")}))
	assert.Equal(t, KindHTML, classify(housing.FetchResponse{Body: []byte("<!DOCTYPE html><html></html>")}))
	assert.Equal(t, KindPDF, classify(housing.FetchResponse{
		URL:     "https://example.org/plan.PDF",
		Headers: http.Header{"Content-Type": {"application/octet-stream"}},
		Body:    []byte{0x00, 0x01},
	}))
	assert.Equal(t, KindText, classify(response("text/plain; charset=utf-8", "x")))
}

func TestDecodeCharset(t *testing.T) {
	t.Parallel()

	latin1, err := charmap.Windows1252.NewEncoder().String("Café Borough")
	require.NoError(t, err)

	assert.Equal(t, "Café Borough", string(decodeCharset("text/html; charset=windows-1252", []byte(latin1))))
	meta := `<meta charset="iso-8859-1"><p>` + latin1 + `</p>`
	assert.Contains(t, string(decodeCharset("text/html", []byte(meta))), "Café Borough")
	assert.Equal(t, "plain", string(decodeCharset("text/html; charset=utf-8", []byte("plain"))))
	assert.Equal(t, "plain", string(decodeCharset("text/html; charset=bogus", []byte("plain"))))
}
