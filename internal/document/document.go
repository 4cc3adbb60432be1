// Package document retrieves municipal pages and documents and reduces them to plain text
// for the commitment extractor.
package document

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/metrics"
)

// Content kinds reported on a Document.
const (
	KindHTML = "text/html"
	KindPDF  = "application/pdf"
	KindText = "text/plain"
)

// Document is the usable result of a fetch.
type Document struct {
	// URL is the final URL after redirects.
	URL         string
	ContentType string
	Text        string
	Raw         []byte
	// Rendered is true when the HTML came from the headless renderer.
	Rendered bool
}

// IsPDF reports whether the document was converted from PDF.
func (d Document) IsPDF() bool { return d.ContentType == KindPDF }

// Limiter enforces the per-host minimum delay between fetches.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Promoter decides whether an HTML response should be re-rendered headlessly.
type Promoter interface {
	ShouldPromote(resp housing.FetchResponse) bool
}

// PDFConverter converts PDF bytes to text.
type PDFConverter interface {
	Text(ctx context.Context, pdf []byte) (string, error)
}

// Options wires the optional collaborators of a Fetcher.
type Options struct {
	Limiter  Limiter
	PDF      PDFConverter
	Renderer housing.Fetcher
	Promoter Promoter
	Logger   *zap.Logger
}

// Fetcher implements fetch(url) -> text, content_type.
type Fetcher struct {
	http     housing.Fetcher
	limiter  Limiter
	pdf      PDFConverter
	renderer housing.Fetcher
	promoter Promoter
	logger   *zap.Logger
}

// NewFetcher builds a document Fetcher over an HTTP fetcher.
func NewFetcher(fetcher housing.Fetcher, opts Options) (*Fetcher, error) {
	if fetcher == nil {
		return nil, errors.New("http fetcher is required")
	}
	if opts.Renderer != nil && opts.Promoter == nil {
		return nil, errors.New("renderer requires a promoter")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		http:     fetcher,
		limiter:  opts.Limiter,
		pdf:      opts.PDF,
		renderer: opts.Renderer,
		promoter: opts.Promoter,
		logger:   logger,
	}, nil
}

// Fetch retrieves url and converts it to text. It never returns an error: any failure
// (network, HTTP status, unsupported or unparseable content, empty text) is logged and
// reported as ok == false, which callers treat as a document with zero commitments.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Document, bool) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			f.logger.Debug("fetch wait aborted", zap.String("url", url), zap.Error(err))
			return Document{}, false
		}
	}

	resp, err := f.http.Fetch(ctx, url)
	if err != nil {
		f.logger.Warn("document fetch failed", zap.String("url", url), zap.Error(err))
		metrics.ObserveFetch(url, "", "failed", 0)
		return Document{}, false
	}
	if resp.URL == "" {
		resp.URL = url
	}

	kind := classify(resp)
	doc := Document{URL: resp.URL, ContentType: kind, Raw: resp.Body}

	if kind == KindHTML && f.renderer != nil && f.promoter.ShouldPromote(resp) {
		rendered, rerr := f.renderer.Fetch(ctx, url)
		switch {
		case rerr != nil:
			f.logger.Warn("headless render failed, using static html", zap.String("url", url), zap.Error(rerr))
		case len(rendered.Body) > 0:
			doc.Raw = rendered.Body
			doc.Rendered = true
			resp = rendered
		}
	}

	switch kind {
	case KindHTML:
		doc.Text, err = HTMLText(decodeCharset(resp.Headers.Get("Content-Type"), doc.Raw))
	case KindPDF:
		if f.pdf == nil {
			err = errors.New("no pdf converter configured")
			break
		}
		doc.Text, err = f.pdf.Text(ctx, doc.Raw)
	case KindText:
		doc.Text = string(decodeCharset(resp.Headers.Get("Content-Type"), doc.Raw))
	default:
		err = errors.New("unsupported content type " + kind)
	}
	if err != nil {
		f.logger.Warn("document conversion failed",
			zap.String("url", url),
			zap.String("content_type", kind),
			zap.Error(err),
		)
		metrics.ObserveFetch(url, kind, "unparseable", len(doc.Raw))
		return Document{}, false
	}

	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		metrics.ObserveFetch(url, kind, "empty", len(doc.Raw))
		return Document{}, false
	}
	metrics.ObserveFetch(url, kind, "ok", len(doc.Raw))
	return doc, true
}

// classify maps a response to a content kind, sniffing the body when the header is
// missing or generic.
func classify(resp housing.FetchResponse) string {
	ct := resp.ContentType()
	switch ct {
	case "text/html", "application/xhtml+xml":
		return KindHTML
	case "application/pdf", "application/x-pdf":
		return KindPDF
	case "text/plain":
		return KindText
	case "", "application/octet-stream", "binary/octet-stream":
		if bytes.HasPrefix(resp.Body, []byte("%PDF-")) {
			return KindPDF
		}
		sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(resp.Body))
		switch sniffed {
		case "text/html":
			return KindHTML
		case "text/plain":
			return KindText
		}
		if strings.HasSuffix(strings.ToLower(resp.URL), ".pdf") {
			return KindPDF
		}
		return sniffed
	}
	return ct
}

var metaCharset = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-:]+)`)

// decodeCharset converts body to UTF-8 using the Content-Type charset parameter or a
// <meta> declaration. Unknown or absent charsets leave body unchanged.
func decodeCharset(contentType string, body []byte) []byte {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}
	if label == "" {
		head := body
		if len(head) > 2048 {
			head = head[:2048]
		}
		if m := metaCharset.FindSubmatch(head); m != nil {
			label = string(m[1])
		}
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return body
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return body
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return body
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}

var boilerplate = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true, "header": true,
	"footer": true, "iframe": true, "svg": true, "template": true, "head": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true, "tr": true,
	"td": true, "th": true, "table": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true,
	"dd": true, "dt": true, "pre": true, "aside": true,
}

// HTMLText strips markup, scripts and navigation boilerplate from an HTML page and
// returns its visible text with one block element per line.
func HTMLText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeText(doc.Selection, &b)
	return collapseWhitespace(b.String()), nil
}

func writeText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			b.WriteString(strings.ReplaceAll(s.Text(), "\n", " "))
		case name == "#comment" || boilerplate[name]:
		case blockElements[name]:
			b.WriteByte('\n')
			writeText(s, b)
			b.WriteByte('\n')
		default:
			writeText(s, b)
		}
	})
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
