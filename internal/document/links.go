package document

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is an anchor discovered on a page.
type Link struct {
	URL  string
	Text string
}

// PlanningKeywords mark pages likely to host housing material.
var PlanningKeywords = []string{
	"planning board",
	"planning department",
	"zoning board",
	"land use",
	"master plan",
	"housing element",
	"redevelopment",
	"affordable housing",
}

// HousingDocumentKeywords mark documents likely to contain commitments.
var HousingDocumentKeywords = []string{
	"affordable housing",
	"fair share",
	"coah",
	"housing element",
	"housing plan",
	"mount laurel",
	"settlement agreement",
	"inclusionary",
	"spending plan",
	"redevelopment plan",
	"fourth round",
	"third round",
}

var documentExtensions = []string{".pdf", ".docx", ".doc"}

// RelevantLinks returns same-host links whose anchor text or href mentions a planning
// keyword, deduplicated, in document order.
func RelevantLinks(page Document) []Link {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}
	var out []Link
	for _, l := range anchors(base, page.Raw) {
		u, _ := url.Parse(l.URL)
		if !sameHost(u.Hostname(), base.Hostname()) || isDocumentURL(l.URL) {
			continue
		}
		if matchesAny(strings.ToLower(l.Text), strings.ToLower(u.Path+"?"+u.RawQuery), PlanningKeywords) {
			out = append(out, l)
		}
	}
	return out
}

// DocumentLinks returns links to PDF or Word documents whose text or href mentions an
// affordable-housing keyword. Documents may live on any host.
func DocumentLinks(page Document) []Link {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}
	var out []Link
	for _, l := range anchors(base, page.Raw) {
		if !isDocumentURL(l.URL) {
			continue
		}
		href, err := url.PathUnescape(strings.ToLower(l.URL))
		if err != nil {
			href = strings.ToLower(l.URL)
		}
		if matchesAny(strings.ToLower(l.Text), href, HousingDocumentKeywords) {
			out = append(out, l)
		}
	}
	return out
}

func anchors(base *url.URL, body []byte) []Link {
	if len(body) == 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []Link
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(lower, "javascript:") ||
			strings.HasPrefix(lower, "mailto:") ||
			strings.HasPrefix(lower, "tel:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		key := abs.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Link{URL: key, Text: strings.Join(strings.Fields(a.Text()), " ")})
	})
	return out
}

// matchesAny reports whether text contains a keyword, or href contains it verbatim,
// with spaces removed, or hyphenated.
func matchesAny(text, href string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) || strings.Contains(href, kw) {
			return true
		}
		if !strings.Contains(kw, " ") {
			continue
		}
		if strings.Contains(href, strings.ReplaceAll(kw, " ", "")) ||
			strings.Contains(href, strings.ReplaceAll(kw, " ", "-")) ||
			strings.Contains(href, strings.ReplaceAll(kw, " ", "_")) {
			return true
		}
	}
	return false
}

func isDocumentURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, ext := range documentExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

func sameHost(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}
