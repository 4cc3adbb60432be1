package source

import (
	"net/url"
	"strings"
)

// unwrapRedirect returns the destination of a search-engine redirect link
// ("/url?q=..." or "/l/?uddg=..."), or href unchanged.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	q := u.Query()
	switch {
	case strings.HasSuffix(u.Path, "/url") && q.Get("q") != "":
		return q.Get("q")
	case q.Get("uddg") != "":
		return q.Get("uddg")
	}
	return href
}

// absoluteHTTP resolves href against base and keeps only http(s) URLs.
func absoluteHTTP(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return nil, false
	}
	if ref.Hostname() == "" {
		return nil, false
	}
	ref.Fragment = ""
	return ref, true
}
