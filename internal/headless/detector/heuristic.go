// Package detector decides when a municipal page needs a headless re-render.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

// Heuristic promotes thin or script-dominated HTML pages.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a detector. A zero threshold means 2048 bytes.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-app"),
}

// ShouldPromote reports whether resp looks like an HTML shell whose content is
// rendered client side. Documents other than HTML are never promoted.
func (h *Heuristic) ShouldPromote(resp housing.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK {
		return false
	}
	if ct := resp.ContentType(); ct != "" && ct != "text/html" && ct != "application/xhtml+xml" {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Treat the rest of the document as part of the malformed script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			// Script tag never closes; count the rest.
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	if scriptCoverage == 0 {
		return false
	}
	return scriptCoverage*100/total >= 25
}
