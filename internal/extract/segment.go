package extract

import (
	"regexp"
	"strings"
)

// DefaultKeywords open an extraction window when a sentence contains one of them.
var DefaultKeywords = []string{
	"affordable housing",
	"coah",
	"fair share",
	"settlement agreement",
	"redevelopment plan",
	"units",
	"mount laurel",
	"court order",
	"housing element",
}

var (
	blankLine  = regexp.MustCompile(`\n[ \t]*\n`)
	sentenceRE = regexp.MustCompile(`[.!?]["')\]]*\s+`)
)

// abbreviations do not end a sentence.
var abbreviations = map[string]bool{
	"st": true, "no": true, "nos": true, "ave": true, "rd": true, "blvd": true, "dr": true,
	"mr": true, "mrs": true, "ms": true, "inc": true, "co": true, "corp": true, "jr": true,
	"sr": true, "twp": true, "boro": true, "vs": true, "v": true, "u.s": true, "n.j": true,
	"n.j.a.c": true, "n.j.s.a": true, "p.l": true, "e.g": true, "i.e": true, "approx": true,
}

// Passage is a window of sentences around a keyword hit.
type Passage struct {
	Text string
	// Anchor is the sentence that contained the keyword.
	Anchor string
}

// Sentences splits text into sentences. Paragraphs are separated by blank lines; for
// line-oriented HTML text every line is its own paragraph.
func Sentences(text string, lineBreaksSeparate bool) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paragraphs []string
	if lineBreaksSeparate {
		paragraphs = strings.Split(text, "\n")
	} else {
		paragraphs = blankLine.Split(text, -1)
	}

	var out []string
	for _, p := range paragraphs {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		out = append(out, splitSentences(p)...)
	}
	return out
}

func splitSentences(p string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceRE.FindAllStringIndex(p, -1) {
		end := loc[1]
		if end < len(p) && !startsSentence(p[end]) {
			continue
		}
		if isAbbreviation(p[start:loc[0]]) {
			continue
		}
		if s := strings.TrimSpace(p[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
	}
	if s := strings.TrimSpace(p[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func startsSentence(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '"' || b == '(' || b == '\''
}

// isAbbreviation reports whether the word before a period is a known abbreviation or
// a single-letter initial.
func isAbbreviation(before string) bool {
	i := strings.LastIndexAny(before, " (")
	word := strings.ToLower(before[i+1:])
	if len(word) == 1 && word[0] >= 'a' && word[0] <= 'z' {
		return true
	}
	return abbreviations[word]
}

// Segment returns one passage per keyword-bearing sentence, spanning window sentences
// on each side. Identical consecutive windows are emitted once.
func Segment(sentences []string, keywords []string, window int) []Passage {
	if window < 0 {
		window = 0
	}
	var (
		out            []Passage
		lastLo, lastHi = -1, -1
	)
	for i, s := range sentences {
		if !containsKeyword(strings.ToLower(s), keywords) {
			continue
		}
		lo := max(0, i-window)
		hi := min(len(sentences), i+window+1)
		if lo == lastLo && hi == lastHi {
			continue
		}
		lastLo, lastHi = lo, hi
		out = append(out, Passage{Text: strings.Join(sentences[lo:hi], " "), Anchor: s})
	}
	return out
}

func containsKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
