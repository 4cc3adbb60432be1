package housing

import (
	"strings"
	"unicode"
)

// EntityWords are the municipal form-of-government words that appear in NJ names.
var EntityWords = []string{"township", "borough", "city", "town", "village"}

// NameKey is the natural key of a municipality: lower-cased, apostrophes and hyphens
// dropped, other punctuation replaced by spaces and whitespace collapsed. "Ho-Ho-Kus" and
// "HoHoKus" share a key; "Washington Township" and "Washington Borough" stay distinct.
func NameKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’' || r == '-' || r == '‐':
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CompactName is the base name with spaces removed. "Newark City" and "City of Newark"
// both become "newark"; it is the form searched for inside domains.
func CompactName(name string) string {
	base, _ := SplitEntity(name)
	words := strings.Fields(base)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !isEntityWord(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		kept = words
	}
	return strings.Join(kept, "")
}

// SplitEntity separates a name key into its base and entity word. Both the
// "Edison Township" and "Township of Edison" forms are recognized.
func SplitEntity(name string) (base, entity string) {
	words := strings.Fields(NameKey(name))
	if len(words) > 2 && isEntityWord(words[0]) && words[1] == "of" {
		return strings.Join(words[2:], " "), words[0]
	}
	if len(words) > 1 && isEntityWord(words[len(words)-1]) {
		return strings.Join(words[:len(words)-1], " "), words[len(words)-1]
	}
	return strings.Join(words, " "), ""
}

func isEntityWord(w string) bool {
	for _, e := range EntityWords {
		if w == e {
			return true
		}
	}
	return false
}
