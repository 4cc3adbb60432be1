package source

import "strings"

// Blocklist matches exact hosts and suffix wildcards ("*.wikipedia.org" or ".wikipedia.org").
type Blocklist struct {
	exact    map[string]struct{}
	suffixes []string
}

// NewBlocklist builds a Blocklist from configuration patterns. It returns nil when
// no usable pattern is given; a nil Blocklist blocks nothing.
func NewBlocklist(patterns []string) *Blocklist {
	matcher := &Blocklist{
		exact: make(map[string]struct{}),
	}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.HasPrefix(value, "*."):
			matcher.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			matcher.addSuffix(strings.TrimPrefix(value, "."))
		default:
			matcher.exact[value] = struct{}{}
		}
	}
	if len(matcher.exact) == 0 && len(matcher.suffixes) == 0 {
		return nil
	}
	return matcher
}

func (b *Blocklist) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range b.suffixes {
		if existing == suffix {
			return
		}
	}
	b.suffixes = append(b.suffixes, suffix)
}

// IsBlocked reports whether host is excluded. A suffix pattern also blocks its apex.
func (b *Blocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(host)), ".")
	if host == "" {
		return false
	}
	if _, exact := b.exact[host]; exact {
		return true
	}
	for _, suffix := range b.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}
