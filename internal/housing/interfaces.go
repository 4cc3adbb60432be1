package housing

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Hasher produces content digests for scraped pages and natural keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator creates run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// FetchResponse is the raw result of retrieving a URL.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response media type without parameters, lower-cased.
func (r FetchResponse) ContentType() string {
	ct := r.Headers.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}
