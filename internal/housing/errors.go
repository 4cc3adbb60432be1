package housing

import (
	"errors"
	"fmt"
)

// ErrMissingProvenance is returned when a commitment has no source document URL.
var ErrMissingProvenance = errors.New("commitment source_document_url is required")

// TransientSourceError wraps a network or parse failure from a lookup source or fetch.
// Callers recover locally: the failure is logged and treated as an empty result.
type TransientSourceError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransientSourceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Source, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.URL, e.Err)
}

func (e *TransientSourceError) Unwrap() error {
	return e.Err
}

// DanglingReferenceError is returned when a record references a municipality or
// commitment the store does not know.
type DanglingReferenceError struct {
	Municipality string
	CommitmentID int64
	SourceURL    string
}

func (e *DanglingReferenceError) Error() string {
	if e.Municipality == "" {
		return fmt.Sprintf("dangling reference to commitment %d (source %s)", e.CommitmentID, e.SourceURL)
	}
	return fmt.Sprintf("dangling reference to municipality %q (source %s)", e.Municipality, e.SourceURL)
}

// ConfigurationError reports an invalid configuration value. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsTransientHTTPStatus reports whether an HTTP status should be treated as a source failure
// worth retrying in a later run rather than a permanent absence.
func IsTransientHTTPStatus(code int) bool {
	return code == 429 || code >= 500
}
