package cache

import (
	"net/http"
	"time"
)

// Entry is a cached upstream response body with its validators.
type Entry struct {
	// Data is the raw JSON body
	Data []byte `json:"data"`

	// ETag for If-None-Match revalidation
	ETag string `json:"etag,omitempty"`

	// Expires is when the entry stops being served without revalidation
	Expires time.Time `json:"expires"`

	// LastModified for If-Modified-Since revalidation
	LastModified time.Time `json:"last_modified,omitempty"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`
}

// IsExpired reports whether the entry is past its expiry.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiry, or 0 once expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether a conditional request can be made for e.
func (e *Entry) CanRevalidate() bool {
	if e == nil {
		return false
	}
	return e.ETag != "" || !e.LastModified.IsZero()
}

// AddConditionalHeaders sets If-None-Match, or If-Modified-Since when no ETag
// is known.
func AddConditionalHeaders(req *http.Request, e *Entry) {
	if e == nil || req == nil {
		return
	}
	if e.ETag != "" {
		req.Header.Set("If-None-Match", e.ETag)
	} else if !e.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", e.LastModified.Format(http.TimeFormat))
	}
}
