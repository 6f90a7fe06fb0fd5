package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTTL applies when the upstream sends no usable Expires header.
const DefaultTTL = 5 * time.Minute

// ResponseToEntry reads resp.Body into an Entry and restores the body so the
// caller can decode it again. fallbackTTL is used when Expires is missing or
// unparsable; zero means DefaultTTL.
func ResponseToEntry(resp *http.Response, fallbackTTL time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultTTL
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	entry := &Entry{
		Data:     body,
		ETag:     resp.Header.Get("ETag"),
		Expires:  parseExpires(resp.Header, now, fallbackTTL),
		StoredAt: now,
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			entry.LastModified = t
		}
	}
	return entry, nil
}

func parseExpires(h http.Header, now time.Time, fallback time.Duration) time.Time {
	raw := h.Get("Expires")
	if raw == "" {
		return now.Add(fallback)
	}
	expires, err := http.ParseTime(raw)
	if err != nil {
		return now.Add(fallback)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}
