package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Resource: "pokemon", Limit: 50, Offset: 0}, "catalog:list:pokemon:limit=50:offset=0"},
		{Key{Resource: "/pokemon/", Limit: 1, Offset: 1024}, "catalog:list:pokemon:limit=1:offset=1024"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("Key.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEntry_TTL(t *testing.T) {
	fresh := &Entry{Expires: time.Now().Add(time.Hour)}
	if fresh.IsExpired() {
		t.Error("fresh entry expired")
	}
	if ttl := fresh.TTL(); ttl < 59*time.Minute || ttl > time.Hour {
		t.Errorf("TTL() = %v", ttl)
	}

	stale := &Entry{Expires: time.Now().Add(-time.Second)}
	if !stale.IsExpired() || stale.TTL() != 0 {
		t.Errorf("stale entry: expired=%v ttl=%v", stale.IsExpired(), stale.TTL())
	}
}

func TestResponseToEntry(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Expires":       []string{expires.Format(http.TimeFormat)},
			"Last-Modified": []string{"Sun, 01 Jan 2023 12:00:00 GMT"},
			"Etag":          []string{`"abc123"`},
		},
		Body: io.NopCloser(bytes.NewReader([]byte(`{"count":3}`))),
	}

	entry, err := ResponseToEntry(resp, 0)
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}
	if string(entry.Data) != `{"count":3}` {
		t.Errorf("Data = %s", entry.Data)
	}
	if entry.ETag != `"abc123"` {
		t.Errorf("ETag = %q", entry.ETag)
	}
	if !entry.Expires.Equal(expires) {
		t.Errorf("Expires = %v, want %v", entry.Expires, expires)
	}
	if entry.LastModified.IsZero() {
		t.Error("LastModified not parsed")
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"count":3}` {
		t.Errorf("body not restored: %q", body)
	}

	if _, err := ResponseToEntry(nil, 0); err == nil {
		t.Error("expected error for nil response")
	}
}

func TestParseExpires(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		header string
		want   time.Time
	}{
		{"missing", "", now.Add(time.Minute)},
		{"invalid", "not a date", now.Add(time.Minute)},
		{"past", now.Add(-time.Hour).Format(http.TimeFormat), now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Expires", tt.header)
			}
			if got := parseExpires(h, now, time.Minute); !got.Equal(tt.want) {
				t.Errorf("parseExpires() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	tests := []struct {
		name       string
		entry      *Entry
		wantHeader string
		wantValue  string
	}{
		{
			name:       "etag",
			entry:      &Entry{ETag: `"abc123"`},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
		{
			name:       "last modified",
			entry:      &Entry{LastModified: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)},
			wantHeader: "If-Modified-Since",
			wantValue:  "Sun, 01 Jan 2023 12:00:00 GMT",
		},
		{
			name:       "etag preferred",
			entry:      &Entry{ETag: `"abc123"`, LastModified: time.Now()},
			wantHeader: "If-None-Match",
			wantValue:  `"abc123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
			if !tt.entry.CanRevalidate() {
				t.Fatal("CanRevalidate() = false")
			}
			AddConditionalHeaders(req, tt.entry)
			if got := req.Header.Get(tt.wantHeader); got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantHeader, got, tt.wantValue)
			}
		})
	}

	// nil inputs must not panic
	AddConditionalHeaders(nil, &Entry{ETag: "x"})
	AddConditionalHeaders(&http.Request{}, nil)
	var nilEntry *Entry
	if nilEntry.CanRevalidate() {
		t.Error("nil entry can revalidate")
	}
}
