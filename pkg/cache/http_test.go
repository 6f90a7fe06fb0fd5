package cache

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"
)

func TestResponseToEntry_Headers(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		resp        *http.Response
		fallback    time.Duration
		wantErr     bool
		wantETag    string
		wantMinTTL  time.Duration
		wantMaxTTL  time.Duration
		wantLastMod bool
	}{
		{
			name: "all validators present",
			resp: &http.Response{
				StatusCode: 200,
				Header: http.Header{
					"Expires":       []string{now.Add(1 * time.Hour).UTC().Format(http.TimeFormat)},
					"Last-Modified": []string{now.Add(-1 * time.Hour).UTC().Format(http.TimeFormat)},
					"Etag":          []string{`"catalog-v1"`},
				},
				Body: io.NopCloser(bytes.NewReader([]byte(`{"count": 1}`))),
			},
			wantETag:    `"catalog-v1"`,
			wantMinTTL:  59 * time.Minute,
			wantMaxTTL:  61 * time.Minute,
			wantLastMod: true,
		},
		{
			name: "missing expires uses fallback",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{},
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"count": 1}`))),
			},
			fallback:   10 * time.Minute,
			wantMinTTL: 9 * time.Minute,
			wantMaxTTL: 10 * time.Minute,
		},
		{
			name: "unparsable expires uses default",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{"Expires": []string{"0"}},
				Body:       io.NopCloser(bytes.NewReader([]byte(`{}`))),
			},
			wantMinTTL: DefaultTTL - time.Minute,
			wantMaxTTL: DefaultTTL,
		},
		{
			name: "expires in the past is already stale",
			resp: &http.Response{
				StatusCode: 200,
				Header:     http.Header{"Expires": []string{now.Add(-1 * time.Hour).UTC().Format(http.TimeFormat)}},
				Body:       io.NopCloser(bytes.NewReader([]byte(`{}`))),
			},
			wantMinTTL: 0,
			wantMaxTTL: 0,
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := ResponseToEntry(tt.resp, tt.fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResponseToEntry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			// Body must be readable again by the caller
			body, _ := io.ReadAll(tt.resp.Body)
			if !bytes.Equal(body, entry.Data) {
				t.Errorf("restored body = %q, want %q", body, entry.Data)
			}

			if entry.ETag != tt.wantETag {
				t.Errorf("ETag = %q, want %q", entry.ETag, tt.wantETag)
			}

			ttl := entry.TTL()
			if ttl < tt.wantMinTTL || ttl > tt.wantMaxTTL {
				t.Errorf("TTL() = %v, want between %v and %v", ttl, tt.wantMinTTL, tt.wantMaxTTL)
			}

			if got := !entry.LastModified.IsZero(); got != tt.wantLastMod {
				t.Errorf("LastModified set = %v, want %v", got, tt.wantLastMod)
			}
		})
	}
}
