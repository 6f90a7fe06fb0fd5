// Package testutil provides testing utilities for the catalog feed.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockCatalogResponse overrides the synthetic list for one request.
type MockCatalogResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is a configurable fake of the remote list API. By default it
// serves Total synthetic entries named "item-<id>" under /<resource>/<id>/.
type MockCatalog struct {
	server   *httptest.Server
	resource string

	mu        sync.RWMutex
	total     int
	override  *MockCatalogResponse
	delay     time.Duration
	etag      string
	noETag    bool
	transform func(id int) (string, string)

	// Tracking
	RequestCount     int
	ConditionalCount int
	LastQuery        map[string]string
}

// NewMockCatalog starts a mock serving total entries under /api/v2/<resource>.
func NewMockCatalog(resource string, total int) *MockCatalog {
	m := &MockCatalog{
		resource: resource,
		total:    total,
		etag:     `"catalog-v1"`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/"+resource, m.handleList)
	mux.HandleFunc("/api/v2/"+resource+"/", m.handleList)
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the API base URL (".../api/v2").
func (m *MockCatalog) URL() string {
	return m.server.URL + "/api/v2"
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears tracking counters and overrides.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastQuery = nil
	m.override = nil
	m.delay = 0
}

// SetTotal changes the size of the synthetic catalog.
func (m *MockCatalog) SetTotal(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
}

// SetResponse makes every following request answer with resp.
func (m *MockCatalog) SetResponse(resp MockCatalogResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = &resp
}

// ClearResponse restores the synthetic list.
func (m *MockCatalog) ClearResponse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = nil
}

// SetDelay delays every response.
func (m *MockCatalog) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// DisableETag stops sending validators.
func (m *MockCatalog) DisableETag() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noETag = true
}

// SetEntryFunc replaces how entries are rendered; fn returns name and url.
func (m *MockCatalog) SetEntryFunc(fn func(id int) (name, url string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transform = fn
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastQuery returns the limit/offset of the latest request.
func (m *MockCatalog) GetLastQuery() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.LastQuery))
	for k, v := range m.LastQuery {
		out[k] = v
	}
	return out
}

func (m *MockCatalog) handleList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	conditional := r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != ""
	if conditional {
		m.ConditionalCount++
	}
	m.LastQuery = map[string]string{
		"limit":  r.URL.Query().Get("limit"),
		"offset": r.URL.Query().Get("offset"),
	}
	override := m.override
	delay := m.delay
	total := m.total
	etag := m.etag
	noETag := m.noETag
	transform := m.transform
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if override != nil {
		if override.Delay > 0 {
			time.Sleep(override.Delay)
		}
		for key, value := range override.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(override.StatusCode)
		if override.Body != "" {
			w.Write([]byte(override.Body))
		}
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		http.Error(w, `{"error":"bad limit"}`, http.StatusBadRequest)
		return
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		http.Error(w, `{"error":"bad offset"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))

	if !noETag {
		if conditional && r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	type entry struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	results := make([]entry, 0, limit)
	for id := offset + 1; id <= offset+limit && id <= total; id++ {
		name := fmt.Sprintf("item-%d", id)
		ref := fmt.Sprintf("%s/api/v2/%s/%d/", m.server.URL, m.resource, id)
		if transform != nil {
			name, ref = transform(id)
		}
		results = append(results, entry{Name: name, URL: ref})
	}

	json.NewEncoder(w).Encode(map[string]any{
		"count":   total,
		"results": results,
	})
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewMalformedResponse creates a 200 answer that lacks the list fields.
func NewMalformedResponse() MockCatalogResponse {
	return MockCatalogResponse{
		StatusCode: http.StatusOK,
		Body:       `{"unexpected": true}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
