package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
)

// SourceError is a failed page request. Message is the server's
// {"message": ...} text when it sent one.
type SourceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SourceError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("feed request failed (status %d): %v", e.StatusCode, e.Err)
	case e.Message != "":
		return fmt.Sprintf("feed request failed (status %d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("feed request failed (status %d)", e.StatusCode)
	}
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// HTTPSource reads pages from the catalog server's /api/images endpoint.
type HTTPSource struct {
	endpoint   *url.URL
	httpClient *http.Client
}

// NewHTTPSource creates a source for the server at baseURL
// (e.g. "http://localhost:3000").
func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		endpoint:   u.JoinPath("api", "images"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (s *HTTPSource) SetHTTPClient(client *http.Client) {
	s.httpClient = client
}

// FetchPage implements PageSource.
func (s *HTTPSource) FetchPage(ctx context.Context, page, pageSize int, tag string) (catalog.Page[catalog.Item], error) {
	var empty catalog.Page[catalog.Item]

	u := *s.endpoint
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	if tag != "" {
		q.Set("search", tag)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return empty, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return empty, &SourceError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return empty, &SourceError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &msg)
		return empty, &SourceError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	var p catalog.Page[catalog.Item]
	if err := json.Unmarshal(body, &p); err != nil {
		return empty, &SourceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode page: %w", err)}
	}
	if p.Items == nil {
		p.Items = []catalog.Item{}
	}
	return p, nil
}
