package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sternrassler/catalog-feed/pkg/client"
	"github.com/Sternrassler/catalog-feed/pkg/ratelimit"
	"github.com/Sternrassler/catalog-feed/pkg/translator"
)

var (
	// ErrUnknownFilter is returned for a search value outside the tag table.
	ErrUnknownFilter = errors.New("unknown filter")

	// ErrInvalidQuery is returned for malformed page or pageSize values.
	ErrInvalidQuery = errors.New("invalid query")
)

// statusFor maps an error to the response status and the message shown to
// clients. Internal details stay in the logs.
func statusFor(err error) (int, string) {
	var upstreamErr *client.UpstreamError

	switch {
	case errors.Is(err, ErrUnknownFilter), errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, translator.ErrInvalidWindow):
		return http.StatusBadRequest, "invalid page window"
	case errors.Is(err, ratelimit.ErrBudgetExhausted):
		return http.StatusServiceUnavailable, "Upstream catalog temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream catalog timed out"
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, "Upstream catalog request failed"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
