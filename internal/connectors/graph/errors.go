package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/inlet/internal/connectors/ratelimit"
	"github.com/custodia-labs/inlet/internal/core/domain"
)

// apiError is the Graph error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// wrapStatusError converts a non-200 Graph response into the domain
// taxonomy. 401 -> ErrAuthExpired, 429 -> RateLimitError with the
// Retry-After hint, 410 -> ErrInvalidCursor (delta token discarded,
// resync required), 404 -> ErrNotFound, 5xx -> ErrTransient.
func wrapStatusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return &domain.RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusGone:
		return domain.ErrInvalidCursor
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: graph status %d", domain.ErrTransient, resp.StatusCode)
	default:
		return fmt.Errorf("graph status %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}
}

// wrapTransportError classifies a request that never reached Graph.
func wrapTransportError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrTransient, err)
}

// recordThrottle feeds a 429 deadline back into the limiter so the next
// Wait respects it.
func recordThrottle(limiter *ratelimit.Limiter, err error) {
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		limiter.RecordRetryAfter(rle.RetryAfter)
	}
}

// retryAfter extracts the Retry-After header from a throttle response.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// errorMessage pulls the human-readable message out of the error body.
func errorMessage(body io.Reader) string {
	var e apiError
	if err := json.NewDecoder(body).Decode(&e); err != nil {
		return "unknown error"
	}
	if e.Error.Message == "" {
		return e.Error.Code
	}
	return e.Error.Message
}
