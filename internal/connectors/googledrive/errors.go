package googledrive

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// wrapError converts a Google API error into the domain taxonomy.
// 401 -> ErrAuthExpired, 429 -> RateLimitError, 410 -> ErrInvalidCursor
// (the Changes API discarded the start page token), 404 -> ErrNotFound,
// 5xx -> ErrTransient.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Network-level failure with no HTTP response.
		return errors.Join(domain.ErrTransient, err)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return domain.ErrAuthExpired
	case gerr.Code == http.StatusTooManyRequests:
		return &domain.RateLimitError{RetryAfter: retryAfter(gerr)}
	case gerr.Code == http.StatusGone:
		return domain.ErrInvalidCursor
	case gerr.Code == http.StatusNotFound:
		return domain.ErrNotFound
	case gerr.Code >= http.StatusInternalServerError:
		return errors.Join(domain.ErrTransient, err)
	default:
		return err
	}
}

// retryAfter extracts the Retry-After hint from a 429 response.
func retryAfter(gerr *googleapi.Error) time.Duration {
	if gerr.Header == nil {
		return 0
	}
	if v := gerr.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
