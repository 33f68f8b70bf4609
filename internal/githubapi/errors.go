package githubapi

import (
	"errors"
	"fmt"
	"time"
)

// APIError is a non-2xx response that is not otherwise classified. It is
// propagated to the caller and never retried by this layer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("github api error: status %d: %s", e.StatusCode, e.Message)
}

// RateLimitError indicates the primary or secondary rate limit was hit.
// The current batch must stop; already-completed units are preserved.
type RateLimitError struct {
	ResetAt   time.Time
	Secondary bool
}

func (e *RateLimitError) Error() string {
	kind := "primary"
	if e.Secondary {
		kind = "secondary"
	}
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("github %s rate limit exceeded, retry later", kind)
	}
	return fmt.Sprintf("github %s rate limit exceeded, resets at %s", kind, e.ResetAt.UTC().Format(time.RFC3339))
}

// AuthError indicates the token was rejected. It is session-fatal: no
// subsequent call with the same token can succeed, so the whole fetch
// aborts instead of burning more requests.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "github authentication failed, check your token"
	}
	return "github authentication failed: " + e.Message
}

// IsRateLimit reports whether err is (or wraps) a rate-limit error.
func IsRateLimit(err error) bool {
	var rateErr *RateLimitError
	return errors.As(err, &rateErr)
}

// IsAuth reports whether err is (or wraps) an auth error.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
