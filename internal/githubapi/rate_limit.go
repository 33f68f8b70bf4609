package githubapi

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitHeaders contains parsed GitHub rate-limit response headers.
type RateLimitHeaders struct {
	Remaining        int
	ResetUnix        int64
	Used             int
	RetryAfter       time.Duration
	SecondaryLimited bool
}

// ResetAt returns the reset time, or the zero time when unknown.
func (h RateLimitHeaders) ResetAt() time.Time {
	if h.ResetUnix <= 0 {
		return time.Time{}
	}
	return time.Unix(h.ResetUnix, 0).UTC()
}

// ParseRateLimitHeaders parses rate-limit and retry headers. A 429, or a 403
// carrying Retry-After, signals the secondary (abuse) limit.
func ParseRateLimitHeaders(header http.Header, statusCode int) RateLimitHeaders {
	parsed := RateLimitHeaders{Remaining: -1}
	if raw := header.Get("X-RateLimit-Remaining"); raw != "" {
		parsed.Remaining = parseHeaderInt(raw)
	}
	parsed.Used = parseHeaderInt(header.Get("X-RateLimit-Used"))
	parsed.ResetUnix = parseHeaderInt64(header.Get("X-RateLimit-Reset"))

	retryAfterSeconds := parseHeaderInt(header.Get("Retry-After"))
	if retryAfterSeconds > 0 {
		parsed.RetryAfter = time.Duration(retryAfterSeconds) * time.Second
	}

	if statusCode == http.StatusTooManyRequests {
		parsed.SecondaryLimited = true
	}
	if statusCode == http.StatusForbidden && parsed.RetryAfter > 0 {
		parsed.SecondaryLimited = true
	}

	return parsed
}

// Limited reports whether a 403/429 should be read as a rate-limit signal
// rather than an authorization failure.
func (h RateLimitHeaders) Limited() bool {
	if h.SecondaryLimited {
		return true
	}
	return h.Remaining == 0 && h.ResetUnix > 0
}

func parseHeaderInt(raw string) int {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func parseHeaderInt64(raw string) int64 {
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
