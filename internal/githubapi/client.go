package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAPIBaseURL = "https://api.github.com/"
	acceptMediaType   = "application/vnd.github+json"
	apiVersion        = "2022-11-28"
	clientUserAgent   = "gitpulse-dashboard"

	// Error bodies are diagnostic only; cap how much of them we read.
	maxErrorBodyBytes = 4 << 10
)

// HTTPDoer is implemented by http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallMeta reports transport metadata for one request.
type CallMeta struct {
	StatusCode  int
	RateLimit   RateLimitHeaders
	HasNextPage bool
}

// Client issues authenticated GitHub requests and classifies failures into
// typed outcomes. It performs no retry: pacing and retry policy belong to
// the batch orchestrator, keeping this layer a transparent transport.
type Client struct {
	doer    HTTPDoer
	baseURL *url.URL
}

// NewClient creates a client over the given transport. An empty baseURL
// selects the public GitHub API.
func NewClient(doer HTTPDoer, baseURL string) (*Client, error) {
	if doer == nil {
		doer = http.DefaultClient
	}
	parsed, err := parseAPIBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{doer: doer, baseURL: parsed}, nil
}

// getJSON issues one authenticated GET and decodes a 2xx JSON body into
// target. It reports found=false with a nil error on 404, since probe calls
// treat absence as a normal outcome.
func (c *Client) getJSON(ctx context.Context, token string, reqURL *url.URL, target any) (bool, CallMeta, error) {
	var span trace.Span
	if telemetry.ShouldTraceDependencies() {
		ctx, span = otel.Tracer("gitpulse/internal/githubapi").Start(
			ctx,
			"githubapi.client.get",
			trace.WithAttributes(
				attribute.String("http.method", http.MethodGet),
				attribute.String("http.path", reqURL.EscapedPath()),
			),
		)
		defer span.End()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return false, CallMeta{}, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", acceptMediaType)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", clientUserAgent)
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	found, meta, reqErr := c.execute(req, target)
	if span != nil {
		span.SetAttributes(
			attribute.Int("http.status_code", meta.StatusCode),
			attribute.Int("github.rate_limit_remaining", meta.RateLimit.Remaining),
		)
		if reqErr != nil {
			span.RecordError(reqErr)
			span.SetStatus(codes.Error, reqErr.Error())
		} else {
			span.SetStatus(codes.Ok, "request completed")
		}
	}
	return found, meta, reqErr
}

func (c *Client) execute(req *http.Request, target any) (bool, CallMeta, error) {
	resp, err := c.doer.Do(req)
	if err != nil {
		return false, CallMeta{}, fmt.Errorf("github request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	meta := CallMeta{
		StatusCode:  resp.StatusCode,
		RateLimit:   ParseRateLimitHeaders(resp.Header, resp.StatusCode),
		HasNextPage: hasNextPage(resp.Header.Get("Link")),
	}

	if err := classifyStatus(resp, meta.RateLimit); err != nil {
		return false, meta, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, meta, nil
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return true, meta, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, meta, fmt.Errorf("decode github response: %w", err)
	}
	return true, meta, nil
}

// classifyStatus maps HTTP failure codes onto the error taxonomy: auth
// failure, rate limit, not-found sentinel, or generic API error.
func classifyStatus(resp *http.Response, rate RateLimitHeaders) error {
	status := resp.StatusCode
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusNotFound:
		return nil
	case status == http.StatusUnauthorized:
		return &AuthError{Message: apiErrorMessage(resp.Body)}
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		if rate.Limited() {
			return &RateLimitError{ResetAt: rate.ResetAt(), Secondary: rate.SecondaryLimited}
		}
		return &AuthError{Message: apiErrorMessage(resp.Body)}
	default:
		return &APIError{StatusCode: status, Message: apiErrorMessage(resp.Body)}
	}
}

func apiErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return payload.Message
}

func (c *Client) endpoint(segments ...string) *url.URL {
	cloned := *c.baseURL
	trimmed := strings.TrimSuffix(cloned.Path, "/")
	builder := strings.Builder{}
	builder.WriteString(trimmed)
	for _, segment := range segments {
		builder.WriteString("/")
		builder.WriteString(strings.TrimPrefix(segment, "/"))
	}
	cloned.Path = builder.String()
	return &cloned
}

func parseAPIBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultAPIBaseURL
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse github api base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse github api base url: missing scheme or host")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return parsed, nil
}

func hasNextPage(linkHeader string) bool {
	if strings.TrimSpace(linkHeader) == "" {
		return false
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if strings.Contains(part, `rel="next"`) {
			return true
		}
	}
	return false
}
