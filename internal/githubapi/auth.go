package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
)

// TokenProvider yields the bearer token for outgoing GitHub calls. OAuth
// sessions carry per-user tokens; service deployments use a static token
// or a GitHub App installation.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider returns one fixed token, typically a PAT from
// configuration.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider validates and wraps a fixed token.
func NewStaticTokenProvider(token string) (*StaticTokenProvider, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, fmt.Errorf("token is required")
	}
	return &StaticTokenProvider{token: trimmed}, nil
}

func (p *StaticTokenProvider) Token(context.Context) (string, error) {
	return p.token, nil
}

// InstallationAuthConfig configures GitHub App installation authentication.
type InstallationAuthConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	Timeout        time.Duration
	BaseTransport  http.RoundTripper
}

// NewInstallationHTTPClient creates an authenticated HTTP client for one
// GitHub App installation. The transport injects installation tokens, so
// calls through it pass an empty per-call token.
func NewInstallationHTTPClient(cfg InstallationAuthConfig) (*http.Client, error) {
	if cfg.AppID <= 0 {
		return nil, fmt.Errorf("app id must be > 0")
	}
	if cfg.InstallationID <= 0 {
		return nil, fmt.Errorf("installation id must be > 0")
	}
	if strings.TrimSpace(cfg.PrivateKeyPath) == "" {
		return nil, fmt.Errorf("private key path is required")
	}

	baseTransport := cfg.BaseTransport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	transport, err := ghinstallation.NewKeyFromFile(baseTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("create github app transport: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

// InstallationTokenProvider pairs with NewInstallationHTTPClient: the
// transport owns authentication, so the per-call token stays empty.
type InstallationTokenProvider struct{}

func (InstallationTokenProvider) Token(context.Context) (string, error) {
	return "", nil
}
