// Package app wires configuration, the GitHub client, the cache backend,
// sessions, and the HTTP surface into one runnable dashboard runtime.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/cache"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/config"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/fetch"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/githubapi"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/health"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/metrics"
)

const (
	defaultRequestTimeout      = 30 * time.Second
	defaultFailureStreak       = 3
	defaultRecoverStreak       = 2
	defaultGitHubProbeInterval = time.Minute
	backgroundSweepPeriod      = time.Minute
	sessionTTL                 = 12 * time.Hour
	progressTTL                = 10 * time.Minute
)

// Runtime is the application runtime orchestrator.
type Runtime struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	cacheStore cache.Store
	cacheClose func() error
	memCache   *cache.MemoryCache
	service    *fetch.Service
	sessions   *sessionStore
	progress   *progressRegistry
	oauth      *oauth2.Config
	evaluator  *health.StatusEvaluator

	// serviceTokens yields the shared token in token/app auth modes; nil
	// in oauth mode where every session carries its own token.
	serviceTokens githubapi.TokenProvider

	mu                  sync.RWMutex
	cacheHealthy        bool
	githubHealthy       bool
	githubFailureStreak int
	githubRecoverStreak int

	// Now is injected for deterministic tests.
	Now func() time.Time
}

// NewRuntime builds a runtime from validated configuration.
func NewRuntime(cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	instruments := metrics.New()
	cacheStore, memCache, cacheClose := newCacheBackend(cfg, logger)

	httpClient, tokens, err := newGitHubTransport(cfg)
	if err != nil {
		return nil, err
	}
	client, err := githubapi.NewClient(httpClient, cfg.GitHub.APIBaseURL)
	if err != nil {
		return nil, err
	}
	data, err := githubapi.NewDataClient(client, cfg.GitHub.MaxPages)
	if err != nil {
		return nil, err
	}

	runtime := &Runtime{
		cfg:           cfg,
		logger:        logger,
		metrics:       instruments,
		cacheStore:    cacheStore,
		cacheClose:    cacheClose,
		memCache:      memCache,
		sessions:      newSessionStore(sessionTTL),
		progress:      newProgressRegistry(progressTTL),
		evaluator:     health.NewStatusEvaluator(),
		serviceTokens: tokens,
		cacheHealthy:  true,
		githubHealthy: true,
		Now:           time.Now,
	}

	// The fetch service talks to the cache through an observing wrapper, so
	// backend failures and recoveries feed the health state.
	service, err := fetch.NewService(data, observedStore{inner: cacheStore, note: runtime.noteCacheOutcome}, logger, instruments, fetch.Config{
		GroupSize:       cfg.Fetch.GroupSize,
		TeamWindow:      cfg.Fetch.TeamWindow,
		RepoWindow:      cfg.Fetch.RepoWindow,
		ReviewPullLimit: cfg.Fetch.ReviewPullLimit,
		TeamRepoLimit:   cfg.Fetch.TeamRepoLimit,
	})
	if err != nil {
		return nil, err
	}
	runtime.service = service

	if cfg.GitHub.AuthMode == "oauth" {
		runtime.oauth = &oauth2.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scopes:       []string{"read:org", "repo"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuth.AuthURL,
				TokenURL: cfg.OAuth.TokenURL,
			},
		}
	}

	return runtime, nil
}

func newGitHubTransport(cfg *config.Config) (githubapi.HTTPDoer, githubapi.TokenProvider, error) {
	timeout := cfg.GitHub.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	switch cfg.GitHub.AuthMode {
	case "app":
		client, err := githubapi.NewInstallationHTTPClient(githubapi.InstallationAuthConfig{
			AppID:          cfg.GitHub.AppID,
			InstallationID: cfg.GitHub.InstallationID,
			PrivateKeyPath: cfg.GitHub.PrivateKeyPath,
			Timeout:        timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, githubapi.InstallationTokenProvider{}, nil
	case "token":
		tokens, err := githubapi.NewStaticTokenProvider(cfg.GitHub.Token)
		if err != nil {
			return nil, nil, err
		}
		return &http.Client{Timeout: timeout}, tokens, nil
	default:
		return &http.Client{Timeout: timeout}, nil, nil
	}
}

// Service exposes the fetch service.
func (r *Runtime) Service() *fetch.Service {
	return r.service
}

// CurrentStatus implements health.Provider.
func (r *Runtime) CurrentStatus(_ context.Context) health.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.evaluator.Evaluate(health.Input{
		CacheHealthy:  r.cacheHealthy,
		ServerHealthy: true,
		GitHubHealthy: r.githubHealthy,
	})
}

// noteGitHubOutcome feeds fetch outcomes into the degraded-mode streak
// counters, so transient errors do not flap the health mode.
func (r *Runtime) noteGitHubOutcome(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		r.githubFailureStreak = 0
		if !r.githubHealthy {
			r.githubRecoverStreak++
			recoverAfter := r.cfg.Health.GitHubRecoverSuccessThreshold
			if recoverAfter <= 0 {
				recoverAfter = defaultRecoverStreak
			}
			if r.githubRecoverStreak >= recoverAfter {
				r.githubHealthy = true
				r.githubRecoverStreak = 0
				r.logger.Info("github marked healthy again")
			}
		}
		return
	}

	r.githubRecoverStreak = 0
	r.githubFailureStreak++
	if r.githubHealthy && r.githubFailureStreak >= defaultFailureStreak {
		r.githubHealthy = false
		r.logger.Warn("github marked degraded", zap.Error(err))
	}
}

// StartBackground launches the maintenance sweeps until ctx is done.
func (r *Runtime) StartBackground(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(backgroundSweepPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := r.Now()
				if r.memCache != nil {
					r.memCache.GC(now)
				}
				r.sessions.gc(now)
				r.progress.gc(now)
			}
		}
	}()

	go func() {
		interval := r.cfg.Health.GitHubProbeInterval
		if interval <= 0 {
			interval = defaultGitHubProbeInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.probeGitHub(ctx)
			}
		}
	}()
}

// probeGitHub re-checks a degraded GitHub backend on the configured
// interval, so recovery does not have to wait for user traffic. It needs a
// service token; oauth-only deployments recover through request outcomes
// instead.
func (r *Runtime) probeGitHub(ctx context.Context) {
	r.mu.RLock()
	healthy := r.githubHealthy
	r.mu.RUnlock()
	if healthy {
		return
	}

	token, ok := r.serviceToken(ctx)
	if !ok {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()
	_, err := r.service.ValidateToken(probeCtx, token)
	r.noteGitHubOutcome(err)
}

// noteCacheOutcome tracks whether the cache backend is answering. The
// flag follows the most recent operation: readiness drops while the
// backend is actually failing and comes back with the first success.
func (r *Runtime) noteCacheOutcome(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		if !r.cacheHealthy {
			r.cacheHealthy = true
			r.logger.Info("cache backend recovered")
		}
		return
	}
	if r.cacheHealthy {
		r.cacheHealthy = false
		r.logger.Warn("cache backend failing", zap.Error(err))
	}
}

// observedStore delegates to the configured cache backend and funnels each
// operation's outcome into the runtime's health state.
type observedStore struct {
	inner cache.Store
	note  func(error)
}

func (s observedStore) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	entry, ok, err := s.inner.Get(ctx, key)
	s.note(err)
	return entry, ok, err
}

func (s observedStore) Set(ctx context.Context, key cache.Key, data json.RawMessage) error {
	err := s.inner.Set(ctx, key, data)
	s.note(err)
	return err
}

// Shutdown releases runtime resources.
func (r *Runtime) Shutdown() error {
	if r.cacheClose != nil {
		return r.cacheClose()
	}
	return nil
}

// serviceToken resolves the shared token for non-oauth deployments.
func (r *Runtime) serviceToken(ctx context.Context) (string, bool) {
	if r.serviceTokens == nil {
		return "", false
	}
	token, err := r.serviceTokens.Token(ctx)
	if err != nil {
		r.logger.Warn("resolve service token failed", zap.Error(err))
		return "", false
	}
	return token, true
}

func redact(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) <= 8 {
		return "***"
	}
	return trimmed[:4] + "..." + trimmed[len(trimmed)-4:]
}
