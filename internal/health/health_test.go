package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		input     Input
		wantMode  Mode
		wantReady bool
	}{
		{
			name:      "all_healthy",
			input:     Input{CacheHealthy: true, ServerHealthy: true, GitHubHealthy: true},
			wantMode:  ModeHealthy,
			wantReady: true,
		},
		{
			name:      "github_down_degrades_but_stays_ready",
			input:     Input{CacheHealthy: true, ServerHealthy: true, GitHubHealthy: false},
			wantMode:  ModeDegraded,
			wantReady: true,
		},
		{
			name:      "cache_down_is_unhealthy",
			input:     Input{CacheHealthy: false, ServerHealthy: true, GitHubHealthy: true},
			wantMode:  ModeUnhealthy,
			wantReady: false,
		},
		{
			name:      "server_down_is_unhealthy",
			input:     Input{CacheHealthy: true, ServerHealthy: false, GitHubHealthy: true},
			wantMode:  ModeUnhealthy,
			wantReady: false,
		},
	}

	evaluator := NewStatusEvaluator()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			status := evaluator.Evaluate(tc.input)
			if status.Mode != tc.wantMode {
				t.Fatalf("Mode = %s, want %s", status.Mode, tc.wantMode)
			}
			if status.Ready != tc.wantReady {
				t.Fatalf("Ready = %v, want %v", status.Ready, tc.wantReady)
			}
			if len(status.Components) != 3 {
				t.Fatalf("Components = %v, want cache/server/github", status.Components)
			}
		})
	}
}

type staticProvider struct {
	status Status
}

func (p staticProvider) CurrentStatus(_ context.Context) Status {
	return p.status
}

func TestHandlerLivez(t *testing.T) {
	t.Parallel()

	handler := NewHandler(staticProvider{})
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("livez status = %d, want 200", recorder.Code)
	}
}

func TestHandlerReadyz(t *testing.T) {
	t.Parallel()

	ready := NewHandler(staticProvider{status: Status{Ready: true}})
	recorder := httptest.NewRecorder()
	ready.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("ready readyz status = %d, want 200", recorder.Code)
	}

	notReady := NewHandler(staticProvider{status: Status{Ready: false}})
	recorder = httptest.NewRecorder()
	notReady.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("not-ready readyz status = %d, want 503", recorder.Code)
	}
}

func TestHandlerHealthz(t *testing.T) {
	t.Parallel()

	handler := NewHandler(staticProvider{status: Status{
		Mode:  ModeDegraded,
		Ready: true,
		Components: map[string]bool{
			"cache":  true,
			"server": true,
			"github": false,
		},
	}})
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", recorder.Code)
	}
	var status Status
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("healthz body is not JSON: %v", err)
	}
	if status.Mode != ModeDegraded || !status.Ready {
		t.Fatalf("healthz status = %+v, want degraded but ready", status)
	}
	if status.Components["github"] {
		t.Fatalf("healthz github component = true, want false")
	}
}
