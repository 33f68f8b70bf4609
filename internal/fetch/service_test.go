package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/activity"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/cache"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/githubapi"
)

type testBackend struct {
	mux      *http.ServeMux
	requests atomic.Int64
}

func newTestBackend() *testBackend {
	return &testBackend{mux: http.NewServeMux()}
}

func (b *testBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.requests.Add(1)
	b.mux.ServeHTTP(w, r)
}

func (b *testBackend) respond(pattern, body string) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})
}

func (b *testBackend) respondStatus(pattern string, status int, headers map[string]string, body string) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		for key, value := range headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

func newTestService(t *testing.T, backend *testBackend) (*Service, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	client, err := githubapi.NewClient(server.Client(), server.URL)
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	data, err := githubapi.NewDataClient(client, 3)
	if err != nil {
		t.Fatalf("NewDataClient() unexpected error: %v", err)
	}
	service, err := NewService(data, cache.NewMemoryCache(0), nil, nil, Config{})
	if err != nil {
		t.Fatalf("NewService() unexpected error: %v", err)
	}
	return service, server
}

func recentTimestamp(offset time.Duration) string {
	return time.Now().Add(offset).UTC().Format(time.RFC3339)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respond("/user", `{"login":"alice","name":"Alice","avatar_url":"https://avatars.example/alice"}`)
	service, _ := newTestService(t, backend)

	user, err := service.ValidateToken(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error: %v", err)
	}
	if user.Login != "alice" {
		t.Fatalf("user.Login = %q, want alice", user.Login)
	}
}

func TestValidateTokenMissingOwnerIsAuthError(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respondStatus("/user", http.StatusNotFound, nil, `{"message":"Not Found"}`)
	service, _ := newTestService(t, backend)

	_, err := service.ValidateToken(context.Background(), "ghost-token")
	if !githubapi.IsAuth(err) {
		t.Fatalf("error = %v, want auth error", err)
	}
}

func TestFetchUserActivitiesAggregatesAndCaches(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respond("/orgs/acme/repos", `[
		{"name": "widgets", "full_name": "acme/widgets", "language": "Go", "stargazers_count": 12},
		{"name": "gadgets", "full_name": "acme/gadgets"}
	]`)
	backend.respond("/search/commits", `{
		"total_count": 1,
		"items": [{
			"sha": "a1b2c3d4e5f6",
			"commit": {"message": "Fix cache key collision", "author": {"name": "Alice", "date": "`+recentTimestamp(-2*time.Hour)+`"}},
			"author": {"login": "alice"},
			"repository": {"full_name": "acme/widgets"}
		}]
	}`)
	backend.respond("/search/issues", `{
		"total_count": 1,
		"items": [{
			"id": 11, "number": 42, "title": "Add pagination", "state": "open",
			"user": {"login": "alice"},
			"repository_url": "https://api.github.com/repos/acme/widgets",
			"created_at": "`+recentTimestamp(-3*time.Hour)+`",
			"pull_request": {}
		}]
	}`)
	backend.respond("/users/alice/events", `[
		{
			"id": "9001", "type": "PushEvent",
			"actor": {"login": "alice"},
			"repo": {"name": "acme/widgets"},
			"payload": {"ref": "refs/heads/main", "commits": [{"sha": "eee999", "message": "push commit"}]},
			"created_at": "`+recentTimestamp(-time.Hour)+`"
		},
		{
			"id": "9002", "type": "PushEvent",
			"actor": {"login": "alice"},
			"repo": {"name": "elsewhere/other"},
			"payload": {"ref": "refs/heads/main", "commits": [{"sha": "fff000", "message": "outside org"}]},
			"created_at": "`+recentTimestamp(-time.Hour)+`"
		}
	]`)
	service, _ := newTestService(t, backend)

	result, err := service.FetchUserActivities(context.Background(), "token", "acme", "alice", nil)
	if err != nil {
		t.Fatalf("FetchUserActivities() unexpected error: %v", err)
	}
	if result.Cached || result.Partial {
		t.Fatalf("result = %+v, want fresh complete fetch", result)
	}
	if len(result.Activities) != 3 {
		t.Fatalf("len(Activities) = %d, want 3 (event outside org filtered)", len(result.Activities))
	}
	for i := 1; i < len(result.Activities); i++ {
		if result.Activities[i].Date.After(result.Activities[i-1].Date) {
			t.Fatalf("activities not sorted newest first at %d", i)
		}
	}
	if result.Stats.Total != 3 {
		t.Fatalf("Stats.Total = %d, want 3", result.Stats.Total)
	}
	if len(result.Repos) != 2 || result.Repos[0].Name != "widgets" || result.Repos[1].Name != "gadgets" {
		t.Fatalf("Repos = %+v, want the full org enumeration", result.Repos)
	}

	requestsAfterFirst := backend.requests.Load()
	sink := &recordingSink{}
	again, err := service.FetchUserActivities(context.Background(), "token", "acme", "alice", sink)
	if err != nil {
		t.Fatalf("FetchUserActivities(cached) unexpected error: %v", err)
	}
	if !again.Cached {
		t.Fatalf("second fetch Cached = false, want cache hit")
	}
	if backend.requests.Load() != requestsAfterFirst {
		t.Fatalf("cache hit still reached the backend")
	}
	if len(sink.emissions) != 1 || !sink.emissions[0].Cached {
		t.Fatalf("cached fetch emissions = %+v, want single cached emission", sink.emissions)
	}
}

func TestFetchUserActivitiesKeepsRepoListingWhenFeedsAreAbsent(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respond("/orgs/acme/repos", `[
		{"name": "widgets", "full_name": "acme/widgets", "language": "Go"},
		{"name": "attic", "full_name": "acme/attic"}
	]`)
	backend.respond("/search/commits", `{
		"total_count": 1,
		"items": [{
			"sha": "a1b2c3d4e5f6",
			"commit": {"message": "Fix cache key collision", "author": {"name": "Alice", "date": "`+recentTimestamp(-2*time.Hour)+`"}},
			"author": {"login": "alice"},
			"repository": {"full_name": "acme/widgets"}
		}]
	}`)
	backend.respond("/search/issues", `{"total_count": 0, "items": []}`)
	backend.respondStatus("/users/alice/events", http.StatusNotFound, nil, `{"message":"Not Found"}`)
	service, _ := newTestService(t, backend)

	result, err := service.FetchUserActivities(context.Background(), "token", "acme", "alice", nil)
	if err != nil {
		t.Fatalf("FetchUserActivities() unexpected error: %v", err)
	}
	if result.Partial {
		t.Fatalf("result.Partial = true, want absent feed treated as empty")
	}
	if len(result.Activities) != 1 {
		t.Fatalf("len(Activities) = %d, want 1", len(result.Activities))
	}
	if len(result.Repos) != 2 {
		t.Fatalf("len(Repos) = %d, want both enumerated repos regardless of unit outcomes", len(result.Repos))
	}
}

func TestFetchUserActivitiesRateLimitedIsPartialAndUncached(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respondStatus("/search/commits", http.StatusForbidden, map[string]string{
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     "1893456000",
	}, `{"message":"API rate limit exceeded"}`)
	backend.respond("/search/issues", `{"total_count": 0, "items": []}`)
	backend.respond("/users/alice/events", `[
		{
			"id": "9001", "type": "PushEvent",
			"actor": {"login": "alice"},
			"repo": {"name": "acme/widgets"},
			"payload": {"ref": "refs/heads/main", "commits": [{"sha": "eee999", "message": "push commit"}]},
			"created_at": "`+recentTimestamp(-time.Hour)+`"
		}
	]`)
	service, _ := newTestService(t, backend)

	result, err := service.FetchUserActivities(context.Background(), "token", "acme", "alice", nil)
	if err != nil {
		t.Fatalf("FetchUserActivities() unexpected error: %v", err)
	}
	if !result.Partial {
		t.Fatalf("result.Partial = false, want partial after rate limit")
	}
	if !result.RateLimited {
		t.Fatalf("result.RateLimited = false, want rate-limit category preserved")
	}
	if got := result.RetryAt.Unix(); got != 1893456000 {
		t.Fatalf("RetryAt = %v, want the advertised reset time", result.RetryAt)
	}
	if len(result.FailedUnits) == 0 {
		t.Fatalf("FailedUnits empty, want rate-limited unit recorded")
	}
	if len(result.Activities) == 0 {
		t.Fatalf("Activities empty, want completed units preserved")
	}

	// A partial view must not short-circuit the next fetch.
	requestsAfterFirst := backend.requests.Load()
	again, err := service.FetchUserActivities(context.Background(), "token", "acme", "alice", nil)
	if err != nil {
		t.Fatalf("FetchUserActivities(retry) unexpected error: %v", err)
	}
	if again.Cached {
		t.Fatalf("retry served from cache, want partial result uncached")
	}
	if backend.requests.Load() == requestsAfterFirst {
		t.Fatalf("retry never reached the backend")
	}
}

func TestFetchUserActivitiesAuthErrorFailsFetch(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respondStatus("/search/commits", http.StatusUnauthorized, nil, `{"message":"Bad credentials"}`)
	backend.respondStatus("/search/issues", http.StatusUnauthorized, nil, `{"message":"Bad credentials"}`)
	backend.respondStatus("/users/alice/events", http.StatusUnauthorized, nil, `{"message":"Bad credentials"}`)
	service, _ := newTestService(t, backend)

	_, err := service.FetchUserActivities(context.Background(), "bad-token", "acme", "alice", nil)
	if !githubapi.IsAuth(err) {
		t.Fatalf("error = %v, want session-fatal auth error", err)
	}
}

func TestFetchRepoActivitiesToleratesMissingEndpoints(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respondStatus("/repos/acme/widgets/commits", http.StatusNotFound, nil, `{"message":"Git Repository is empty."}`)
	backend.respond("/repos/acme/widgets/pulls", `[
		{
			"number": 42, "title": "Add pagination", "state": "open",
			"user": {"login": "alice"},
			"created_at": "`+recentTimestamp(-4*time.Hour)+`",
			"updated_at": "`+recentTimestamp(-time.Hour)+`",
			"head": {"ref": "feature/paging"},
			"base": {"ref": "main"}
		}
	]`)
	backend.respond("/repos/acme/widgets/pulls/42/reviews", `[
		{
			"id": 7, "state": "APPROVED", "body": "LGTM",
			"user": {"login": "bob"},
			"submitted_at": "`+recentTimestamp(-30*time.Minute)+`"
		}
	]`)
	backend.respond("/repos/acme/widgets/issues/comments", `[]`)
	backend.respond("/repos/acme/widgets/pulls/comments", `[]`)
	backend.respond("/repos/acme/widgets/releases", `[]`)
	service, _ := newTestService(t, backend)

	result, err := service.FetchRepoActivities(context.Background(), "token", "acme", "widgets", nil)
	if err != nil {
		t.Fatalf("FetchRepoActivities() unexpected error: %v", err)
	}
	if result.Partial {
		t.Fatalf("result.Partial = true, want empty-repo 404 treated as absence")
	}
	if len(result.Activities) != 2 {
		t.Fatalf("len(Activities) = %d, want pull + review", len(result.Activities))
	}

	types := map[activity.Type]bool{}
	for _, act := range result.Activities {
		types[act.Type] = true
	}
	if !types[activity.TypePROpened] || !types[activity.TypeReviewApproved] {
		t.Fatalf("activity types = %v, want pr_opened and review_approved", types)
	}
}

func TestFetchTeamActivitiesRequiresFullRepoEnumeration(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respondStatus("/orgs/acme/repos", http.StatusBadGateway, nil, `{"message":"upstream"}`)
	service, _ := newTestService(t, backend)

	_, err := service.FetchTeamActivities(context.Background(), "token", "acme", nil)
	if err == nil {
		t.Fatalf("FetchTeamActivities() expected error when enumeration fails")
	}
}

func TestFetchTeamActivitiesBuildsLeaderboard(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respond("/orgs/acme/repos", `[
		{"name": "alpha", "full_name": "acme/alpha", "default_branch": "main"},
		{"name": "attic", "full_name": "acme/attic", "archived": true}
	]`)
	backend.respond("/repos/acme/alpha/branches/main", `{"name": "main"}`)
	backend.respond("/repos/acme/alpha/commits", `[
		{
			"sha": "a1b2c3d4e5f6",
			"commit": {"message": "Tighten request timeouts", "author": {"name": "Alice", "date": "`+recentTimestamp(-2*time.Hour)+`"}},
			"author": {"login": "alice"}
		}
	]`)
	backend.respond("/repos/acme/alpha/pulls", `[
		{
			"number": 7, "title": "Retry transient failures", "state": "closed",
			"user": {"login": "bob"},
			"created_at": "`+recentTimestamp(-5*time.Hour)+`",
			"updated_at": "`+recentTimestamp(-time.Hour)+`",
			"closed_at": "`+recentTimestamp(-time.Hour)+`",
			"merged_at": "`+recentTimestamp(-time.Hour)+`",
			"head": {"ref": "fix/retry"},
			"base": {"ref": "main"}
		}
	]`)
	service, _ := newTestService(t, backend)

	result, err := service.FetchTeamActivities(context.Background(), "token", "acme", nil)
	if err != nil {
		t.Fatalf("FetchTeamActivities() unexpected error: %v", err)
	}
	if len(result.Activities) != 2 {
		t.Fatalf("len(Activities) = %d, want commit + merged pull (archived repo skipped)", len(result.Activities))
	}
	if len(result.Leaderboard) != 2 {
		t.Fatalf("len(Leaderboard) = %d, want alice and bob", len(result.Leaderboard))
	}
	if result.Stats.PullsMerged != 1 || result.Stats.Commits != 1 {
		t.Fatalf("Stats = %+v, want 1 commit 1 merged pull", result.Stats)
	}
}

func TestFetchTeamActivitiesSkipsReposWithoutDefaultBranch(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respond("/orgs/acme/repos", `[
		{"name": "alpha", "full_name": "acme/alpha", "default_branch": "main"},
		{"name": "husk", "full_name": "acme/husk", "default_branch": "main"}
	]`)
	backend.respond("/repos/acme/alpha/branches/main", `{"name": "main"}`)
	backend.respond("/repos/acme/alpha/commits", `[
		{
			"sha": "a1b2c3d4e5f6",
			"commit": {"message": "Tighten request timeouts", "author": {"name": "Alice", "date": "`+recentTimestamp(-2*time.Hour)+`"}},
			"author": {"login": "alice"}
		}
	]`)
	backend.respond("/repos/acme/alpha/pulls", `[]`)
	// husk has no branches at all: the probe 404s and the repo must
	// contribute nothing without counting as a failed unit.
	service, _ := newTestService(t, backend)

	result, err := service.FetchTeamActivities(context.Background(), "token", "acme", nil)
	if err != nil {
		t.Fatalf("FetchTeamActivities() unexpected error: %v", err)
	}
	if result.Partial || len(result.FailedUnits) != 0 {
		t.Fatalf("result = %+v, want empty repo treated as absence", result)
	}
	if len(result.Activities) != 1 {
		t.Fatalf("len(Activities) = %d, want alpha's commit only", len(result.Activities))
	}
	if len(result.Repos) != 2 {
		t.Fatalf("len(Repos) = %d, want both repos listed", len(result.Repos))
	}
}

func TestFetchOrgReposServesFromCacheSecondTime(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respond("/orgs/acme/repos", `[
		{"name": "alpha", "full_name": "acme/alpha", "language": "Go", "stargazers_count": 12}
	]`)
	service, _ := newTestService(t, backend)

	repos, cached, err := service.FetchOrgRepos(context.Background(), "token", "acme")
	if err != nil || cached {
		t.Fatalf("first FetchOrgRepos() = (cached=%v, err=%v), want fresh", cached, err)
	}
	if len(repos) != 1 || repos[0].Language != "Go" {
		t.Fatalf("repos = %+v, want mapped summary", repos)
	}

	_, cached, err = service.FetchOrgRepos(context.Background(), "token", "acme")
	if err != nil || !cached {
		t.Fatalf("second FetchOrgRepos() = (cached=%v, err=%v), want cache hit", cached, err)
	}
}

func TestFetchUserEventsNormalizesAndCaches(t *testing.T) {
	t.Parallel()

	backend := newTestBackend()
	backend.respond("/users/alice/events", `[
		{
			"id": "9001", "type": "CreateEvent",
			"actor": {"login": "alice"},
			"repo": {"name": "acme/widgets"},
			"payload": {"ref": "hotfix", "ref_type": "branch"},
			"created_at": "`+recentTimestamp(-time.Hour)+`"
		},
		{
			"id": "9002", "type": "PushEvent",
			"actor": {"login": "alice"},
			"repo": {"name": "acme/widgets"},
			"payload": {},
			"created_at": "`+recentTimestamp(-time.Hour)+`"
		}
	]`)
	service, _ := newTestService(t, backend)

	events, cached, err := service.FetchUserEvents(context.Background(), "token", "alice")
	if err != nil || cached {
		t.Fatalf("FetchUserEvents() = (cached=%v, err=%v), want fresh", cached, err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1 (malformed push skipped)", len(events))
	}
	if events[0].Type != activity.TypeBranchCreated {
		t.Fatalf("events[0].Type = %s, want branch_created", events[0].Type)
	}

	_, cached, err = service.FetchUserEvents(context.Background(), "token", "alice")
	if err != nil || !cached {
		t.Fatalf("second FetchUserEvents() = (cached=%v, err=%v), want cache hit", cached, err)
	}
}
