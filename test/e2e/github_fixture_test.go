//go:build e2e

package e2e

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// githubFixture is a fake GitHub API serving a small fixed organization:
// two members, two repos (one archived), and enough recent activity to
// exercise every fetch scope.
type githubFixture struct {
	server   *httptest.Server
	requests atomic.Int64
}

func newGitHubFixture(t *testing.T) *githubFixture {
	t.Helper()

	fixture := &githubFixture{}
	now := time.Now().UTC()
	stamp := func(offset time.Duration) string {
		return now.Add(offset).Format(time.RFC3339)
	}

	mux := http.NewServeMux()
	respond := func(pattern, body string) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, body)
		})
	}

	respond("/user", `{"login":"alice","name":"Alice","avatar_url":"https://avatars.example/alice"}`)
	respond("/user/orgs", `[{"login":"acme","avatar_url":"https://avatars.example/acme","description":"Acme Corp"}]`)

	respond("/orgs/acme/repos", `[
		{"name": "alpha", "full_name": "acme/alpha", "language": "Go", "stargazers_count": 12, "default_branch": "main"},
		{"name": "attic", "full_name": "acme/attic", "archived": true}
	]`)

	respond("/repos/acme/alpha/branches/main", `{"name": "main", "commit": {"sha": "a1b2c3d4e5f6a7b8"}}`)
	respond("/repos/acme/alpha/commits", `[
		{
			"sha": "a1b2c3d4e5f6a7b8",
			"commit": {"message": "Harden pagination", "author": {"name": "Alice", "date": "`+stamp(-2*time.Hour)+`"}},
			"author": {"login": "alice", "avatar_url": "https://avatars.example/alice"}
		}
	]`)
	respond("/repos/acme/alpha/pulls", `[
		{
			"number": 7, "title": "Retry transient failures", "state": "closed",
			"user": {"login": "bob", "avatar_url": "https://avatars.example/bob"},
			"created_at": "`+stamp(-6*time.Hour)+`",
			"updated_at": "`+stamp(-time.Hour)+`",
			"closed_at": "`+stamp(-time.Hour)+`",
			"merged_at": "`+stamp(-time.Hour)+`",
			"head": {"ref": "fix/retry"},
			"base": {"ref": "main"}
		}
	]`)
	respond("/repos/acme/alpha/pulls/7/reviews", `[
		{
			"id": 91, "state": "APPROVED", "body": "Ship it",
			"user": {"login": "alice", "avatar_url": "https://avatars.example/alice"},
			"submitted_at": "`+stamp(-90*time.Minute)+`"
		}
	]`)
	respond("/repos/acme/alpha/issues/comments", `[]`)
	respond("/repos/acme/alpha/pulls/comments", `[]`)
	respond("/repos/acme/alpha/releases", `[
		{
			"tag_name": "v1.4.0", "name": "v1.4.0", "draft": false,
			"author": {"login": "alice"},
			"published_at": "`+stamp(-3*time.Hour)+`"
		}
	]`)

	respond("/search/commits", `{
		"total_count": 1,
		"items": [{
			"sha": "a1b2c3d4e5f6a7b8",
			"commit": {"message": "Harden pagination", "author": {"name": "Alice", "date": "`+stamp(-2*time.Hour)+`"}},
			"author": {"login": "alice", "avatar_url": "https://avatars.example/alice"},
			"repository": {"full_name": "acme/alpha"}
		}]
	}`)
	respond("/search/issues", `{
		"total_count": 1,
		"items": [{
			"id": 701, "number": 7, "title": "Retry transient failures", "state": "closed",
			"user": {"login": "alice"},
			"repository_url": "https://api.github.com/repos/acme/alpha",
			"created_at": "`+stamp(-6*time.Hour)+`",
			"closed_at": "`+stamp(-time.Hour)+`",
			"pull_request": {"merged_at": "`+stamp(-time.Hour)+`"}
		}]
	}`)
	respond("/users/alice/events", `[
		{
			"id": "9001", "type": "PushEvent",
			"actor": {"login": "alice", "avatar_url": "https://avatars.example/alice"},
			"repo": {"name": "acme/alpha"},
			"payload": {"ref": "refs/heads/main", "commits": [{"sha": "a1b2c3d4e5f6a7b8", "message": "Harden pagination"}]},
			"created_at": "`+stamp(-2*time.Hour)+`"
		}
	]`)

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.requests.Add(1)
		mux.ServeHTTP(w, r)
	})
	fixture.server = httptest.NewServer(root)
	t.Cleanup(fixture.server.Close)
	return fixture
}

func (f *githubFixture) url() string {
	return f.server.URL
}

func (f *githubFixture) requestCount() int64 {
	return f.requests.Load()
}
