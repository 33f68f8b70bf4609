package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// defaultMaxPages bounds sequential pagination per scope so extremely
// active organizations cannot drag a fetch on forever.
const defaultMaxPages = 10

// User is the authenticated token owner.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

// Org is one organization membership visible to the token.
type Org struct {
	Login       string
	AvatarURL   string
	Description string
}

// Repository is one repository in an organization.
type Repository struct {
	Name            string
	FullName        string
	Description     string
	Language        string
	StargazersCount int
	DefaultBranch   string
	Fork            bool
	Archived        bool
}

// Commit is one commit from the commit search or list endpoints.
type Commit struct {
	SHA         string
	Repo        string
	Message     string
	AuthorLogin string
	AuthorName  string
	AvatarURL   string
	AuthoredAt  time.Time
}

// Issue is one search result from the issue/PR search endpoint.
type Issue struct {
	ID          int64
	Number      int
	Repo        string
	Title       string
	Body        string
	State       string
	AuthorLogin string
	AvatarURL   string
	Labels      []IssueLabel
	CreatedAt   time.Time
	ClosedAt    time.Time
	MergedAt    time.Time
	IsPull      bool
}

// IssueLabel is one label on an issue or pull request.
type IssueLabel struct {
	Name  string
	Color string
}

// Pull is one pull request from the repo pulls list endpoint.
type Pull struct {
	Number      int
	Repo        string
	Title       string
	Body        string
	State       string
	AuthorLogin string
	AvatarURL   string
	Branch      string
	BaseBranch  string
	Labels      []IssueLabel
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    time.Time
	MergedAt    time.Time
}

// Review is one pull request review submission.
type Review struct {
	ID          int64
	Repo        string
	PullNumber  int
	State       string
	Body        string
	AuthorLogin string
	AvatarURL   string
	SubmittedAt time.Time
}

// Comment is one issue or pull request comment.
type Comment struct {
	ID          int64
	Repo        string
	Body        string
	AuthorLogin string
	AvatarURL   string
	CreatedAt   time.Time
	OnPull      bool
}

// ReviewComment is one inline pull request review comment.
type ReviewComment struct {
	ID          int64
	Repo        string
	Body        string
	Path        string
	Line        int
	AuthorLogin string
	AvatarURL   string
	CreatedAt   time.Time
}

// Release is one published repository release.
type Release struct {
	ID          int64
	Repo        string
	TagName     string
	Name        string
	Body        string
	AuthorLogin string
	PublishedAt time.Time
}

// Event is one entry from a user's public event feed. Payload stays raw;
// the normalizer decodes it per event kind.
type Event struct {
	ID        string
	Kind      string
	Repo      string
	Actor     string
	AvatarURL string
	CreatedAt time.Time
	Payload   json.RawMessage
}

// DataClient is the typed GitHub REST client for pipeline-relevant
// endpoints, built over the classifying transport client.
type DataClient struct {
	client   *Client
	maxPages int
}

// NewDataClient creates a typed data client. maxPages <= 0 selects the
// default pagination ceiling.
func NewDataClient(client *Client, maxPages int) (*DataClient, error) {
	if client == nil {
		return nil, fmt.Errorf("transport client is required")
	}
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &DataClient{client: client, maxPages: maxPages}, nil
}

// GetAuthenticatedUser reads the token owner. found=false means the token
// was rejected upstream of an AuthError (for example a deleted user).
func (c *DataClient) GetAuthenticatedUser(ctx context.Context, token string) (User, bool, error) {
	var payload userPayload
	found, _, err := c.client.getJSON(ctx, token, c.client.endpoint("user"), &payload)
	if err != nil || !found {
		return User{}, false, err
	}
	return User{Login: payload.Login, Name: payload.Name, AvatarURL: payload.AvatarURL}, true, nil
}

// ListUserOrgs lists organizations the token can see.
func (c *DataClient) ListUserOrgs(ctx context.Context, token string) ([]Org, error) {
	orgs := make([]Org, 0, 8)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("user", "orgs")
		setPageQuery(reqURL, page, nil)
		payload := &[]orgPayload{}
		return reqURL, payload, func() bool {
			for _, org := range *payload {
				orgs = append(orgs, Org{
					Login:       org.Login,
					AvatarURL:   org.AvatarURL,
					Description: org.Description,
				})
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list user orgs: %w", err)
	}
	return orgs, nil
}

// ListOrgRepos lists all repositories visible in one organization. Any page
// failure aborts the whole enumeration: downstream scope selection depends
// on a complete repo list.
func (c *DataClient) ListOrgRepos(ctx context.Context, token, org string) ([]Repository, error) {
	trimmedOrg := strings.TrimSpace(org)
	if trimmedOrg == "" {
		return nil, fmt.Errorf("organization is required")
	}

	repos := make([]Repository, 0, 64)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("orgs", url.PathEscape(trimmedOrg), "repos")
		setPageQuery(reqURL, page, url.Values{"type": {"all"}, "sort": {"pushed"}})
		payload := &[]repositoryPayload{}
		return reqURL, payload, func() bool {
			for _, repo := range *payload {
				repos = append(repos, Repository{
					Name:            repo.Name,
					FullName:        repo.FullName,
					Description:     repo.Description,
					Language:        repo.Language,
					StargazersCount: repo.StargazersCount,
					DefaultBranch:   repo.DefaultBranch,
					Fork:            repo.Fork,
					Archived:        repo.Archived,
				})
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list org repos for %q: %w", trimmedOrg, err)
	}
	return repos, nil
}

// SearchCommits searches commits with a qualifier query, for example
// "org:acme author:alice". Search is the preferred strategy: it paginates
// server-side instead of costing one request per repository.
func (c *DataClient) SearchCommits(ctx context.Context, token, query string) ([]Commit, error) {
	commits := make([]Commit, 0, 64)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("search", "commits")
		setPageQuery(reqURL, page, url.Values{"q": {query}, "sort": {"author-date"}, "order": {"desc"}})
		payload := &commitSearchPayload{}
		return reqURL, payload, func() bool {
			for _, item := range payload.Items {
				commits = append(commits, commitFromSearchItem(item))
			}
			return len(payload.Items) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("search commits %q: %w", query, err)
	}
	return commits, nil
}

// SearchIssues searches issues and pull requests with a qualifier query,
// for example "org:acme author:alice is:pr".
func (c *DataClient) SearchIssues(ctx context.Context, token, query string) ([]Issue, error) {
	issues := make([]Issue, 0, 64)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("search", "issues")
		setPageQuery(reqURL, page, url.Values{"q": {query}, "sort": {"updated"}, "order": {"desc"}})
		payload := &issueSearchPayload{}
		return reqURL, payload, func() bool {
			for _, item := range payload.Items {
				issues = append(issues, issueFromSearchItem(item))
			}
			return len(payload.Items) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("search issues %q: %w", query, err)
	}
	return issues, nil
}

// ListRepoCommits lists commits for one repository inside a window. A 404
// (repository renamed, deleted, or empty in range) yields an empty result,
// not an error.
func (c *DataClient) ListRepoCommits(ctx context.Context, token, owner, repo string, since, until time.Time) ([]Commit, error) {
	fullName := owner + "/" + repo
	commits := make([]Commit, 0, 32)
	query := url.Values{}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}
	if !until.IsZero() {
		query.Set("until", until.UTC().Format(time.RFC3339))
	}

	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("repos", url.PathEscape(owner), url.PathEscape(repo), "commits")
		setPageQuery(reqURL, page, query)
		payload := &[]commitListPayload{}
		return reqURL, payload, func() bool {
			for _, item := range *payload {
				commits = append(commits, commitFromListItem(item, fullName))
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list commits for %q: %w", fullName, err)
	}
	return commits, nil
}

// ListRepoPulls lists pull requests for one repository, most recently
// updated first. 404 yields an empty result.
func (c *DataClient) ListRepoPulls(ctx context.Context, token, owner, repo string) ([]Pull, error) {
	fullName := owner + "/" + repo
	pulls := make([]Pull, 0, 32)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("repos", url.PathEscape(owner), url.PathEscape(repo), "pulls")
		setPageQuery(reqURL, page, url.Values{"state": {"all"}, "sort": {"updated"}, "direction": {"desc"}})
		payload := &[]pullPayload{}
		return reqURL, payload, func() bool {
			for _, item := range *payload {
				pulls = append(pulls, pullFromPayload(item, fullName))
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list pulls for %q: %w", fullName, err)
	}
	return pulls, nil
}

// ListPullReviews lists reviews submitted on one pull request.
func (c *DataClient) ListPullReviews(ctx context.Context, token, owner, repo string, pullNumber int) ([]Review, error) {
	fullName := owner + "/" + repo
	reviews := make([]Review, 0, 8)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint(
			"repos", url.PathEscape(owner), url.PathEscape(repo),
			"pulls", strconv.Itoa(pullNumber), "reviews",
		)
		setPageQuery(reqURL, page, nil)
		payload := &[]reviewPayload{}
		return reqURL, payload, func() bool {
			for _, item := range *payload {
				reviews = append(reviews, Review{
					ID:          item.ID,
					Repo:        fullName,
					PullNumber:  pullNumber,
					State:       item.State,
					Body:        item.Body,
					AuthorLogin: loginOf(item.User),
					AvatarURL:   avatarOf(item.User),
					SubmittedAt: parseNullableRFC3339(item.SubmittedAt),
				})
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews for %q#%d: %w", fullName, pullNumber, err)
	}
	return reviews, nil
}

// ListIssueComments lists issue and pull request comments for one
// repository since a point in time.
func (c *DataClient) ListIssueComments(ctx context.Context, token, owner, repo string, since time.Time) ([]Comment, error) {
	fullName := owner + "/" + repo
	comments := make([]Comment, 0, 32)
	query := url.Values{"sort": {"created"}, "direction": {"desc"}}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}

	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("repos", url.PathEscape(owner), url.PathEscape(repo), "issues", "comments")
		setPageQuery(reqURL, page, query)
		payload := &[]commentPayload{}
		return reqURL, payload, func() bool {
			for _, item := range *payload {
				comments = append(comments, Comment{
					ID:          item.ID,
					Repo:        fullName,
					Body:        item.Body,
					AuthorLogin: loginOf(item.User),
					AvatarURL:   avatarOf(item.User),
					CreatedAt:   parseRFC3339(item.CreatedAt),
					OnPull:      strings.Contains(item.HTMLURL, "/pull/"),
				})
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list issue comments for %q: %w", fullName, err)
	}
	return comments, nil
}

// ListReviewComments lists inline review comments for one repository since
// a point in time.
func (c *DataClient) ListReviewComments(ctx context.Context, token, owner, repo string, since time.Time) ([]ReviewComment, error) {
	fullName := owner + "/" + repo
	comments := make([]ReviewComment, 0, 16)
	query := url.Values{"sort": {"created"}, "direction": {"desc"}}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339))
	}

	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("repos", url.PathEscape(owner), url.PathEscape(repo), "pulls", "comments")
		setPageQuery(reqURL, page, query)
		payload := &[]reviewCommentPayload{}
		return reqURL, payload, func() bool {
			for _, item := range *payload {
				line := item.Line
				if line == 0 {
					line = item.OriginalLine
				}
				comments = append(comments, ReviewComment{
					ID:          item.ID,
					Repo:        fullName,
					Body:        item.Body,
					Path:        item.Path,
					Line:        line,
					AuthorLogin: loginOf(item.User),
					AvatarURL:   avatarOf(item.User),
					CreatedAt:   parseRFC3339(item.CreatedAt),
				})
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list review comments for %q: %w", fullName, err)
	}
	return comments, nil
}

// ListReleases lists published releases for one repository. Drafts are
// skipped.
func (c *DataClient) ListReleases(ctx context.Context, token, owner, repo string) ([]Release, error) {
	fullName := owner + "/" + repo
	releases := make([]Release, 0, 8)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("repos", url.PathEscape(owner), url.PathEscape(repo), "releases")
		setPageQuery(reqURL, page, nil)
		payload := &[]releasePayload{}
		return reqURL, payload, func() bool {
			for _, item := range *payload {
				if item.Draft {
					continue
				}
				releases = append(releases, Release{
					ID:          item.ID,
					Repo:        fullName,
					TagName:     item.TagName,
					Name:        item.Name,
					Body:        item.Body,
					AuthorLogin: loginOf(item.Author),
					PublishedAt: parseNullableRFC3339(item.PublishedAt),
				})
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list releases for %q: %w", fullName, err)
	}
	return releases, nil
}

// ListUserEvents lists recent events from one user's public feed.
func (c *DataClient) ListUserEvents(ctx context.Context, token, username string) ([]Event, error) {
	trimmedUser := strings.TrimSpace(username)
	if trimmedUser == "" {
		return nil, fmt.Errorf("username is required")
	}

	events := make([]Event, 0, 64)
	err := c.paginate(ctx, token, func(page int) (*url.URL, any, func() bool) {
		reqURL := c.client.endpoint("users", url.PathEscape(trimmedUser), "events")
		setPageQuery(reqURL, page, nil)
		payload := &[]eventPayload{}
		return reqURL, payload, func() bool {
			for _, item := range *payload {
				events = append(events, Event{
					ID:        item.ID,
					Kind:      item.Type,
					Repo:      item.Repo.Name,
					Actor:     item.Actor.Login,
					AvatarURL: item.Actor.AvatarURL,
					CreatedAt: parseRFC3339(item.CreatedAt),
					Payload:   item.Payload,
				})
			}
			return len(*payload) > 0
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list events for %q: %w", trimmedUser, err)
	}
	return events, nil
}

// BranchExists probes one branch. Absence is a normal outcome, never an
// error.
func (c *DataClient) BranchExists(ctx context.Context, token, owner, repo, branch string) (bool, error) {
	reqURL := c.client.endpoint(
		"repos", url.PathEscape(owner), url.PathEscape(repo),
		"branches", url.PathEscape(branch),
	)
	found, _, err := c.client.getJSON(ctx, token, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("probe branch %s/%s@%s: %w", owner, repo, branch, err)
	}
	return found, nil
}

// paginate drives strict sequential Link-header pagination: page N+1 is
// only requested once page N resolved, until exhaustion or the page
// ceiling. A 404 on the first page stops silently (empty scope).
func (c *DataClient) paginate(ctx context.Context, token string, buildPage func(page int) (*url.URL, any, func() bool)) error {
	for page := 1; page <= c.maxPages; page++ {
		reqURL, target, collect := buildPage(page)
		found, meta, err := c.client.getJSON(ctx, token, reqURL, target)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		gotItems := collect()
		if !gotItems || !meta.HasNextPage {
			return nil
		}
	}
	return nil
}

func setPageQuery(reqURL *url.URL, page int, extra url.Values) {
	query := reqURL.Query()
	query.Set("per_page", "100")
	query.Set("page", strconv.Itoa(page))
	for key, values := range extra {
		for _, value := range values {
			query.Set(key, value)
		}
	}
	reqURL.RawQuery = query.Encode()
}

func commitFromSearchItem(item commitSearchItemPayload) Commit {
	return Commit{
		SHA:         item.SHA,
		Repo:        item.Repository.FullName,
		Message:     item.Commit.Message,
		AuthorLogin: loginOf(item.Author),
		AuthorName:  item.Commit.Author.Name,
		AvatarURL:   avatarOf(item.Author),
		AuthoredAt:  parseRFC3339(item.Commit.Author.Date),
	}
}

func commitFromListItem(item commitListPayload, fullName string) Commit {
	return Commit{
		SHA:         item.SHA,
		Repo:        fullName,
		Message:     item.Commit.Message,
		AuthorLogin: loginOf(item.Author),
		AuthorName:  item.Commit.Author.Name,
		AvatarURL:   avatarOf(item.Author),
		AuthoredAt:  parseRFC3339(item.Commit.Author.Date),
	}
}

func issueFromSearchItem(item issueSearchItemPayload) Issue {
	issue := Issue{
		ID:          item.ID,
		Number:      item.Number,
		Repo:        repoFromAPIURL(item.RepositoryURL),
		Title:       item.Title,
		Body:        item.Body,
		State:       item.State,
		AuthorLogin: loginOf(item.User),
		AvatarURL:   avatarOf(item.User),
		CreatedAt:   parseRFC3339(item.CreatedAt),
		ClosedAt:    parseNullableRFC3339(item.ClosedAt),
		IsPull:      item.PullRequest != nil,
	}
	if item.PullRequest != nil {
		issue.MergedAt = parseNullableRFC3339(item.PullRequest.MergedAt)
	}
	for _, label := range item.Labels {
		issue.Labels = append(issue.Labels, IssueLabel{Name: label.Name, Color: label.Color})
	}
	return issue
}

func pullFromPayload(item pullPayload, fullName string) Pull {
	pull := Pull{
		Number:      item.Number,
		Repo:        fullName,
		Title:       item.Title,
		Body:        item.Body,
		State:       item.State,
		AuthorLogin: loginOf(item.User),
		AvatarURL:   avatarOf(item.User),
		Branch:      item.Head.Ref,
		BaseBranch:  item.Base.Ref,
		CreatedAt:   parseRFC3339(item.CreatedAt),
		UpdatedAt:   parseRFC3339(item.UpdatedAt),
		ClosedAt:    parseNullableRFC3339(item.ClosedAt),
		MergedAt:    parseNullableRFC3339(item.MergedAt),
	}
	for _, label := range item.Labels {
		pull.Labels = append(pull.Labels, IssueLabel{Name: label.Name, Color: label.Color})
	}
	return pull
}

// repoFromAPIURL extracts "owner/name" from an API repository URL like
// https://api.github.com/repos/acme/widgets.
func repoFromAPIURL(raw string) string {
	marker := "/repos/"
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return ""
	}
	return strings.Trim(raw[idx+len(marker):], "/")
}

func loginOf(user *userPayload) string {
	if user == nil {
		return ""
	}
	return user.Login
}

func avatarOf(user *userPayload) string {
	if user == nil {
		return ""
	}
	return user.AvatarURL
}

func parseRFC3339(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func parseNullableRFC3339(raw *string) time.Time {
	if raw == nil {
		return time.Time{}
	}
	return parseRFC3339(*raw)
}

type userPayload struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type orgPayload struct {
	Login       string `json:"login"`
	AvatarURL   string `json:"avatar_url"`
	Description string `json:"description"`
}

type repositoryPayload struct {
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	DefaultBranch   string `json:"default_branch"`
	Fork            bool   `json:"fork"`
	Archived        bool   `json:"archived"`
}

type commitSearchPayload struct {
	TotalCount int                       `json:"total_count"`
	Items      []commitSearchItemPayload `json:"items"`
}

type commitSearchItemPayload struct {
	SHA        string          `json:"sha"`
	Commit     commitCoreBlock `json:"commit"`
	Author     *userPayload    `json:"author"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

type commitListPayload struct {
	SHA    string          `json:"sha"`
	Commit commitCoreBlock `json:"commit"`
	Author *userPayload    `json:"author"`
}

type commitCoreBlock struct {
	Message string `json:"message"`
	Author  struct {
		Name string `json:"name"`
		Date string `json:"date"`
	} `json:"author"`
}

type issueSearchPayload struct {
	TotalCount int                      `json:"total_count"`
	Items      []issueSearchItemPayload `json:"items"`
}

type issueSearchItemPayload struct {
	ID            int64           `json:"id"`
	Number        int             `json:"number"`
	Title         string          `json:"title"`
	Body          string          `json:"body"`
	State         string          `json:"state"`
	User          *userPayload    `json:"user"`
	Labels        []labelPayload  `json:"labels"`
	RepositoryURL string          `json:"repository_url"`
	CreatedAt     string          `json:"created_at"`
	ClosedAt      *string         `json:"closed_at"`
	PullRequest   *pullLinkPayload `json:"pull_request"`
}

type pullLinkPayload struct {
	MergedAt *string `json:"merged_at"`
}

type labelPayload struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type pullPayload struct {
	Number    int            `json:"number"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	State     string         `json:"state"`
	User      *userPayload   `json:"user"`
	Labels    []labelPayload `json:"labels"`
	Head      refBlock       `json:"head"`
	Base      refBlock       `json:"base"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	ClosedAt  *string        `json:"closed_at"`
	MergedAt  *string        `json:"merged_at"`
}

type refBlock struct {
	Ref string `json:"ref"`
}

type reviewPayload struct {
	ID          int64        `json:"id"`
	User        *userPayload `json:"user"`
	State       string       `json:"state"`
	Body        string       `json:"body"`
	SubmittedAt *string      `json:"submitted_at"`
}

type commentPayload struct {
	ID        int64        `json:"id"`
	Body      string       `json:"body"`
	User      *userPayload `json:"user"`
	CreatedAt string       `json:"created_at"`
	HTMLURL   string       `json:"html_url"`
}

type reviewCommentPayload struct {
	ID           int64        `json:"id"`
	Body         string       `json:"body"`
	Path         string       `json:"path"`
	Line         int          `json:"line"`
	OriginalLine int          `json:"original_line"`
	User         *userPayload `json:"user"`
	CreatedAt    string       `json:"created_at"`
}

type releasePayload struct {
	ID          int64        `json:"id"`
	TagName     string       `json:"tag_name"`
	Name        string       `json:"name"`
	Body        string       `json:"body"`
	Draft       bool         `json:"draft"`
	Author      *userPayload `json:"author"`
	PublishedAt *string      `json:"published_at"`
}

type eventPayload struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Actor struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"actor"`
	Repo struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}
