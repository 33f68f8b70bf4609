package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/activity"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/aggregate"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/cache"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/githubapi"
	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/metrics"
)

const (
	defaultTeamWindow      = 24 * time.Hour
	defaultRepoWindow      = 30 * 24 * time.Hour
	defaultReviewPullLimit = 10
	defaultTeamRepoLimit   = 25
)

// Config tunes the fetch strategies.
type Config struct {
	// GroupSize is how many work units run concurrently per batch group.
	GroupSize int
	// TeamWindow bounds the team view lookback.
	TeamWindow time.Duration
	// RepoWindow bounds the single-repo view lookback.
	RepoWindow time.Duration
	// ReviewPullLimit caps how many recent pulls get their reviews listed.
	ReviewPullLimit int
	// TeamRepoLimit caps how many repos the team view walks.
	TeamRepoLimit int
}

func (c Config) withDefaults() Config {
	if c.GroupSize <= 0 {
		c.GroupSize = defaultGroupSize
	}
	if c.TeamWindow <= 0 {
		c.TeamWindow = defaultTeamWindow
	}
	if c.RepoWindow <= 0 {
		c.RepoWindow = defaultRepoWindow
	}
	if c.ReviewPullLimit <= 0 {
		c.ReviewPullLimit = defaultReviewPullLimit
	}
	if c.TeamRepoLimit <= 0 {
		c.TeamRepoLimit = defaultTeamRepoLimit
	}
	return c
}

// ActivityResult is one served activity set. Repos lists the organization's
// repositories as enumerated at fetch time; a unit that came back empty or
// absent never shrinks it.
type ActivityResult struct {
	Activities  []activity.Activity          `json:"activities"`
	Repos       []activity.RepoSummary       `json:"repos"`
	Stats       aggregate.Stats              `json:"stats"`
	Leaderboard []aggregate.LeaderboardEntry `json:"leaderboard,omitempty"`
	Cached      bool                         `json:"cached"`
	Partial     bool                         `json:"partial,omitempty"`
	FailedUnits []string                     `json:"failedUnits,omitempty"`

	// RateLimited marks a partial view cut short by the GitHub rate
	// limiter; RetryAt carries the reset hint when the limiter sent one.
	RateLimited bool      `json:"rateLimited,omitempty"`
	RetryAt     time.Time `json:"retryAt,omitzero"`
}

// Service runs the per-scope fetch strategies: cache read-through, batched
// GitHub calls, normalization, and aggregation.
type Service struct {
	data    *githubapi.DataClient
	cache   cache.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates a fetch service.
func NewService(data *githubapi.DataClient, cacheStore cache.Store, logger *zap.Logger, m *metrics.Metrics, cfg Config) (*Service, error) {
	if data == nil {
		return nil, fmt.Errorf("data client is required")
	}
	if cacheStore == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		data:    data,
		cache:   cacheStore,
		logger:  logger,
		metrics: m,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}, nil
}

// ValidateToken resolves the token owner. A rejected token surfaces as an
// auth error rather than an empty user.
func (s *Service) ValidateToken(ctx context.Context, token string) (githubapi.User, error) {
	user, found, err := s.data.GetAuthenticatedUser(ctx, token)
	if err != nil {
		return githubapi.User{}, err
	}
	if !found {
		return githubapi.User{}, &githubapi.AuthError{Message: "token owner not found"}
	}
	return user, nil
}

// FetchUserOrgs lists organizations for the token owner, cache-first.
func (s *Service) FetchUserOrgs(ctx context.Context, token, login string) ([]activity.OrgSummary, bool, error) {
	key := cache.Key{Scope: cache.ScopeUserOrgs, Param: login}

	var cached []activity.OrgSummary
	if hit, err := cache.ReadJSON(ctx, s.cache, key, &cached); err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
	} else if hit {
		return cached, true, nil
	}

	orgs, err := s.data.ListUserOrgs(ctx, token)
	if err != nil {
		return nil, false, err
	}

	summaries := make([]activity.OrgSummary, 0, len(orgs))
	for _, org := range orgs {
		summaries = append(summaries, activity.OrgSummary{
			Login:       org.Login,
			AvatarURL:   org.AvatarURL,
			Description: org.Description,
		})
	}
	s.writeCache(ctx, key, summaries)
	return summaries, false, nil
}

// FetchOrgRepos lists an organization's repositories, cache-first. The
// enumeration is all-or-nothing upstream, so a cached value is always a
// complete listing.
func (s *Service) FetchOrgRepos(ctx context.Context, token, org string) ([]activity.RepoSummary, bool, error) {
	repos, cached, err := s.listRepos(ctx, token, org)
	if err != nil {
		return nil, false, err
	}
	return repoSummaries(repos), cached, nil
}

// FetchUserEvents serves one user's normalized public feed, cache-first.
func (s *Service) FetchUserEvents(ctx context.Context, token, login string) ([]activity.Activity, bool, error) {
	key := cache.Key{Scope: cache.ScopeUserEvents, Param: login}

	var cached []activity.Activity
	if hit, err := cache.ReadJSON(ctx, s.cache, key, &cached); err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
	} else if hit {
		return cached, true, nil
	}

	events, err := s.data.ListUserEvents(ctx, token, login)
	if err != nil {
		return nil, false, err
	}

	activities := normalizeEvents(events, "")
	collated := aggregate.Collate(activities)
	s.writeCache(ctx, key, collated)
	return collated, false, nil
}

// FetchUserActivities assembles one member's activity inside an
// organization. The strategy is search-first: org-scoped commit and PR
// search plus the member's event feed, instead of walking every repo. The
// result still carries the full repo enumeration so the consumer can render
// the organization even for repos the member never touched.
func (s *Service) FetchUserActivities(ctx context.Context, token, org, login string, sink ProgressSink) (ActivityResult, error) {
	key := cache.Key{Scope: cache.ScopeUserActivities, Org: org, Param: login}
	scope := string(cache.ScopeUserActivities)

	if result, ok := s.readCachedResult(ctx, key, scope, sink); ok {
		return result, nil
	}

	repos, _, err := s.listRepos(ctx, token, org)
	if err != nil {
		s.metrics.ObserveFetch(scope, metrics.ResultError, 0)
		return ActivityResult{}, fmt.Errorf("enumerate repos for user view: %w", err)
	}

	units := []workUnit{
		{
			name: "search:commits",
			run: func(ctx context.Context) ([]activity.Activity, error) {
				commits, err := s.data.SearchCommits(ctx, token, fmt.Sprintf("org:%s author:%s", org, login))
				if err != nil {
					return nil, err
				}
				return normalizeCommits(commits), nil
			},
		},
		{
			name: "search:pulls",
			run: func(ctx context.Context) ([]activity.Activity, error) {
				issues, err := s.data.SearchIssues(ctx, token, fmt.Sprintf("org:%s author:%s is:pr", org, login))
				if err != nil {
					return nil, err
				}
				return normalizeIssues(issues), nil
			},
		},
		{
			name: "events:" + login,
			run: func(ctx context.Context) ([]activity.Activity, error) {
				events, err := s.data.ListUserEvents(ctx, token, login)
				if err != nil {
					return nil, err
				}
				return normalizeEvents(events, org), nil
			},
		},
	}

	return s.runActivityFetchPrimed(ctx, scope, key, units, sink, false, repoSummaries(repos))
}

// FetchRepoActivities assembles all recent activity in one repository.
func (s *Service) FetchRepoActivities(ctx context.Context, token, org, repo string, sink ProgressSink) (ActivityResult, error) {
	key := cache.Key{Scope: cache.ScopeRepoActivities, Org: org, Param: repo}
	scope := string(cache.ScopeRepoActivities)
	cutoff := s.now().Add(-s.cfg.RepoWindow)

	units := []workUnit{
		{
			name: "commits:" + repo,
			run: func(ctx context.Context) ([]activity.Activity, error) {
				commits, err := s.data.ListRepoCommits(ctx, token, org, repo, cutoff, time.Time{})
				if err != nil {
					return nil, err
				}
				return normalizeCommits(commits), nil
			},
		},
		{
			name: "pulls:" + repo,
			run: func(ctx context.Context) ([]activity.Activity, error) {
				return s.pullsWithReviews(ctx, token, org, repo, cutoff)
			},
		},
		{
			name: "comments:" + repo,
			run: func(ctx context.Context) ([]activity.Activity, error) {
				comments, err := s.data.ListIssueComments(ctx, token, org, repo, cutoff)
				if err != nil {
					return nil, err
				}
				activities := make([]activity.Activity, 0, len(comments))
				for _, comment := range comments {
					if act, ok := activity.FromComment(comment); ok {
						activities = append(activities, act)
					}
				}
				return activities, nil
			},
		},
		{
			name: "review-comments:" + repo,
			run: func(ctx context.Context) ([]activity.Activity, error) {
				comments, err := s.data.ListReviewComments(ctx, token, org, repo, cutoff)
				if err != nil {
					return nil, err
				}
				activities := make([]activity.Activity, 0, len(comments))
				for _, comment := range comments {
					if act, ok := activity.FromReviewComment(comment); ok {
						activities = append(activities, act)
					}
				}
				return activities, nil
			},
		},
		{
			name: "releases:" + repo,
			run: func(ctx context.Context) ([]activity.Activity, error) {
				releases, err := s.data.ListReleases(ctx, token, org, repo)
				if err != nil {
					return nil, err
				}
				activities := make([]activity.Activity, 0, len(releases))
				for _, release := range releases {
					if release.PublishedAt.Before(cutoff) {
						continue
					}
					if act, ok := activity.FromRelease(release); ok {
						activities = append(activities, act)
					}
				}
				return activities, nil
			},
		},
	}

	return s.runActivityFetch(ctx, scope, key, units, sink, false, nil)
}

// FetchTeamActivities assembles the last-24-hours view across the
// organization's most recently pushed repositories, leaderboard included.
// Repo enumeration failing fails the whole fetch: a team view over an
// unknown subset of repos would be silently wrong.
func (s *Service) FetchTeamActivities(ctx context.Context, token, org string, sink ProgressSink) (ActivityResult, error) {
	key := cache.Key{Scope: cache.ScopeTeamActivities, Org: org}
	scope := string(cache.ScopeTeamActivities)

	if result, ok := s.readCachedResult(ctx, key, scope, sink); ok {
		return result, nil
	}

	repos, _, err := s.listRepos(ctx, token, org)
	if err != nil {
		s.metrics.ObserveFetch(scope, metrics.ResultError, 0)
		return ActivityResult{}, fmt.Errorf("enumerate repos for team view: %w", err)
	}

	cutoff := s.now().Add(-s.cfg.TeamWindow)
	units := make([]workUnit, 0, s.cfg.TeamRepoLimit)
	for _, repo := range repos {
		if repo.Archived {
			continue
		}
		if len(units) >= s.cfg.TeamRepoLimit {
			break
		}
		repoName := repo.Name
		defaultBranch := repo.DefaultBranch
		units = append(units, workUnit{
			name: "repo:" + repoName,
			run: func(ctx context.Context) ([]activity.Activity, error) {
				return s.repoRecentActivity(ctx, token, org, repoName, defaultBranch, cutoff)
			},
		})
	}

	return s.runActivityFetchPrimed(ctx, scope, key, units, sink, true, repoSummaries(repos))
}

type workUnit struct {
	name string
	run  func(ctx context.Context) ([]activity.Activity, error)
}

func (s *Service) runActivityFetch(ctx context.Context, scope string, key cache.Key, units []workUnit, sink ProgressSink, withLeaderboard bool, repos []activity.RepoSummary) (ActivityResult, error) {
	if result, ok := s.readCachedResult(ctx, key, scope, sink); ok {
		return result, nil
	}
	return s.runActivityFetchPrimed(ctx, scope, key, units, sink, withLeaderboard, repos)
}

// runActivityFetchPrimed runs units after the cache was already consulted.
func (s *Service) runActivityFetchPrimed(ctx context.Context, scope string, key cache.Key, units []workUnit, sink ProgressSink, withLeaderboard bool, repos []activity.RepoSummary) (ActivityResult, error) {
	started := s.now()
	tracker := NewTracker(sink, len(units))
	tracker.Announce("fetching")

	outcome, runErr := RunBatched(ctx, units, s.cfg.GroupSize,
		func(unit workUnit) string { return unit.name },
		func(ctx context.Context, unit workUnit) ([]activity.Activity, error) {
			acts, err := unit.run(ctx)
			tracker.Advance(unit.name)
			return acts, err
		},
	)

	rateLimited := false
	var retryAt time.Time
	if runErr != nil {
		if githubapi.IsAuth(runErr) || !githubapi.IsRateLimit(runErr) {
			s.metrics.ObserveFetch(scope, metrics.ResultError, s.now().Sub(started))
			s.logger.Warn("fetch aborted",
				zap.String("scope", scope),
				zap.String("key", key.String()),
				zap.Error(runErr),
			)
			return ActivityResult{}, runErr
		}
		// Rate limited: the completed units still make a useful, if
		// partial, view. The category and reset hint travel with the
		// result so the consumer knows to back off, not just retry.
		rateLimited = true
		var limitErr *githubapi.RateLimitError
		if errors.As(runErr, &limitErr) {
			retryAt = limitErr.ResetAt
		}
		s.metrics.ObserveRateLimitAbort()
	}

	combined := make([]activity.Activity, 0, 256)
	for _, acts := range outcome.Results {
		combined = append(combined, acts...)
	}

	result := ActivityResult{
		Activities:  aggregate.Collate(combined),
		Repos:       repos,
		Partial:     rateLimited || len(outcome.Failures) > 0,
		RateLimited: rateLimited,
		RetryAt:     retryAt,
	}
	result.Stats = aggregate.ComputeStats(result.Activities)
	if withLeaderboard {
		result.Leaderboard = aggregate.BuildLeaderboard(result.Activities)
	}
	for _, failure := range outcome.Failures {
		result.FailedUnits = append(result.FailedUnits, failure.Unit)
		s.logger.Warn("fetch unit failed",
			zap.String("scope", scope),
			zap.String("unit", failure.Unit),
			zap.Error(failure.Err),
		)
	}

	// Only complete views enter the cache; a partial snapshot must not
	// answer reads for the whole freshness window.
	if !result.Partial {
		s.writeCache(ctx, key, result)
	}

	outcomeLabel := metrics.ResultOK
	if result.Partial {
		outcomeLabel = metrics.ResultPartial
	}
	s.metrics.ObserveFetch(scope, outcomeLabel, s.now().Sub(started))
	s.metrics.ObserveUnitFailures(scope, len(outcome.Failures))
	tracker.Finish("complete")

	s.logger.Info("fetch complete",
		zap.String("scope", scope),
		zap.String("key", key.String()),
		zap.Int("activities", len(result.Activities)),
		zap.Int("failed_units", len(outcome.Failures)),
		zap.Bool("partial", result.Partial),
		zap.Duration("elapsed", s.now().Sub(started)),
	)
	return result, nil
}

func (s *Service) readCachedResult(ctx context.Context, key cache.Key, scope string, sink ProgressSink) (ActivityResult, bool) {
	var result ActivityResult
	hit, err := cache.ReadJSON(ctx, s.cache, key, &result)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
		return ActivityResult{}, false
	}
	if !hit {
		return ActivityResult{}, false
	}

	result.Cached = true
	NewTracker(sink, 1).FinishCached("cached")
	s.metrics.ObserveFetch(scope, metrics.ResultCached, 0)
	return result, true
}

// listRepos enumerates and caches the raw repo listing shared by the repo
// picker and the team view.
func (s *Service) listRepos(ctx context.Context, token, org string) ([]githubapi.Repository, bool, error) {
	key := cache.Key{Scope: cache.ScopeOrgRepos, Org: org}

	var cached []githubapi.Repository
	if hit, err := cache.ReadJSON(ctx, s.cache, key, &cached); err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
	} else if hit {
		return cached, true, nil
	}

	repos, err := s.data.ListOrgRepos(ctx, token, org)
	if err != nil {
		return nil, false, err
	}
	s.writeCache(ctx, key, repos)
	return repos, false, nil
}

// pullsWithReviews maps a repo's recent pulls to activities and lists
// reviews for the most recent few of them.
func (s *Service) pullsWithReviews(ctx context.Context, token, org, repo string, cutoff time.Time) ([]activity.Activity, error) {
	pulls, err := s.data.ListRepoPulls(ctx, token, org, repo)
	if err != nil {
		return nil, err
	}

	activities := make([]activity.Activity, 0, len(pulls))
	reviewed := 0
	for _, pull := range pulls {
		if pull.UpdatedAt.Before(cutoff) {
			continue
		}
		if act, ok := activity.FromPull(pull); ok {
			activities = append(activities, act)
		}
		if reviewed >= s.cfg.ReviewPullLimit {
			continue
		}
		reviewed++

		reviews, err := s.data.ListPullReviews(ctx, token, org, repo, pull.Number)
		if err != nil {
			// Reviews enrich the pull timeline; losing them does not
			// invalidate the pulls themselves.
			s.logger.Warn("list reviews failed",
				zap.String("repo", org+"/"+repo),
				zap.Int("pull", pull.Number),
				zap.Error(err),
			)
			if githubapi.IsAuth(err) || githubapi.IsRateLimit(err) {
				return nil, err
			}
			continue
		}
		for _, review := range reviews {
			if review.SubmittedAt.Before(cutoff) {
				continue
			}
			if act, ok := activity.FromReview(review); ok {
				activities = append(activities, act)
			}
		}
	}
	return activities, nil
}

// repoRecentActivity is one team-view unit: commits plus pull activity for
// one repo inside the team window. The default branch is probed first so
// empty or just-created repos contribute nothing instead of erroring on
// the commit listing.
func (s *Service) repoRecentActivity(ctx context.Context, token, org, repo, defaultBranch string, cutoff time.Time) ([]activity.Activity, error) {
	if defaultBranch != "" {
		exists, err := s.data.BranchExists(ctx, token, org, repo, defaultBranch)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, nil
		}
	}

	commits, err := s.data.ListRepoCommits(ctx, token, org, repo, cutoff, time.Time{})
	if err != nil {
		return nil, err
	}
	activities := normalizeCommits(commits)

	pulls, err := s.data.ListRepoPulls(ctx, token, org, repo)
	if err != nil {
		return nil, err
	}
	for _, pull := range pulls {
		if pull.UpdatedAt.Before(cutoff) {
			continue
		}
		if act, ok := activity.FromPull(pull); ok {
			activities = append(activities, act)
		}
	}
	return activities, nil
}

func (s *Service) writeCache(ctx context.Context, key cache.Key, value any) {
	if err := cache.WriteJSON(ctx, s.cache, key, value); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	s.metrics.ObserveCacheWrite(string(key.Scope))
}

func repoSummaries(repos []githubapi.Repository) []activity.RepoSummary {
	summaries := make([]activity.RepoSummary, 0, len(repos))
	for _, repo := range repos {
		summaries = append(summaries, activity.RepoSummary{
			Name:            repo.Name,
			Description:     repo.Description,
			Language:        repo.Language,
			StargazersCount: repo.StargazersCount,
		})
	}
	return summaries
}

func normalizeCommits(commits []githubapi.Commit) []activity.Activity {
	activities := make([]activity.Activity, 0, len(commits))
	for _, commit := range commits {
		if act, ok := activity.FromCommit(commit); ok {
			activities = append(activities, act)
		}
	}
	return activities
}

func normalizeIssues(issues []githubapi.Issue) []activity.Activity {
	activities := make([]activity.Activity, 0, len(issues))
	for _, issue := range issues {
		if act, ok := activity.FromIssue(issue); ok {
			activities = append(activities, act)
		}
	}
	return activities
}

// normalizeEvents maps feed events, optionally keeping only repos under
// one organization.
func normalizeEvents(events []githubapi.Event, org string) []activity.Activity {
	activities := make([]activity.Activity, 0, len(events))
	for _, event := range events {
		if org != "" && !strings.HasPrefix(event.Repo, org+"/") {
			continue
		}
		if act, ok := activity.FromEvent(event); ok {
			activities = append(activities, act)
		}
	}
	return activities
}
