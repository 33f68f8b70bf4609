// Package aggregate turns raw normalized activities into the shapes the
// dashboard serves: a deduplicated descending timeline, summary stats, and
// a contributor leaderboard.
package aggregate

import (
	"sort"
	"strings"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/activity"
)

// Collate deduplicates by activity ID and sorts newest first. IDs are
// deterministic across fetch scopes, so the same underlying event arriving
// through different scopes collapses to one entry; the first occurrence
// wins. Date ties break on ID so repeated collation is stable.
func Collate(activities []activity.Activity) []activity.Activity {
	seen := make(map[string]struct{}, len(activities))
	result := make([]activity.Activity, 0, len(activities))
	for _, act := range activities {
		if act.ID == "" {
			continue
		}
		if _, dup := seen[act.ID]; dup {
			continue
		}
		seen[act.ID] = struct{}{}
		result = append(result, act)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// FilterByType keeps activities whose type is in keep. A nil or empty set
// keeps everything, so an unfiltered request costs nothing.
func FilterByType(activities []activity.Activity, keep map[activity.Type]bool) []activity.Activity {
	if len(keep) == 0 {
		return activities
	}
	filtered := make([]activity.Activity, 0, len(activities))
	for _, act := range activities {
		if keep[act.Type] {
			filtered = append(filtered, act)
		}
	}
	return filtered
}

// Stats summarizes one collated activity set.
type Stats struct {
	Total       int                   `json:"total"`
	Commits     int                   `json:"commits"`
	PullsOpened int                   `json:"pullsOpened"`
	PullsMerged int                   `json:"pullsMerged"`
	Reviews     int                   `json:"reviews"`
	Comments    int                   `json:"comments"`
	Releases    int                   `json:"releases"`
	ByType      map[activity.Type]int `json:"byType"`
	ActiveRepos int                   `json:"activeRepos"`
}

// ComputeStats tallies a collated activity set by kind.
func ComputeStats(activities []activity.Activity) Stats {
	stats := Stats{ByType: make(map[activity.Type]int)}
	repos := make(map[string]struct{})

	for _, act := range activities {
		stats.Total++
		stats.ByType[act.Type]++
		if act.Repo != "" {
			repos[act.Repo] = struct{}{}
		}

		switch act.Type {
		case activity.TypeCommit, activity.TypePush:
			stats.Commits++
		case activity.TypePROpened, activity.TypePRReopened:
			stats.PullsOpened++
		case activity.TypePRMerged:
			stats.PullsMerged++
		case activity.TypeReviewApproved, activity.TypeReviewChangesRequested, activity.TypeReviewCommented:
			stats.Reviews++
		case activity.TypePRComment, activity.TypeIssueComment, activity.TypeCommitComment, activity.TypeReviewComment:
			stats.Comments++
		case activity.TypeReleasePublished:
			stats.Releases++
		}
	}

	stats.ActiveRepos = len(repos)
	return stats
}

// LeaderboardEntry is one contributor's tally.
type LeaderboardEntry struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Total     int    `json:"total"`
	Commits   int    `json:"commits"`
	Pulls     int    `json:"pulls"`
	Reviews   int    `json:"reviews"`
	Comments  int    `json:"comments"`
}

// BuildLeaderboard tallies activities per author, ordered by total
// descending with ties broken by login ascending (case-insensitive) so the
// ordering is deterministic.
func BuildLeaderboard(activities []activity.Activity) []LeaderboardEntry {
	byLogin := make(map[string]*LeaderboardEntry)
	for _, act := range activities {
		login := strings.TrimSpace(act.Author)
		if login == "" {
			continue
		}

		entry, exists := byLogin[login]
		if !exists {
			entry = &LeaderboardEntry{Login: login}
			byLogin[login] = entry
		}
		if entry.AvatarURL == "" {
			entry.AvatarURL = act.AvatarURL
		}

		entry.Total++
		switch act.Type {
		case activity.TypeCommit, activity.TypePush:
			entry.Commits++
		case activity.TypePROpened, activity.TypePRReopened, activity.TypePRMerged, activity.TypePRClosed:
			entry.Pulls++
		case activity.TypeReviewApproved, activity.TypeReviewChangesRequested, activity.TypeReviewCommented:
			entry.Reviews++
		case activity.TypePRComment, activity.TypeIssueComment, activity.TypeCommitComment, activity.TypeReviewComment:
			entry.Comments++
		}
	}

	result := make([]LeaderboardEntry, 0, len(byLogin))
	for _, entry := range byLogin {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return strings.ToLower(result[i].Login) < strings.ToLower(result[j].Login)
	})
	return result
}
