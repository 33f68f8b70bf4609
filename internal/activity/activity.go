// Package activity defines the normalized activity model shared by the
// fetch pipeline and its consumers, plus the normalizer that maps raw
// GitHub payloads onto it.
package activity

import (
	"strings"
	"time"
)

// Type is the closed enumeration of activity kinds. Unrecognized source
// events map to TypeUnknown and render generically instead of failing.
type Type string

const (
	TypeCommit                 Type = "commit"
	TypePush                   Type = "push"
	TypePROpened               Type = "pr_opened"
	TypePRMerged               Type = "pr_merged"
	TypePRClosed               Type = "pr_closed"
	TypePRReopened             Type = "pr_reopened"
	TypePRComment              Type = "pr_comment"
	TypeIssueComment           Type = "issue_comment"
	TypeCommitComment          Type = "commit_comment"
	TypeReviewApproved         Type = "review_approved"
	TypeReviewChangesRequested Type = "review_changes_requested"
	TypeReviewCommented        Type = "review_commented"
	TypeReviewComment          Type = "review_comment"
	TypeBranchCreated          Type = "branch_created"
	TypeBranchDeleted          Type = "branch_deleted"
	TypeReleasePublished       Type = "release_published"
	TypeTagCreated             Type = "tag_created"
	TypeUnknown                Type = "unknown"
)

var knownTypes = map[Type]struct{}{
	TypeCommit:                 {},
	TypePush:                   {},
	TypePROpened:               {},
	TypePRMerged:               {},
	TypePRClosed:               {},
	TypePRReopened:             {},
	TypePRComment:              {},
	TypeIssueComment:           {},
	TypeCommitComment:          {},
	TypeReviewApproved:         {},
	TypeReviewChangesRequested: {},
	TypeReviewCommented:        {},
	TypeReviewComment:          {},
	TypeBranchCreated:          {},
	TypeBranchDeleted:          {},
	TypeReleasePublished:       {},
	TypeTagCreated:             {},
	TypeUnknown:                {},
}

// ParseType maps a raw type string onto the closed enumeration, failing
// closed to TypeUnknown.
func ParseType(raw string) Type {
	candidate := Type(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownTypes[candidate]; ok {
		return candidate
	}
	return TypeUnknown
}

// Label is one issue/PR label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CommitRef is one commit nested inside a push activity.
type CommitRef struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// Activity is one normalized unit of developer action. ID is deterministic
// from stable source fields, so the same underlying event always normalizes
// to the same ID regardless of the scope it was fetched through.
type Activity struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	Date        time.Time `json:"date"`
	Repo        string    `json:"repo"`
	Author      string    `json:"author"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Message     string    `json:"message"`
	FullMessage string    `json:"fullMessage,omitempty"`

	SHA          string      `json:"sha,omitempty"`
	ShortSHA     string      `json:"shortSha,omitempty"`
	Number       int         `json:"number,omitempty"`
	State        string      `json:"state,omitempty"`
	Branch       string      `json:"branch,omitempty"`
	BaseBranch   string      `json:"baseBranch,omitempty"`
	Additions    int         `json:"additions,omitempty"`
	Deletions    int         `json:"deletions,omitempty"`
	ChangedFiles int         `json:"changedFiles,omitempty"`
	Labels       []Label     `json:"labels,omitempty"`
	Commits      []CommitRef `json:"commits,omitempty"`
	Body         string      `json:"body,omitempty"`
	TagName      string      `json:"tagName,omitempty"`
	Path         string      `json:"path,omitempty"`
	Line         int         `json:"line,omitempty"`
	CommitCount  int         `json:"commitCount,omitempty"`
}

// RepoSummary is one repository visible in the organization.
type RepoSummary struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Language        string `json:"language,omitempty"`
	StargazersCount int    `json:"stargazersCount"`
}

// OrgSummary is one organization the token can see.
type OrgSummary struct {
	Login       string `json:"login"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Description string `json:"description,omitempty"`
}

// Progress is one transient progress emission during a fetch. Percentage is
// clamped to [0,100] and never decreases within one fetch session.
type Progress struct {
	Processed  int    `json:"processed"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Status     string `json:"status"`
	Cached     bool   `json:"cached,omitempty"`
}
