package activity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DiveshKumarChordia/gitpulse-dashboard-sub000/internal/githubapi"
)

// messageRuneLimit caps the one-line summary; the untruncated text moves to
// FullMessage.
const messageRuneLimit = 120

// FromCommit normalizes one commit. ok=false means the payload was missing
// fields no activity can be built without.
func FromCommit(commit githubapi.Commit) (Activity, bool) {
	if commit.SHA == "" || commit.Repo == "" || commit.AuthoredAt.IsZero() {
		return Activity{}, false
	}
	summary, full := splitMessage(commit.Message)
	author := commit.AuthorLogin
	if author == "" {
		author = commit.AuthorName
	}
	return Activity{
		ID:          "commit:" + commit.Repo + "@" + commit.SHA,
		Type:        TypeCommit,
		Date:        commit.AuthoredAt,
		Repo:        commit.Repo,
		Author:      author,
		AvatarURL:   commit.AvatarURL,
		Message:     summary,
		FullMessage: full,
		SHA:         commit.SHA,
		ShortSHA:    shortSHA(commit.SHA),
	}, true
}

// FromIssue normalizes one issue/PR search result. Plain issues carry no
// activity type of their own and are skipped.
func FromIssue(issue githubapi.Issue) (Activity, bool) {
	if !issue.IsPull {
		return Activity{}, false
	}
	if issue.Repo == "" || issue.Number == 0 {
		return Activity{}, false
	}

	kind, date := pullKind(issue.State, issue.MergedAt, issue.CreatedAt, issue.ClosedAt)
	if date.IsZero() {
		return Activity{}, false
	}
	summary, full := splitMessage(issue.Title)
	act := Activity{
		ID:          fmt.Sprintf("pr:%s#%d", issue.Repo, issue.Number),
		Type:        kind,
		Date:        date,
		Repo:        issue.Repo,
		Author:      issue.AuthorLogin,
		AvatarURL:   issue.AvatarURL,
		Message:     summary,
		FullMessage: full,
		Number:      issue.Number,
		State:       issue.State,
		Body:        issue.Body,
	}
	for _, label := range issue.Labels {
		act.Labels = append(act.Labels, Label{Name: label.Name, Color: label.Color})
	}
	return act, true
}

// FromPull normalizes one pull request from the repo pulls endpoint.
func FromPull(pull githubapi.Pull) (Activity, bool) {
	if pull.Repo == "" || pull.Number == 0 {
		return Activity{}, false
	}
	kind, date := pullKind(pull.State, pull.MergedAt, pull.CreatedAt, pull.ClosedAt)
	if date.IsZero() {
		return Activity{}, false
	}
	summary, full := splitMessage(pull.Title)
	act := Activity{
		ID:          fmt.Sprintf("pr:%s#%d", pull.Repo, pull.Number),
		Type:        kind,
		Date:        date,
		Repo:        pull.Repo,
		Author:      pull.AuthorLogin,
		AvatarURL:   pull.AvatarURL,
		Message:     summary,
		FullMessage: full,
		Number:      pull.Number,
		State:       pull.State,
		Branch:      pull.Branch,
		BaseBranch:  pull.BaseBranch,
		Body:        pull.Body,
	}
	for _, label := range pull.Labels {
		act.Labels = append(act.Labels, Label{Name: label.Name, Color: label.Color})
	}
	return act, true
}

// FromReview normalizes one pull request review submission.
func FromReview(review githubapi.Review) (Activity, bool) {
	if review.Repo == "" || review.ID == 0 || review.SubmittedAt.IsZero() {
		return Activity{}, false
	}

	var kind Type
	switch strings.ToUpper(review.State) {
	case "APPROVED":
		kind = TypeReviewApproved
	case "CHANGES_REQUESTED":
		kind = TypeReviewChangesRequested
	case "COMMENTED":
		kind = TypeReviewCommented
	default:
		return Activity{}, false
	}

	summary, full := splitMessage(review.Body)
	if summary == "" {
		summary = fmt.Sprintf("Reviewed #%d", review.PullNumber)
	}
	return Activity{
		ID:        fmt.Sprintf("review:%s#%d:%d", review.Repo, review.PullNumber, review.ID),
		Type:      kind,
		Date:      review.SubmittedAt,
		Repo:      review.Repo,
		Author:    review.AuthorLogin,
		AvatarURL: review.AvatarURL,
		Message:   summary,
		Body:      full,
		Number:    review.PullNumber,
		State:     review.State,
	}, true
}

// FromComment normalizes one issue or pull request comment.
func FromComment(comment githubapi.Comment) (Activity, bool) {
	if comment.Repo == "" || comment.ID == 0 || comment.CreatedAt.IsZero() {
		return Activity{}, false
	}
	kind := TypeIssueComment
	if comment.OnPull {
		kind = TypePRComment
	}
	summary, full := splitMessage(comment.Body)
	return Activity{
		ID:          fmt.Sprintf("comment:%s:%d", comment.Repo, comment.ID),
		Type:        kind,
		Date:        comment.CreatedAt,
		Repo:        comment.Repo,
		Author:      comment.AuthorLogin,
		AvatarURL:   comment.AvatarURL,
		Message:     summary,
		FullMessage: full,
		Body:        comment.Body,
	}, true
}

// FromReviewComment normalizes one inline review comment.
func FromReviewComment(comment githubapi.ReviewComment) (Activity, bool) {
	if comment.Repo == "" || comment.ID == 0 || comment.CreatedAt.IsZero() {
		return Activity{}, false
	}
	summary, full := splitMessage(comment.Body)
	return Activity{
		ID:          fmt.Sprintf("review_comment:%s:%d", comment.Repo, comment.ID),
		Type:        TypeReviewComment,
		Date:        comment.CreatedAt,
		Repo:        comment.Repo,
		Author:      comment.AuthorLogin,
		AvatarURL:   comment.AvatarURL,
		Message:     summary,
		FullMessage: full,
		Body:        comment.Body,
		Path:        comment.Path,
		Line:        comment.Line,
	}, true
}

// FromRelease normalizes one published release.
func FromRelease(release githubapi.Release) (Activity, bool) {
	if release.Repo == "" || release.TagName == "" || release.PublishedAt.IsZero() {
		return Activity{}, false
	}
	name := release.Name
	if name == "" {
		name = release.TagName
	}
	summary, _ := splitMessage(name)
	return Activity{
		ID:        "release:" + release.Repo + ":" + release.TagName,
		Type:      TypeReleasePublished,
		Date:      release.PublishedAt,
		Repo:      release.Repo,
		Author:    release.AuthorLogin,
		Message:   summary,
		Body:      release.Body,
		TagName:   release.TagName,
	}, true
}

// FromEvent normalizes one public feed event. Recognized kinds map to their
// specific types; unrecognized-but-well-formed kinds become TypeUnknown so
// the feed still renders them generically. Malformed entries are skipped.
func FromEvent(event githubapi.Event) (Activity, bool) {
	if event.ID == "" || event.Repo == "" || event.CreatedAt.IsZero() {
		return Activity{}, false
	}

	base := Activity{
		Date:      event.CreatedAt,
		Repo:      event.Repo,
		Author:    event.Actor,
		AvatarURL: event.AvatarURL,
	}

	switch event.Kind {
	case "PushEvent":
		return normalizePushEvent(event, base)
	case "CreateEvent":
		return normalizeCreateEvent(event, base)
	case "DeleteEvent":
		return normalizeDeleteEvent(event, base)
	case "ReleaseEvent":
		return normalizeReleaseEvent(event, base)
	case "PullRequestEvent":
		return normalizePullRequestEvent(event, base)
	case "IssueCommentEvent":
		return normalizeIssueCommentEvent(event, base)
	case "PullRequestReviewEvent":
		return normalizeReviewEvent(event, base)
	case "PullRequestReviewCommentEvent":
		return normalizeReviewCommentEvent(event, base)
	case "CommitCommentEvent":
		return normalizeCommitCommentEvent(event, base)
	default:
		base.ID = "event:" + event.ID
		base.Type = TypeUnknown
		base.Message = strings.TrimSuffix(event.Kind, "Event")
		return base, true
	}
}

func normalizePushEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload pushEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || len(payload.Commits) == 0 {
		return Activity{}, false
	}

	head := payload.Commits[len(payload.Commits)-1]
	summary, full := splitMessage(head.Message)
	base.ID = "push:" + event.Repo + "@" + head.SHA
	base.Type = TypePush
	base.Message = summary
	base.FullMessage = full
	base.Branch = branchFromRef(payload.Ref)
	base.SHA = head.SHA
	base.ShortSHA = shortSHA(head.SHA)
	base.CommitCount = len(payload.Commits)
	for _, commit := range payload.Commits {
		base.Commits = append(base.Commits, CommitRef{SHA: commit.SHA, Message: firstLineOf(commit.Message)})
	}
	return base, true
}

func normalizeCreateEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload refEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Ref == "" {
		return Activity{}, false
	}
	switch payload.RefType {
	case "branch":
		base.Type = TypeBranchCreated
		base.Branch = payload.Ref
		base.Message = "Created branch " + payload.Ref
	case "tag":
		base.Type = TypeTagCreated
		base.TagName = payload.Ref
		base.Message = "Created tag " + payload.Ref
	default:
		return Activity{}, false
	}
	base.ID = fmt.Sprintf("%s:%s:%s", payload.RefType+"_created", event.Repo, payload.Ref)
	return base, true
}

func normalizeDeleteEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload refEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.RefType != "branch" || payload.Ref == "" {
		return Activity{}, false
	}
	base.ID = "branch_deleted:" + event.Repo + ":" + payload.Ref + ":" + event.ID
	base.Type = TypeBranchDeleted
	base.Branch = payload.Ref
	base.Message = "Deleted branch " + payload.Ref
	return base, true
}

func normalizeReleaseEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload releaseEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Release.TagName == "" {
		return Activity{}, false
	}
	return FromRelease(githubapi.Release{
		Repo:        event.Repo,
		TagName:     payload.Release.TagName,
		Name:        payload.Release.Name,
		Body:        payload.Release.Body,
		AuthorLogin: event.Actor,
		PublishedAt: event.CreatedAt,
	})
}

func normalizePullRequestEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload pullRequestEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.PullRequest.Number == 0 {
		return Activity{}, false
	}

	pr := payload.PullRequest
	switch payload.Action {
	case "opened":
		base.Type = TypePROpened
	case "reopened":
		base.Type = TypePRReopened
	case "closed":
		base.Type = TypePRClosed
		if pr.Merged {
			base.Type = TypePRMerged
		}
	default:
		return Activity{}, false
	}

	summary, full := splitMessage(pr.Title)
	base.ID = fmt.Sprintf("pr:%s#%d", event.Repo, pr.Number)
	base.Message = summary
	base.FullMessage = full
	base.Number = pr.Number
	base.State = pr.State
	base.Branch = pr.Head.Ref
	base.BaseBranch = pr.Base.Ref
	base.Additions = pr.Additions
	base.Deletions = pr.Deletions
	base.ChangedFiles = pr.ChangedFiles
	return base, true
}

func normalizeIssueCommentEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload issueCommentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Comment.ID == 0 {
		return Activity{}, false
	}
	return FromComment(githubapi.Comment{
		ID:          payload.Comment.ID,
		Repo:        event.Repo,
		Body:        payload.Comment.Body,
		AuthorLogin: event.Actor,
		AvatarURL:   event.AvatarURL,
		CreatedAt:   event.CreatedAt,
		OnPull:      payload.Issue.PullRequest != nil,
	})
}

func normalizeReviewEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload reviewEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Review.ID == 0 {
		return Activity{}, false
	}
	return FromReview(githubapi.Review{
		ID:          payload.Review.ID,
		Repo:        event.Repo,
		PullNumber:  payload.PullRequest.Number,
		State:       payload.Review.State,
		Body:        payload.Review.Body,
		AuthorLogin: event.Actor,
		AvatarURL:   event.AvatarURL,
		SubmittedAt: event.CreatedAt,
	})
}

func normalizeReviewCommentEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload reviewCommentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Comment.ID == 0 {
		return Activity{}, false
	}
	return FromReviewComment(githubapi.ReviewComment{
		ID:          payload.Comment.ID,
		Repo:        event.Repo,
		Body:        payload.Comment.Body,
		Path:        payload.Comment.Path,
		Line:        payload.Comment.Line,
		AuthorLogin: event.Actor,
		AvatarURL:   event.AvatarURL,
		CreatedAt:   event.CreatedAt,
	})
}

func normalizeCommitCommentEvent(event githubapi.Event, base Activity) (Activity, bool) {
	var payload commitCommentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.Comment.ID == 0 {
		return Activity{}, false
	}
	summary, full := splitMessage(payload.Comment.Body)
	base.ID = fmt.Sprintf("commit_comment:%s:%d", event.Repo, payload.Comment.ID)
	base.Type = TypeCommitComment
	base.Message = summary
	base.FullMessage = full
	base.Body = payload.Comment.Body
	base.SHA = payload.Comment.CommitID
	base.ShortSHA = shortSHA(payload.Comment.CommitID)
	return base, true
}

// pullKind picks the activity type and representative timestamp for one
// pull request snapshot.
func pullKind(state string, mergedAt, createdAt, closedAt time.Time) (Type, time.Time) {
	switch {
	case !mergedAt.IsZero():
		return TypePRMerged, mergedAt
	case strings.EqualFold(state, "closed"):
		if closedAt.IsZero() {
			return TypePRClosed, createdAt
		}
		return TypePRClosed, closedAt
	default:
		return TypePROpened, createdAt
	}
}

// splitMessage returns the first line capped to the summary limit, plus the
// full text when anything was cut.
func splitMessage(raw string) (summary, full string) {
	trimmed := strings.TrimSpace(raw)
	line := firstLineOf(trimmed)
	runes := []rune(line)
	if len(runes) > messageRuneLimit {
		line = string(runes[:messageRuneLimit-1]) + "…"
	}
	if line != trimmed {
		return line, trimmed
	}
	return line, ""
}

func firstLineOf(raw string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	return strings.TrimSpace(line)
}

func shortSHA(sha string) string {
	if len(sha) <= 7 {
		return sha
	}
	return sha[:7]
}

func branchFromRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

type pushEventPayload struct {
	Ref     string `json:"ref"`
	Commits []struct {
		SHA     string `json:"sha"`
		Message string `json:"message"`
	} `json:"commits"`
}

type refEventPayload struct {
	Ref     string `json:"ref"`
	RefType string `json:"ref_type"`
}

type releaseEventPayload struct {
	Release struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
		Body    string `json:"body"`
	} `json:"release"`
}

type pullRequestEventPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number       int    `json:"number"`
		Title        string `json:"title"`
		State        string `json:"state"`
		Merged       bool   `json:"merged"`
		Additions    int    `json:"additions"`
		Deletions    int    `json:"deletions"`
		ChangedFiles int    `json:"changed_files"`
		Head         struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
}

type issueCommentEventPayload struct {
	Issue struct {
		PullRequest *struct{} `json:"pull_request"`
	} `json:"issue"`
	Comment struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
	} `json:"comment"`
}

type reviewEventPayload struct {
	Review struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
		Body  string `json:"body"`
	} `json:"review"`
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
}

type reviewCommentEventPayload struct {
	Comment struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
		Path string `json:"path"`
		Line int    `json:"line"`
	} `json:"comment"`
}

type commitCommentEventPayload struct {
	Comment struct {
		ID       int64  `json:"id"`
		Body     string `json:"body"`
		CommitID string `json:"commit_id"`
	} `json:"comment"`
}
