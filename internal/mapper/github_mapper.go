package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sanctumos/code-buddy/internal/model"
)

// EventMapper normalizes a loosely-typed webhook payload into a canonical
// Event record.
type EventMapper interface {
	Map(ctx context.Context, payload map[string]any, eventType, deliveryID string, raw json.RawMessage) *model.Event
}

// GitHubEventMapper maps GitHub webhook payloads. It never fails: payloads
// with missing or mistyped sections produce nil sub-records, and an internal
// panic degrades to a parse_error record that the admission filter drops.
type GitHubEventMapper struct {
	logger *slog.Logger
}

func NewGitHubEventMapper(logger *slog.Logger) *GitHubEventMapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubEventMapper{logger: logger}
}

func (m *GitHubEventMapper) Map(ctx context.Context, payload map[string]any, eventType, deliveryID string, raw json.RawMessage) (event *model.Event) {
	now := time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "event normalization failed",
				"error", fmt.Sprint(r),
				"event_type", eventType,
				"delivery_id", deliveryID,
			)
			msg := fmt.Sprint(r)
			event = &model.Event{
				Timestamp:  now,
				DeliveryID: deliveryID,
				EventType:  model.EventTypeParseError,
				Error:      &msg,
				RawPayload: raw,
			}
		}
	}()

	if eventType == "" {
		eventType = model.EventTypeUnknown
	}
	if deliveryID == "" {
		deliveryID = model.EventTypeUnknown
	}

	event = &model.Event{
		Timestamp:    now,
		DeliveryID:   deliveryID,
		EventType:    eventType,
		Action:       getString(payload, "action"),
		Repository:   m.extractRepository(payload),
		Sender:       m.extractSender(payload),
		Organization: m.extractOrganization(payload),
		RawPayload:   raw,
	}

	switch eventType {
	case model.EventTypePush:
		event.Push = m.extractPush(payload)
	case model.EventTypeIssues:
		event.Issue = m.extractIssue(payload)
	case model.EventTypePullRequest:
		event.PullRequest = m.extractPullRequest(payload)
	case model.EventTypeRelease:
		event.Release = m.extractRelease(payload)
	}

	return event
}

func (m *GitHubEventMapper) extractRepository(payload map[string]any) *model.Repository {
	repo := getMap(payload, "repository")
	if repo == nil {
		return nil
	}
	return &model.Repository{
		ID:            getInt64(repo, "id"),
		Name:          getString(repo, "name"),
		FullName:      getString(repo, "full_name"),
		URL:           getString(repo, "html_url"),
		Private:       getBoolOr(repo, "private", false),
		DefaultBranch: getString(repo, "default_branch"),
	}
}

func (m *GitHubEventMapper) extractSender(payload map[string]any) *model.Sender {
	sender := getMap(payload, "sender")
	if sender == nil {
		return nil
	}
	return &model.Sender{
		ID:        getInt64(sender, "id"),
		Login:     getString(sender, "login"),
		Name:      getString(sender, "name"),
		Email:     getString(sender, "email"),
		AvatarURL: getString(sender, "avatar_url"),
	}
}

func (m *GitHubEventMapper) extractOrganization(payload map[string]any) *model.Organization {
	org := getMap(payload, "organization")
	if org == nil {
		return nil
	}
	return &model.Organization{
		ID:    getInt64(org, "id"),
		Login: getString(org, "login"),
		Name:  getString(org, "name"),
		URL:   getString(org, "html_url"),
	}
}

func (m *GitHubEventMapper) extractPush(payload map[string]any) *model.PushDetails {
	details := &model.PushDetails{
		Ref:    getString(payload, "ref"),
		Before: getString(payload, "before"),
		After:  getString(payload, "after"),
	}

	// Commit order from the source is preserved.
	for _, item := range getSlice(payload, "commits") {
		commit, ok := item.(map[string]any)
		if !ok {
			continue
		}
		author := getMap(commit, "author")
		details.Commits = append(details.Commits, model.Commit{
			ID:      getString(commit, "id"),
			Message: getString(commit, "message"),
			Author:  getString(author, "name"),
			URL:     getString(commit, "url"),
		})
	}

	if pusher := getMap(payload, "pusher"); pusher != nil {
		details.Pusher = getString(pusher, "name")
	}

	return details
}

func (m *GitHubEventMapper) extractIssue(payload map[string]any) *model.IssueDetails {
	issue := getMap(payload, "issue")

	details := &model.IssueDetails{
		ID:     getInt64(issue, "id"),
		Number: getInt64(issue, "number"),
		Title:  getString(issue, "title"),
		Body:   getString(issue, "body"),
		State:  getString(issue, "state"),
		URL:    getString(issue, "html_url"),
	}

	for _, item := range getSlice(issue, "labels") {
		if label, ok := item.(map[string]any); ok {
			if name := getString(label, "name"); name != nil {
				details.Labels = append(details.Labels, *name)
			}
		}
	}
	for _, item := range getSlice(issue, "assignees") {
		if assignee, ok := item.(map[string]any); ok {
			if login := getString(assignee, "login"); login != nil {
				details.Assignees = append(details.Assignees, *login)
			}
		}
	}

	return details
}

func (m *GitHubEventMapper) extractPullRequest(payload map[string]any) *model.PullRequestDetails {
	pr := getMap(payload, "pull_request")
	head := getMap(pr, "head")
	base := getMap(pr, "base")

	return &model.PullRequestDetails{
		ID:        getInt64(pr, "id"),
		Number:    getInt64(pr, "number"),
		Title:     getString(pr, "title"),
		Body:      getString(pr, "body"),
		State:     getString(pr, "state"),
		Merged:    getBool(pr, "merged"),
		Mergeable: getBool(pr, "mergeable"),
		Head: model.GitRef{
			Ref: getString(head, "ref"),
			SHA: getString(head, "sha"),
		},
		Base: model.GitRef{
			Ref: getString(base, "ref"),
			SHA: getString(base, "sha"),
		},
		URL: getString(pr, "html_url"),
	}
}

func (m *GitHubEventMapper) extractRelease(payload map[string]any) *model.ReleaseDetails {
	release := getMap(payload, "release")

	return &model.ReleaseDetails{
		ID:         getInt64(release, "id"),
		TagName:    getString(release, "tag_name"),
		Name:       getString(release, "name"),
		Body:       getString(release, "body"),
		Draft:      getBool(release, "draft"),
		Prerelease: getBool(release, "prerelease"),
		URL:        getString(release, "html_url"),
	}
}
