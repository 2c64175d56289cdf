package model

import (
	"encoding/json"
	"time"
)

// Canonical event types. Any delivery whose type is not recognized keeps the
// source's type string verbatim; EventTypeUnknown is what the ingestion
// boundary substitutes when the source omits the type header entirely.
const (
	EventTypePush        = "push"
	EventTypeIssues      = "issues"
	EventTypePullRequest = "pull_request"
	EventTypeRelease     = "release"
	EventTypeUnknown     = "unknown"
	EventTypeParseError  = "parse_error"
)

// Event is the canonical unit of retained state: one normalized webhook
// delivery. DeliveryID is the source-assigned lookup key; it is never used
// for de-duplication. Timestamp is ingestion time (UTC), assigned by the
// normalizer, not trusted from the source.
type Event struct {
	Timestamp    time.Time           `json:"timestamp"`
	DeliveryID   string              `json:"delivery_id"`
	EventType    string              `json:"event_type"`
	Action       *string             `json:"action"`
	Repository   *Repository         `json:"repository"`
	Sender       *Sender             `json:"sender"`
	Organization *Organization       `json:"organization"`
	Push         *PushDetails        `json:"push,omitempty"`
	Issue        *IssueDetails       `json:"issue,omitempty"`
	PullRequest  *PullRequestDetails `json:"pull_request,omitempty"`
	Release      *ReleaseDetails     `json:"release,omitempty"`
	Error        *string             `json:"error,omitempty"`
	RawPayload   json.RawMessage     `json:"raw_payload,omitempty"`
}

type Repository struct {
	ID            *int64  `json:"id"`
	Name          *string `json:"name"`
	FullName      *string `json:"full_name"`
	URL           *string `json:"url"`
	Private       bool    `json:"private"`
	DefaultBranch *string `json:"default_branch"`
}

type Sender struct {
	ID        *int64  `json:"id"`
	Login     *string `json:"login"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}

type Organization struct {
	ID    *int64  `json:"id"`
	Login *string `json:"login"`
	Name  *string `json:"name"`
	URL   *string `json:"url"`
}

type PushDetails struct {
	Ref     *string  `json:"ref"`
	Before  *string  `json:"before"`
	After   *string  `json:"after"`
	Commits []Commit `json:"commits"`
	Pusher  *string  `json:"pusher"`
}

type Commit struct {
	ID      *string `json:"id"`
	Message *string `json:"message"`
	Author  *string `json:"author"`
	URL     *string `json:"url"`
}

type IssueDetails struct {
	ID        *int64   `json:"id"`
	Number    *int64   `json:"number"`
	Title     *string  `json:"title"`
	Body      *string  `json:"body"`
	State     *string  `json:"state"`
	Labels    []string `json:"labels"`
	Assignees []string `json:"assignees"`
	URL       *string  `json:"url"`
}

type PullRequestDetails struct {
	ID        *int64  `json:"id"`
	Number    *int64  `json:"number"`
	Title     *string `json:"title"`
	Body      *string `json:"body"`
	State     *string `json:"state"`
	Merged    *bool   `json:"merged"`
	Mergeable *bool   `json:"mergeable"`
	Head      GitRef  `json:"head"`
	Base      GitRef  `json:"base"`
	URL       *string `json:"url"`
}

type GitRef struct {
	Ref *string `json:"ref"`
	SHA *string `json:"sha"`
}

type ReleaseDetails struct {
	ID         *int64  `json:"id"`
	TagName    *string `json:"tag_name"`
	Name       *string `json:"name"`
	Body       *string `json:"body"`
	Draft      *bool   `json:"draft"`
	Prerelease *bool   `json:"prerelease"`
	URL        *string `json:"url"`
}

// RepoName returns the repository's display name, or "" when the delivery
// carried no repository.
func (e *Event) RepoName() string {
	if e.Repository == nil || e.Repository.Name == nil {
		return ""
	}
	return *e.Repository.Name
}

// RepoFullName returns the qualified owner/name form, or "" when absent.
func (e *Event) RepoFullName() string {
	if e.Repository == nil || e.Repository.FullName == nil {
		return ""
	}
	return *e.Repository.FullName
}

// SenderLogin returns the sender's login, or "" when absent.
func (e *Event) SenderLogin() string {
	if e.Sender == nil || e.Sender.Login == nil {
		return ""
	}
	return *e.Sender.Login
}
