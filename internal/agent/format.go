package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sanctumos/code-buddy/internal/model"
)

// FormatEvent renders a stored event as a readable message for an agent:
// a short header, per-type detail lines, and the full event JSON for
// context.
func FormatEvent(event *model.Event) string {
	var b strings.Builder

	action := "unknown"
	if event.Action != nil && *event.Action != "" {
		action = *event.Action
	}
	repo := event.RepoFullName()
	if repo == "" {
		repo = "unknown repository"
	}
	sender := event.SenderLogin()
	if sender == "" {
		sender = "unknown user"
	}

	fmt.Fprintf(&b, "GitHub Event: %s - %s\n", event.EventType, action)
	fmt.Fprintf(&b, "Repository: %s\n", repo)
	fmt.Fprintf(&b, "User: %s\n", sender)

	switch event.EventType {
	case model.EventTypeIssues:
		if issue := event.Issue; issue != nil {
			fmt.Fprintf(&b, "Issue #%s: %s\n", formatNumber(issue.Number), orDefault(issue.Title, "No title"))
			if issue.Body != nil && *issue.Body != "" {
				fmt.Fprintf(&b, "Description: %s...\n", clip(*issue.Body, 200))
			}
		}
	case model.EventTypePullRequest:
		if pr := event.PullRequest; pr != nil {
			fmt.Fprintf(&b, "PR #%s: %s\n", formatNumber(pr.Number), orDefault(pr.Title, "No title"))
			if pr.Body != nil && *pr.Body != "" {
				fmt.Fprintf(&b, "Description: %s...\n", clip(*pr.Body, 200))
			}
		}
	case model.EventTypePush:
		if push := event.Push; push != nil {
			fmt.Fprintf(&b, "Commits: %d new commits\n", len(push.Commits))
			if len(push.Commits) > 0 {
				fmt.Fprintf(&b, "Latest: %s...\n", clip(orDefault(push.Commits[0].Message, "No message"), 100))
			}
		}
	}

	data, err := json.Marshal(event)
	if err == nil {
		fmt.Fprintf(&b, "\nFull event data: %s", data)
	}

	return b.String()
}

func formatNumber(n *int64) string {
	if n == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *n)
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
