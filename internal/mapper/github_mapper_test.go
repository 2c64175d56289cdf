package mapper_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sanctumos/code-buddy/internal/mapper"
	"github.com/sanctumos/code-buddy/internal/model"
)

func decodePayload(raw string) map[string]any {
	var payload map[string]any
	Expect(json.Unmarshal([]byte(raw), &payload)).To(Succeed())
	return payload
}

var _ = Describe("GitHubEventMapper", func() {
	var (
		ctx context.Context
		m   *mapper.GitHubEventMapper
	)

	BeforeEach(func() {
		ctx = context.Background()
		m = mapper.NewGitHubEventMapper(nil)
	})

	It("maps the common sections of every delivery", func() {
		raw := `{
			"action": "opened",
			"repository": {
				"id": 42,
				"name": "widgets",
				"full_name": "acme/widgets",
				"html_url": "https://github.com/acme/widgets",
				"private": true,
				"default_branch": "main"
			},
			"sender": {"id": 7, "login": "octocat", "avatar_url": "https://avatars.test/7"},
			"organization": {"id": 99, "login": "acme"}
		}`
		event := m.Map(ctx, decodePayload(raw), "issues", "delivery-1", json.RawMessage(raw))

		Expect(event.EventType).To(Equal("issues"))
		Expect(event.DeliveryID).To(Equal("delivery-1"))
		Expect(event.Action).To(HaveValue(Equal("opened")))
		Expect(event.Timestamp).NotTo(BeZero())

		Expect(event.Repository).NotTo(BeNil())
		Expect(event.Repository.ID).To(HaveValue(Equal(int64(42))))
		Expect(event.Repository.FullName).To(HaveValue(Equal("acme/widgets")))
		Expect(event.Repository.Private).To(BeTrue())
		Expect(event.Repository.DefaultBranch).To(HaveValue(Equal("main")))

		Expect(event.Sender.Login).To(HaveValue(Equal("octocat")))
		Expect(event.Organization.Login).To(HaveValue(Equal("acme")))
		Expect(string(event.RawPayload)).To(Equal(raw))
	})

	It("leaves absent sections nil without panicking", func() {
		event := m.Map(ctx, decodePayload(`{"zen": "Design for failure."}`), "ping", "delivery-2", nil)

		Expect(event.Repository).To(BeNil())
		Expect(event.Sender).To(BeNil())
		Expect(event.Organization).To(BeNil())
		Expect(event.Action).To(BeNil())
		Expect(event.RepoFullName()).To(BeEmpty())
	})

	It("tolerates mistyped sections", func() {
		raw := `{"repository": "not an object", "sender": 12, "action": 3}`
		event := m.Map(ctx, decodePayload(raw), "issues", "delivery-3", nil)

		Expect(event.Repository).To(BeNil())
		Expect(event.Sender).To(BeNil())
		Expect(event.Action).To(BeNil())
		Expect(event.Issue).NotTo(BeNil())
	})

	It("substitutes unknown for missing type and delivery metadata", func() {
		event := m.Map(ctx, decodePayload(`{}`), "", "", nil)

		Expect(event.EventType).To(Equal(model.EventTypeUnknown))
		Expect(event.DeliveryID).To(Equal(model.EventTypeUnknown))
	})

	Describe("push events", func() {
		It("extracts refs, ordered commits, and the pusher", func() {
			raw := `{
				"ref": "refs/heads/main",
				"before": "aaa111",
				"after": "bbb222",
				"pusher": {"name": "octocat"},
				"commits": [
					{"id": "c1", "message": "first", "author": {"name": "Ada"}, "url": "https://c/1"},
					{"id": "c2", "message": "second", "author": {"name": "Grace"}, "url": "https://c/2"}
				]
			}`
			event := m.Map(ctx, decodePayload(raw), "push", "delivery-4", nil)

			Expect(event.Push).NotTo(BeNil())
			Expect(event.Push.Ref).To(HaveValue(Equal("refs/heads/main")))
			Expect(event.Push.Before).To(HaveValue(Equal("aaa111")))
			Expect(event.Push.After).To(HaveValue(Equal("bbb222")))
			Expect(event.Push.Pusher).To(HaveValue(Equal("octocat")))

			Expect(event.Push.Commits).To(HaveLen(2))
			Expect(event.Push.Commits[0].Message).To(HaveValue(Equal("first")))
			Expect(event.Push.Commits[0].Author).To(HaveValue(Equal("Ada")))
			Expect(event.Push.Commits[1].ID).To(HaveValue(Equal("c2")))
		})

		It("skips commit entries that are not objects", func() {
			raw := `{"commits": ["garbage", {"id": "c1", "message": "ok"}]}`
			event := m.Map(ctx, decodePayload(raw), "push", "delivery-5", nil)

			Expect(event.Push.Commits).To(HaveLen(1))
			Expect(event.Push.Commits[0].ID).To(HaveValue(Equal("c1")))
		})
	})

	Describe("issues events", func() {
		It("extracts issue details with label and assignee names", func() {
			raw := `{
				"action": "opened",
				"issue": {
					"id": 1001,
					"number": 42,
					"title": "Panic on empty input",
					"body": "Steps to reproduce...",
					"state": "open",
					"html_url": "https://github.com/acme/widgets/issues/42",
					"labels": [{"name": "bug"}, {"name": "p1"}],
					"assignees": [{"login": "octocat"}]
				}
			}`
			event := m.Map(ctx, decodePayload(raw), "issues", "delivery-6", nil)

			Expect(event.Issue).NotTo(BeNil())
			Expect(event.Issue.Number).To(HaveValue(Equal(int64(42))))
			Expect(event.Issue.Title).To(HaveValue(Equal("Panic on empty input")))
			Expect(event.Issue.State).To(HaveValue(Equal("open")))
			Expect(event.Issue.Labels).To(Equal([]string{"bug", "p1"}))
			Expect(event.Issue.Assignees).To(Equal([]string{"octocat"}))
		})
	})

	Describe("pull_request events", func() {
		It("extracts head and base refs", func() {
			raw := `{
				"pull_request": {
					"id": 2002,
					"number": 7,
					"title": "Add retry",
					"state": "open",
					"merged": false,
					"mergeable": true,
					"head": {"ref": "feature/retry", "sha": "abc123"},
					"base": {"ref": "main", "sha": "def456"}
				}
			}`
			event := m.Map(ctx, decodePayload(raw), "pull_request", "delivery-7", nil)

			Expect(event.PullRequest).NotTo(BeNil())
			Expect(event.PullRequest.Number).To(HaveValue(Equal(int64(7))))
			Expect(event.PullRequest.Merged).To(HaveValue(BeFalse()))
			Expect(event.PullRequest.Mergeable).To(HaveValue(BeTrue()))
			Expect(event.PullRequest.Head.Ref).To(HaveValue(Equal("feature/retry")))
			Expect(event.PullRequest.Base.SHA).To(HaveValue(Equal("def456")))
		})
	})

	Describe("release events", func() {
		It("extracts release details", func() {
			raw := `{
				"release": {
					"id": 3003,
					"tag_name": "v1.2.0",
					"name": "Summer release",
					"draft": false,
					"prerelease": true,
					"html_url": "https://github.com/acme/widgets/releases/v1.2.0"
				}
			}`
			event := m.Map(ctx, decodePayload(raw), "release", "delivery-8", nil)

			Expect(event.Release).NotTo(BeNil())
			Expect(event.Release.TagName).To(HaveValue(Equal("v1.2.0")))
			Expect(event.Release.Prerelease).To(HaveValue(BeTrue()))
			Expect(event.Release.Draft).To(HaveValue(BeFalse()))
		})
	})

	It("keeps unrecognized event types without detail records", func() {
		event := m.Map(ctx, decodePayload(`{"action": "created"}`), "deployment_status", "delivery-9", nil)

		Expect(event.EventType).To(Equal("deployment_status"))
		Expect(event.Push).To(BeNil())
		Expect(event.Issue).To(BeNil())
		Expect(event.PullRequest).To(BeNil())
		Expect(event.Release).To(BeNil())
	})
})
