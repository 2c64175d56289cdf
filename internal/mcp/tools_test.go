package mcp_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sanctumos/code-buddy/internal/mcp"
	"github.com/sanctumos/code-buddy/internal/model"
	"github.com/sanctumos/code-buddy/internal/service"
	"github.com/sanctumos/code-buddy/internal/store"
)

func seedLog(ctx context.Context, dir string) *store.EventLog {
	log := store.NewEventLog(filepath.Join(dir, "events.json"), 100, nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	name := "widgets"
	fullName := "acme/widgets"
	repo := &model.Repository{Name: &name, FullName: &fullName}

	log.Append(ctx, model.Event{Timestamp: base, DeliveryID: "d1", EventType: "push", Repository: repo})
	log.Append(ctx, model.Event{Timestamp: base.Add(time.Second), DeliveryID: "d2", EventType: "issues", Repository: repo})
	return log
}

var _ = Describe("EventTools", func() {
	var (
		ctx   context.Context
		tools map[string]mcp.Tool
	)

	BeforeEach(func() {
		ctx = context.Background()
		queries := service.NewEventQueryService(seedLog(ctx, GinkgoT().TempDir()))

		tools = make(map[string]mcp.Tool)
		for _, tool := range mcp.EventTools(queries) {
			tools[tool.Name] = tool
		}
	})

	It("exposes the three event tools with input schemas", func() {
		Expect(tools).To(HaveLen(3))
		for _, name := range []string{"get_recent_events", "get_event_stats", "get_event_by_id"} {
			Expect(tools).To(HaveKey(name))
			Expect(tools[name].InputSchema).NotTo(BeNil())
			Expect(tools[name].Description).NotTo(BeEmpty())
		}
		Expect(tools["get_event_by_id"].InputSchema.Required).To(ContainElement("delivery_id"))
	})

	Describe("get_recent_events", func() {
		It("lists events newest first", func() {
			value, err := tools["get_recent_events"].Handler(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			list, ok := value.(*service.EventList)
			Expect(ok).To(BeTrue())
			Expect(list.Count).To(Equal(2))
			Expect(list.Events[0].DeliveryID).To(Equal("d2"))
		})

		It("applies filters from the arguments", func() {
			value, err := tools["get_recent_events"].Handler(ctx, json.RawMessage(`{"event_type": "push"}`))
			Expect(err).NotTo(HaveOccurred())

			list := value.(*service.EventList)
			Expect(list.Count).To(Equal(1))
			Expect(list.Events[0].DeliveryID).To(Equal("d1"))
		})

		It("rejects malformed arguments", func() {
			_, err := tools["get_recent_events"].Handler(ctx, json.RawMessage(`{"limit": "ten"}`))
			Expect(err).To(MatchError(ContainSubstring("invalid arguments")))
		})
	})

	Describe("get_event_stats", func() {
		It("summarizes the retained events", func() {
			value, err := tools["get_event_stats"].Handler(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			stats, ok := value.(store.Stats)
			Expect(ok).To(BeTrue())
			Expect(stats.TotalEvents).To(Equal(2))
			Expect(stats.Repositories).To(Equal([]string{"acme/widgets"}))
		})
	})

	Describe("get_event_by_id", func() {
		It("returns the matching event", func() {
			value, err := tools["get_event_by_id"].Handler(ctx, json.RawMessage(`{"delivery_id": "d1"}`))
			Expect(err).NotTo(HaveOccurred())

			event, ok := value.(*model.Event)
			Expect(ok).To(BeTrue())
			Expect(event.EventType).To(Equal("push"))
		})

		It("requires a delivery ID", func() {
			_, err := tools["get_event_by_id"].Handler(ctx, json.RawMessage(`{}`))
			Expect(err).To(MatchError(ContainSubstring("delivery_id is required")))
		})

		It("reports an unknown delivery ID", func() {
			_, err := tools["get_event_by_id"].Handler(ctx, json.RawMessage(`{"delivery_id": "nope"}`))
			Expect(err).To(MatchError(ContainSubstring("'nope' not found")))
		})
	})
})
