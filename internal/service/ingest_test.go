package service_test

import (
	"context"
	"encoding/json"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sanctumos/code-buddy/internal/mapper"
	"github.com/sanctumos/code-buddy/internal/metrics"
	"github.com/sanctumos/code-buddy/internal/model"
	"github.com/sanctumos/code-buddy/internal/service"
	"github.com/sanctumos/code-buddy/internal/store"
)

type capturingNotifier struct {
	events chan *model.Event
}

func (n *capturingNotifier) NotifyEvent(ctx context.Context, event *model.Event) error {
	n.events <- event
	return nil
}

func ingestParams(eventType, deliveryID, raw string) service.EventIngestParams {
	var payload map[string]any
	Expect(json.Unmarshal([]byte(raw), &payload)).To(Succeed())
	return service.EventIngestParams{
		EventType:  eventType,
		DeliveryID: deliveryID,
		Payload:    payload,
		Raw:        json.RawMessage(raw),
	}
}

var _ = Describe("EventIngestService", func() {
	var (
		ctx      context.Context
		eventLog *store.EventLog
		notifier *capturingNotifier
		ingest   service.EventIngestService
	)

	BeforeEach(func() {
		ctx = context.Background()
		eventLog = store.NewEventLog(filepath.Join(GinkgoT().TempDir(), "events.json"), 10, nil)
		notifier = &capturingNotifier{events: make(chan *model.Event, 8)}
		ingest = service.NewEventIngestService(
			mapper.NewGitHubEventMapper(nil),
			service.NewAdmissionFilter(nil),
			eventLog,
			notifier,
			metrics.New(),
			nil,
		)
	})

	It("stores an admitted event and reports it processed", func() {
		raw := `{"action": "opened", "repository": {"name": "widgets", "full_name": "acme/widgets"}, "issue": {"number": 1}}`
		result, err := ingest.Ingest(ctx, ingestParams("issues", "delivery-1", raw))

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(service.StatusProcessed))
		Expect(result.EventID).To(Equal("delivery-1"))
		Expect(result.EventCount).To(Equal(int64(1)))
		Expect(result.ProcessedAt).NotTo(BeZero())

		Expect(eventLog.Len()).To(Equal(1))
		stored, err := eventLog.GetByID("delivery-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.EventType).To(Equal("issues"))
	})

	It("skips filtered events without storing them", func() {
		raw := `{"repository": {"name": "test-repo", "full_name": "acme/test-repo"}}`
		result, err := ingest.Ingest(ctx, ingestParams("push", "delivery-2", raw))

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status).To(Equal(service.StatusSkipped))
		Expect(result.EventID).To(BeEmpty())
		Expect(eventLog.Len()).To(BeZero())
	})

	It("notifies the agent after storing", func() {
		raw := `{"action": "opened", "repository": {"name": "widgets", "full_name": "acme/widgets"}}`
		_, err := ingest.Ingest(ctx, ingestParams("issues", "delivery-3", raw))
		Expect(err).NotTo(HaveOccurred())

		var notified *model.Event
		Eventually(notifier.events).Should(Receive(&notified))
		Expect(notified.DeliveryID).To(Equal("delivery-3"))
	})

	It("does not notify for skipped events", func() {
		raw := `{"repository": {"name": "test-repo"}}`
		_, err := ingest.Ingest(ctx, ingestParams("push", "delivery-4", raw))
		Expect(err).NotTo(HaveOccurred())

		Consistently(notifier.events).ShouldNot(Receive())
	})

	It("counts stored events across calls", func() {
		raw := `{"repository": {"name": "widgets", "full_name": "acme/widgets"}}`
		for i := 0; i < 3; i++ {
			_, err := ingest.Ingest(ctx, ingestParams("push", "delivery", raw))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(ingest.ProcessedCount()).To(Equal(int64(3)))
	})
})
