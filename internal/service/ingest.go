package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sanctumos/code-buddy/common/logger"
	"github.com/sanctumos/code-buddy/internal/agent"
	"github.com/sanctumos/code-buddy/internal/mapper"
	"github.com/sanctumos/code-buddy/internal/metrics"
	"github.com/sanctumos/code-buddy/internal/model"
	"github.com/sanctumos/code-buddy/internal/store"
)

// Ingest outcome statuses, surfaced verbatim to the HTTP layer.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
)

type EventIngestParams struct {
	EventType  string          `json:"event_type"`
	DeliveryID string          `json:"delivery_id"`
	Payload    map[string]any  `json:"payload"`
	Raw        json.RawMessage `json:"raw"`
}

type EventIngestResult struct {
	ProcessedAt time.Time    `json:"processed_at"`
	Status      string       `json:"status"`
	EventID     string       `json:"event_id,omitempty"`
	EventCount  int64        `json:"event_count,omitempty"`
	Event       *model.Event `json:"-"`
}

// EventIngestService runs the admission pipeline for one verified delivery:
// normalize, filter, append to the log, notify the agent.
type EventIngestService interface {
	Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error)
	ProcessedCount() int64
	StartTime() time.Time
}

type eventIngestService struct {
	mapper   mapper.EventMapper
	filter   *AdmissionFilter
	log      *store.EventLog
	notifier agent.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	start    time.Time
	count    atomic.Int64
}

// NewEventIngestService wires the pipeline. notifier may be nil when agent
// notifications are not configured.
func NewEventIngestService(eventMapper mapper.EventMapper, filter *AdmissionFilter, log *store.EventLog, notifier agent.Notifier, m *metrics.Metrics, logger *slog.Logger) EventIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventIngestService{
		mapper:   eventMapper,
		filter:   filter,
		log:      log,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		start:    time.Now().UTC(),
	}
}

func (s *eventIngestService) Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error) {
	s.metrics.EventsReceived.Inc()

	event := s.mapper.Map(ctx, params.Payload, params.EventType, params.DeliveryID, params.Raw)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: logger.Ptr(event.DeliveryID),
		EventType:  logger.Ptr(event.EventType),
		Repository: logger.Ptr(event.RepoFullName()),
	})

	if !s.filter.Admit(ctx, event) {
		s.metrics.EventsSkipped.Inc()
		s.logger.InfoContext(ctx, "event skipped by filter")
		return &EventIngestResult{
			Status:      StatusSkipped,
			ProcessedAt: time.Now().UTC(),
			Event:       event,
		}, nil
	}

	s.log.Append(ctx, *event)
	count := s.count.Add(1)
	s.metrics.EventsStored.Inc()

	s.logger.InfoContext(ctx, "event processed",
		"action", deref(event.Action),
		"sender", event.SenderLogin(),
		"event_count", count,
	)

	if s.notifier != nil {
		// Fire and forget: agent availability must never block or fail the
		// webhook response. The notification carries its own deadline.
		go func(event *model.Event) {
			notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := s.notifier.NotifyEvent(notifyCtx, event); err != nil {
				s.logger.WarnContext(notifyCtx, "agent notification failed", "error", err)
			}
		}(event)
	}

	return &EventIngestResult{
		Status:      StatusProcessed,
		EventID:     event.DeliveryID,
		EventCount:  count,
		ProcessedAt: time.Now().UTC(),
		Event:       event,
	}, nil
}

// ProcessedCount returns the number of events stored since this process
// started (not the log's retained size).
func (s *eventIngestService) ProcessedCount() int64 {
	return s.count.Load()
}

func (s *eventIngestService) StartTime() time.Time {
	return s.start
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
