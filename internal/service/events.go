package service

import (
	"context"
	"fmt"

	"github.com/sanctumos/code-buddy/internal/model"
	"github.com/sanctumos/code-buddy/internal/store"
)

// MaxQueryLimit caps a single query regardless of what the caller asks for.
const MaxQueryLimit = 100

type EventQueryParams struct {
	EventType  string `json:"event_type,omitempty"`
	Repository string `json:"repository,omitempty"`
	Since      string `json:"since,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type EventList struct {
	Count  int           `json:"count"`
	Events []model.Event `json:"events"`
}

// EventQueryService is the query boundary consumed by the tool-exposure
// layer: recent events, aggregate statistics, and point lookup by delivery
// ID.
type EventQueryService interface {
	ListRecent(ctx context.Context, params EventQueryParams) (*EventList, error)
	Stats(ctx context.Context) (store.Stats, error)
	GetByID(ctx context.Context, deliveryID string) (*model.Event, error)
}

type eventQueryService struct {
	log          *store.EventLog
	reloadOnRead bool
}

type QueryOption func(*eventQueryService)

// WithReloadOnRead makes every read reload the durable file first. This is
// how a process that does not own the writer observes appends made after its
// own startup; without it, reads serve the state loaded at construction.
func WithReloadOnRead() QueryOption {
	return func(s *eventQueryService) {
		s.reloadOnRead = true
	}
}

func NewEventQueryService(log *store.EventLog, opts ...QueryOption) EventQueryService {
	s := &eventQueryService{log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *eventQueryService) ListRecent(ctx context.Context, params EventQueryParams) (*EventList, error) {
	s.maybeReload(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = store.DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	events := s.log.Query(store.QueryOptions{
		EventType:  params.EventType,
		Repository: params.Repository,
		Since:      params.Since,
		Limit:      limit,
	})

	return &EventList{Count: len(events), Events: events}, nil
}

func (s *eventQueryService) Stats(ctx context.Context) (store.Stats, error) {
	s.maybeReload(ctx)
	return s.log.Stats(), nil
}

func (s *eventQueryService) GetByID(ctx context.Context, deliveryID string) (*model.Event, error) {
	if deliveryID == "" {
		return nil, fmt.Errorf("delivery_id is required")
	}

	s.maybeReload(ctx)
	return s.log.GetByID(deliveryID)
}

func (s *eventQueryService) maybeReload(ctx context.Context) {
	if s.reloadOnRead {
		s.log.Reload(ctx)
	}
}
