package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/sanctumos/code-buddy/internal/service"
	"github.com/sanctumos/code-buddy/internal/store"
)

// Tool is one callable exposed over the protocol. Handler returns the value
// to serialize as the tool's text content; a tool-level failure is reported
// as an error payload in the content, matching the query boundary's
// "errors stay inside the tool result" convention.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     func(ctx context.Context, args json.RawMessage) (any, error)
}

type RecentEventsArgs struct {
	EventType  string `json:"event_type,omitempty" jsonschema:"description=Filter by event type such as 'issues' or 'push' or 'pull_request'"`
	Repository string `json:"repository,omitempty" jsonschema:"description=Filter by repository name or full name"`
	Limit      int    `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100,default=50,description=Maximum number of events to return"`
	Since      string `json:"since,omitempty" jsonschema:"description=ISO timestamp to filter events since"`
}

type EventStatsArgs struct{}

type EventByIDArgs struct {
	DeliveryID string `json:"delivery_id" jsonschema:"description=The delivery ID of the event to retrieve"`
}

// EventTools exposes the event query boundary as protocol tools.
func EventTools(queries service.EventQueryService) []Tool {
	return []Tool{
		{
			Name:        "get_recent_events",
			Description: "Get recent GitHub webhook events. Can filter by event type, repository, and time range.",
			InputSchema: schemaFor[RecentEventsArgs](),
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args RecentEventsArgs
				if len(raw) > 0 {
					if err := json.Unmarshal(raw, &args); err != nil {
						return nil, fmt.Errorf("invalid arguments: %w", err)
					}
				}
				return queries.ListRecent(ctx, service.EventQueryParams{
					EventType:  args.EventType,
					Repository: args.Repository,
					Limit:      args.Limit,
					Since:      args.Since,
				})
			},
		},
		{
			Name:        "get_event_stats",
			Description: "Get statistics about stored GitHub events including counts by type and repositories.",
			InputSchema: schemaFor[EventStatsArgs](),
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				return queries.Stats(ctx)
			},
		},
		{
			Name:        "get_event_by_id",
			Description: "Get a specific event by its delivery ID.",
			InputSchema: schemaFor[EventByIDArgs](),
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args EventByIDArgs
				if len(raw) > 0 {
					if err := json.Unmarshal(raw, &args); err != nil {
						return nil, fmt.Errorf("invalid arguments: %w", err)
					}
				}
				if args.DeliveryID == "" {
					return nil, errors.New("delivery_id is required")
				}
				event, err := queries.GetByID(ctx, args.DeliveryID)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return nil, fmt.Errorf("Event with delivery_id '%s' not found", args.DeliveryID)
					}
					return nil, err
				}
				return event, nil
			},
		},
	}
}

func schemaFor[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var v T
	return reflector.Reflect(&v)
}
