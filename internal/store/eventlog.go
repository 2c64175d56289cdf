package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sanctumos/code-buddy/internal/model"
)

// ErrNotFound is returned by GetByID when no event carries the delivery ID.
var ErrNotFound = errors.New("event not found")

// DefaultQueryLimit applies when a query asks for zero or negative results.
const DefaultQueryLimit = 50

// EventLog is a capacity-bounded, insertion-ordered sequence of events backed
// by a single JSON-array file. Every append flushes a full snapshot to the
// file; the in-memory slice is the sole source of truth for queries within
// the owning process.
//
// Cross-process contract: a second process that loaded the file at its own
// startup does not observe later appends until it calls Reload. There is no
// file locking; the window between a writer's flush and a reader's reload is
// an explicit property of the system.
//
// Durability is best-effort: a failed flush is logged and swallowed, and the
// in-memory state stays authoritative for the life of the process.
type EventLog struct {
	mu      sync.RWMutex
	events  []model.Event
	path    string
	maxSize int
	logger  *slog.Logger
}

// Stats summarizes the retained events.
type Stats struct {
	EventTypes         map[string]int `json:"event_types"`
	Repositories       []string       `json:"repositories"`
	TotalEvents        int            `json:"total_events"`
	UniqueRepositories int            `json:"unique_repositories"`
}

// QueryOptions filter a newest-first scan. The zero value of each field means
// "no filter"; a Since value that does not parse as a timestamp is treated as
// no bound, not an error.
type QueryOptions struct {
	EventType  string
	Repository string
	Since      string
	Limit      int
}

// NewEventLog creates an event log bounded to maxSize entries, loading any
// prior state from path. A missing or unreadable file is not fatal: the log
// starts empty and the failure is logged.
func NewEventLog(path string, maxSize int, logger *slog.Logger) *EventLog {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &EventLog{
		path:    path,
		maxSize: maxSize,
		logger:  logger,
	}

	if events, err := l.loadSnapshot(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to load events, starting empty", "path", path, "error", err)
		}
	} else {
		l.events = events
		logger.Info("loaded events", "path", path, "count", len(events))
	}

	return l
}

// Append inserts the event at the tail, evicting from the head once the
// capacity bound is exceeded (strict FIFO), and synchronously flushes a full
// snapshot to the durable file. The in-memory mutation cannot fail; a flush
// failure is logged and swallowed.
//
// The event's timestamp is clamped to the current tail's timestamp if the
// wall clock stepped backwards, keeping insertion order monotonic by
// timestamp. That monotonicity is what makes Query's newest-first
// short-circuit exact.
func (l *EventLog) Append(ctx context.Context, event model.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.events); n > 0 && event.Timestamp.Before(l.events[n-1].Timestamp) {
		event.Timestamp = l.events[n-1].Timestamp
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxSize {
		overflow := len(l.events) - l.maxSize
		l.events = append(l.events[:0:0], l.events[overflow:]...)
	}

	if err := l.flushLocked(); err != nil {
		// Best-effort durability: memory stays authoritative.
		l.logger.WarnContext(ctx, "failed to persist events", "path", l.path, "error", err)
	}

	l.logger.DebugContext(ctx, "event appended",
		"event_type", event.EventType,
		"delivery_id", event.DeliveryID,
		"retained", len(l.events),
	)
}

// Query returns up to opts.Limit events, most recently inserted first.
// Filters: exact event type match, case-insensitive substring against the
// repository's display or qualified name, and an inclusive lower bound on
// the timestamp. The reverse scan stops as soon as the limit is reached.
func (l *EventLog) Query(opts QueryOptions) []model.Event {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	since := parseTimestamp(opts.Since)
	repoFilter := strings.ToLower(opts.Repository)

	l.mu.RLock()
	defer l.mu.RUnlock()

	results := make([]model.Event, 0, limit)
	for i := len(l.events) - 1; i >= 0; i-- {
		event := l.events[i]

		if opts.EventType != "" && event.EventType != opts.EventType {
			continue
		}
		if repoFilter != "" {
			fullName := strings.ToLower(event.RepoFullName())
			name := strings.ToLower(event.RepoName())
			if !strings.Contains(fullName, repoFilter) && !strings.Contains(name, repoFilter) {
				continue
			}
		}
		if since != nil && event.Timestamp.Before(*since) {
			continue
		}

		results = append(results, event)
		if len(results) >= limit {
			break
		}
	}

	return results
}

// GetByID returns the first event with the given delivery ID scanning in
// insertion order: when duplicates exist, the oldest match wins. This mirrors
// Query deliberately running the other direction; the asymmetry is part of
// the contract.
func (l *EventLog) GetByID(deliveryID string) (*model.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := range l.events {
		if l.events[i].DeliveryID == deliveryID {
			event := l.events[i]
			return &event, nil
		}
	}
	return nil, ErrNotFound
}

// Stats returns the total count, per-type counts, and the sorted set of
// distinct qualified repository names seen.
func (l *EventLog) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	eventTypes := make(map[string]int)
	repoSet := make(map[string]struct{})

	for i := range l.events {
		eventType := l.events[i].EventType
		if eventType == "" {
			eventType = model.EventTypeUnknown
		}
		eventTypes[eventType]++

		if fullName := l.events[i].RepoFullName(); fullName != "" {
			repoSet[fullName] = struct{}{}
		}
	}

	repositories := make([]string, 0, len(repoSet))
	for name := range repoSet {
		repositories = append(repositories, name)
	}
	sort.Strings(repositories)

	return Stats{
		TotalEvents:        len(l.events),
		EventTypes:         eventTypes,
		UniqueRepositories: len(repositories),
		Repositories:       repositories,
	}
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Reload replaces the in-memory state with the durable file's contents. This
// is the reader-process half of the cross-process contract: the writer
// appends-and-flushes, the reader reloads on demand. A read failure keeps the
// current state and is logged, consistent with the persistence failure
// policy.
func (l *EventLog) Reload(ctx context.Context) {
	events, err := l.loadSnapshot()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.WarnContext(ctx, "failed to reload events, keeping current state", "path", l.path, "error", err)
		}
		return
	}

	l.mu.Lock()
	l.events = events
	l.mu.Unlock()
}

func (l *EventLog) loadSnapshot() ([]model.Event, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	// Bounded to the most recent maxSize entries.
	if len(events) > l.maxSize {
		events = events[len(events)-l.maxSize:]
	}
	return events, nil
}

// flushLocked writes the full snapshot. Caller holds l.mu: the file write is
// serialized with the structure, per the single-lock concurrency model.
func (l *EventLog) flushLocked() error {
	data, err := json.MarshalIndent(l.events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// Write-then-rename so a reader never observes a half-written array.
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// parseTimestamp accepts RFC 3339 (with or without sub-second precision) and
// a naive ISO form treated as UTC. Anything else means "no bound".
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}
