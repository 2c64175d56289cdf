package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sanctumos/code-buddy/internal/model"
)

// reservedRepoMarker designates non-production repositories whose events are
// not retained.
const reservedRepoMarker = "test"

// AdmissionFilter decides whether a normalized event is eligible for
// retention. It is a pure predicate; the only side effect is an audit log
// entry on rejection.
type AdmissionFilter struct {
	logger *slog.Logger
}

func NewAdmissionFilter(logger *slog.Logger) *AdmissionFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdmissionFilter{logger: logger}
}

// Admit rejects parse_error records unconditionally and any event whose
// repository display name contains the reserved marker (case-insensitive).
// Everything else is admitted.
func (f *AdmissionFilter) Admit(ctx context.Context, event *model.Event) bool {
	if event.EventType == model.EventTypeParseError {
		f.logger.InfoContext(ctx, "skipping parse_error event", "delivery_id", event.DeliveryID)
		return false
	}

	repoName := strings.ToLower(event.RepoName())
	if strings.Contains(repoName, reservedRepoMarker) {
		f.logger.InfoContext(ctx, "skipping test repository", "repository", repoName)
		return false
	}

	return true
}
