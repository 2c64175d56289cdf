package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sanctumos/code-buddy/internal/metrics"
	"github.com/sanctumos/code-buddy/internal/service"
)

// Delivery metadata headers sent by GitHub.
const (
	headerSignature = "X-Hub-Signature-256"
	headerEvent     = "X-GitHub-Event"
	headerDelivery  = "X-GitHub-Delivery"
)

type GitHubWebhookHandler struct {
	verifier    service.SignatureVerifier
	eventIngest service.EventIngestService
	metrics     *metrics.Metrics
}

func NewGitHubWebhookHandler(verifier service.SignatureVerifier, eventIngest service.EventIngestService, m *metrics.Metrics) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{
		verifier:    verifier,
		eventIngest: eventIngest,
		metrics:     m,
	}
}

// HandleEvent maps one inbound delivery onto the ingestion pipeline:
// bad signature → 403, malformed body → 400, filtered → 200 "skipped",
// stored → 200 "processed". Internal failures never leak detail.
func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if !h.verifier.Verify(body, c.GetHeader(headerSignature)) {
		h.metrics.SignatureFailures.Inc()
		slog.WarnContext(ctx, "rejected webhook with invalid signature", "client_ip", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.WarnContext(ctx, "rejected webhook with invalid JSON body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	eventType := c.GetHeader(headerEvent)
	if eventType == "" {
		eventType = "unknown"
	}
	deliveryID := c.GetHeader(headerDelivery)
	if deliveryID == "" {
		deliveryID = "unknown"
	}

	result, err := h.eventIngest.Ingest(ctx, service.EventIngestParams{
		EventType:  eventType,
		DeliveryID: deliveryID,
		Payload:    payload,
		Raw:        body,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to ingest webhook event",
			"error", err,
			"event_type", eventType,
			"delivery_id", deliveryID,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	if result.Status == service.StatusSkipped {
		c.JSON(http.StatusOK, gin.H{"status": service.StatusSkipped})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       result.Status,
		"event_id":     result.EventID,
		"event_count":  result.EventCount,
		"processed_at": result.ProcessedAt.Format(time.RFC3339Nano),
	})
}
