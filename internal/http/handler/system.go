package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sanctumos/code-buddy/internal/service"
)

type SystemHandler struct {
	eventIngest      service.EventIngestService
	secretConfigured bool
	environment      string
}

func NewSystemHandler(eventIngest service.EventIngestService, secretConfigured bool, environment string) *SystemHandler {
	return &SystemHandler{
		eventIngest:      eventIngest,
		secretConfigured: secretConfigured,
		environment:      environment,
	}
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"uptime_seconds":   time.Since(h.eventIngest.StartTime()).Seconds(),
		"events_processed": h.eventIngest.ProcessedCount(),
		"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *SystemHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds":            time.Since(h.eventIngest.StartTime()).Seconds(),
		"events_processed":          h.eventIngest.ProcessedCount(),
		"start_time":                h.eventIngest.StartTime().Format(time.RFC3339Nano),
		"webhook_secret_configured": h.secretConfigured,
		"environment":               h.environment,
	})
}
