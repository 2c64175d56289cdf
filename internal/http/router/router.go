package router

import (
	"github.com/gin-gonic/gin"

	"github.com/sanctumos/code-buddy/internal/http/handler"
	"github.com/sanctumos/code-buddy/internal/http/handler/webhook"
	"github.com/sanctumos/code-buddy/internal/metrics"
	"github.com/sanctumos/code-buddy/internal/service"
)

type RouterConfig struct {
	Environment      string
	SecretConfigured bool
}

func SetupRoutes(router *gin.Engine, verifier service.SignatureVerifier, eventIngest service.EventIngestService, m *metrics.Metrics, cfg RouterConfig) {
	systemHandler := handler.NewSystemHandler(eventIngest, cfg.SecretConfigured, cfg.Environment)
	router.GET("/health", systemHandler.Health)
	router.GET("/stats", systemHandler.Stats)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	webhookHandler := webhook.NewGitHubWebhookHandler(verifier, eventIngest, m)
	router.POST("/webhook", webhookHandler.HandleEvent)
}
