package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"

	portssvc "github.com/rentbooks/property_management_app/internal/core/ports/services"
	"github.com/rentbooks/property_management_app/internal/dto"
	"github.com/rentbooks/property_management_app/internal/middleware"
	"github.com/rentbooks/property_management_app/internal/platform/config"
)

// webhookHandler receives provider event deliveries. The route is public:
// authentication is the secret path segment, compared in constant time.
type webhookHandler struct {
	webhookService portssvc.WebhookSvcFacade
	secret         string
	providerName   string
}

func newWebhookHandler(ws portssvc.WebhookSvcFacade, cfg *config.Config) *webhookHandler {
	return &webhookHandler{
		webhookService: ws,
		secret:         cfg.BankWebhookSecret,
		providerName:   cfg.BankProviderName,
	}
}

// RegisterWebhookRoutes registers the public webhook endpoint with per-IP
// rate limiting.
func RegisterWebhookRoutes(r *gin.Engine, cfg *config.Config, webhookService portssvc.WebhookSvcFacade, limiterInstance *limiter.Limiter) {
	h := newWebhookHandler(webhookService, cfg)

	webhooks := r.Group("/webhooks", middleware.RateLimit(limiterInstance))
	webhooks.POST("/:provider/:secret", h.receiveEvent)
}

// receiveEvent handles one delivery. Idempotent: redeliveries and events for
// unknown accounts get 200 so the provider stops retrying; only processing
// failures get 5xx and trigger a retry.
func (h *webhookHandler) receiveEvent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if h.secret == "" {
		// Misconfiguration must not read as "bad caller secret".
		logger.Error("Webhook secret is not configured, rejecting delivery")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook endpoint not configured"})
		return
	}

	provider := c.Param("provider")
	given := c.Param("secret")
	if provider != h.providerName || len(given) != len(h.secret) ||
		subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		logger.Warn("Webhook delivery with bad provider or secret",
			slog.String("provider", provider), slog.String("remote_addr", c.ClientIP()))
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	var event dto.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		logger.Warn("Failed to bind webhook payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}
	if event.Type != dto.WebhookEventTypeTransactionCreated {
		logger.Warn("Webhook event of unhandled type", slog.String("type", event.Type))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported event type"})
		return
	}
	if !event.IsValid() {
		logger.Warn("Webhook payload missing required fields")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	outcome, err := h.webhookService.HandleTransactionCreated(c.Request.Context(), event)
	if err != nil {
		logger.Error("Failed to process webhook event", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}

	switch outcome {
	case portssvc.WebhookDuplicate:
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
	case portssvc.WebhookIgnored:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	}
}
