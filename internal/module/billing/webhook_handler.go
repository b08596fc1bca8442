package billing

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/stripebridge/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// WebhookConfig holds webhook verification settings.
type WebhookConfig struct {
	// EndpointSecret is the Stripe signing secret for this endpoint.
	EndpointSecret string
	// Tolerance is the accepted clock skew on the signed timestamp.
	Tolerance time.Duration
}

// WebhookHandler receives Stripe webhook deliveries: verify the
// signature, decode the event envelope, route it, acknowledge.
type WebhookHandler struct {
	service   *Service
	secret    string
	tolerance time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service *Service, cfg WebhookConfig, m *metrics.Metrics, logger *zap.Logger) *WebhookHandler {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &WebhookHandler{
		service:   service,
		secret:    cfg.EndpointSecret,
		tolerance: tolerance,
		metrics:   m,
		logger:    logger,
	}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook handles one inbound Stripe delivery. Only
// authentication and decode failures may answer non-2xx: Stripe retries
// non-2xx responses indefinitely, so every downstream failure still
// acknowledges the delivery.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// The signature covers the exact raw bytes; never re-serialize.
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		h.recordOutcome("", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	event, err := webhook.ConstructEventWithTolerance(payload, signature, h.secret, h.tolerance)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		h.recordOutcome("", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature or payload"})
		return
	}

	ctx := c.Request.Context()

	// Journal dedup: a redelivered event id is acknowledged without
	// reprocessing. The upserts are idempotent anyway, so a failed
	// existence check only risks doing the same work twice.
	exists, err := h.service.repo.WebhookEventExists(ctx, event.ID)
	if err != nil {
		h.logger.Error("failed to check webhook event existence", zap.Error(err))
	}
	if exists {
		h.logger.Info("webhook event already processed", zap.String("event_id", event.ID))
		h.recordOutcome(string(event.Type), "duplicate")
		c.JSON(http.StatusOK, gin.H{"status": "success"})
		return
	}

	if err := h.journalEvent(c, &event, payload); err != nil {
		h.logger.Error("failed to journal webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}

	processErr := h.service.ProcessEvent(ctx, &event)

	if err := h.service.repo.MarkWebhookEventProcessed(ctx, event.ID, processErr); err != nil {
		h.logger.Error("failed to mark webhook event processed",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}

	if processErr != nil {
		// Acknowledged regardless: the failure is recorded on the journal
		// row, and a retry storm helps nobody.
		h.logger.Error("failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(processErr),
		)
		h.recordOutcome(string(event.Type), "failed")
	} else if h.service.Handles(EventType(event.Type)) {
		h.recordOutcome(string(event.Type), "processed")
	} else {
		h.recordOutcome(string(event.Type), "ignored")
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *WebhookHandler) journalEvent(c *gin.Context, event *stripe.Event, payload []byte) error {
	if !json.Valid(payload) {
		// ConstructEvent already parsed it, so this should not happen.
		return nil
	}
	return h.service.repo.CreateWebhookEvent(c.Request.Context(), &WebhookEvent{
		EventID: event.ID,
		Type:    string(event.Type),
		Payload: string(payload),
	})
}

func (h *WebhookHandler) recordOutcome(eventType, outcome string) {
	if h.metrics == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	h.metrics.RecordWebhookDelivery(eventType, outcome)
}
