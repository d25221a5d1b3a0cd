package webhook

import (
	"context"
	"net/http"
	"strings"

	"imobzap_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// The gateway retries aggressively on non-2xx responses and disables the
// callback after repeated failures, so every handler path answers 200. Bad
// payloads are logged and dropped.

// Pipeline processes one normalized inbound event end to end.
type Pipeline interface {
	HandleInbound(ctx context.Context, event InboundEvent) error
}

// StatusUpdater advances a message's delivery status from provider receipts.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, providerMessageID, status string) error
}

// Handler owns the provider-facing callback endpoints.
type Handler struct {
	pipeline Pipeline
	statuses StatusUpdater
	log      *logger.Logger
}

func NewHandler(pipeline Pipeline, statuses StatusUpdater, log *logger.Logger) *Handler {
	return &Handler{pipeline: pipeline, statuses: statuses, log: log}
}

func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/webhook", h.HandleInbound)
	group.POST("/status", h.HandleStatus)
}

// HandleInbound receives a provider callback, normalizes it and runs the
// conversation pipeline synchronously.
func (h *Handler) HandleInbound(c *gin.Context) {
	payload, ok := decodePayload(c)
	if !ok {
		h.log.WebhookDropped("unreadable payload", nil)
		ack(c, ProviderUnknown)
		return
	}

	event, err := Normalize(payload)
	if err != nil {
		h.log.WebhookDropped("unusable payload", err)
		ack(c, ProviderUnknown)
		return
	}

	h.log.WebhookEvent(string(event.Provider), event.From, event.To, string(event.Kind))

	if err := h.pipeline.HandleInbound(c.Request.Context(), event); err != nil {
		h.log.WebhookDropped("pipeline failed", err)
	}

	ack(c, event.Provider)
}

// HandleStatus receives delivery receipts and advances message status.
func (h *Handler) HandleStatus(c *gin.Context) {
	payload, ok := decodePayload(c)
	if !ok {
		h.log.WebhookDropped("unreadable status payload", nil)
		ack(c, ProviderUnknown)
		return
	}

	messageID := firstStr(payload, "MessageSid", "id", "message_id")
	status := normalizeStatus(firstStr(payload, "MessageStatus", "status", "state"))

	if messageID == "" || status == "" {
		h.log.WebhookDropped("status payload missing message id or status", nil)
		ack(c, providerOf(payload))
		return
	}

	if err := h.statuses.UpdateStatus(c.Request.Context(), messageID, status); err != nil {
		h.log.WebhookDropped("status update failed", err)
	}

	ack(c, providerOf(payload))
}

// decodePayload accepts both the gateway's form encoding and the bridge's
// JSON body, reducing either to a flat map.
func decodePayload(c *gin.Context) (map[string]any, bool) {
	contentType := c.ContentType()

	if strings.Contains(contentType, "json") {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			return nil, false
		}
		return payload, true
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, false
	}
	payload := make(map[string]any, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	if len(payload) == 0 {
		return nil, false
	}
	return payload, true
}

func providerOf(payload map[string]any) Provider {
	switch {
	case isGateway(payload) || str(payload, "MessageSid") != "":
		return ProviderGateway
	case isBridge(payload):
		return ProviderBridge
	default:
		return ProviderUnknown
	}
}

// ack answers in the format each provider expects: the gateway wants an
// empty TwiML document, everything else gets JSON.
func ack(c *gin.Context, provider Provider) {
	if provider == ProviderGateway {
		c.Data(http.StatusOK, "text/xml", []byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// normalizeStatus maps provider status vocabularies onto the message
// lifecycle.
func normalizeStatus(raw string) string {
	switch strings.ToLower(raw) {
	case "queued", "accepted":
		return "queued"
	case "sent":
		return "sent"
	case "delivered", "delivery_ack":
		return "delivered"
	case "read", "played":
		return "read"
	case "failed", "undelivered", "error":
		return "failed"
	default:
		return ""
	}
}
