package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ledgerkeep/billing-console/internal/giftcards"
	"github.com/ledgerkeep/billing-console/internal/reminders"
	"github.com/ledgerkeep/billing-console/pkg/logger"
)

// SignatureHeader carries the HMAC-SHA256 signature of the raw request body
const SignatureHeader = "x-square-hmacsha256-signature"

// dedupTTL bounds how long a webhook event ID is remembered
const dedupTTL = 24 * time.Hour

// Deduper remembers webhook event IDs so redelivered events are dropped
type Deduper interface {
	SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}

// event is the envelope of an incoming webhook event
type event struct {
	EventID string          `json:"event_id"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// invoicePayload extracts the invoice from an invoice event's data section
type invoicePayload struct {
	Object struct {
		Invoice *reminders.Invoice `json:"invoice"`
	} `json:"object"`
}

// Handler receives webhook events from the payments platform
type Handler struct {
	signatureKey string
	coordinator  *giftcards.Coordinator
	reminders    *reminders.Queue
	deduper      Deduper
}

// NewHandler creates a webhook handler. The deduper may be nil, in which
// case redelivered events are processed again.
func NewHandler(signatureKey string, coordinator *giftcards.Coordinator, queue *reminders.Queue, deduper Deduper) *Handler {
	return &Handler{
		signatureKey: signatureKey,
		coordinator:  coordinator,
		reminders:    queue,
		deduper:      deduper,
	}
}

// verifySignature checks the HMAC-SHA256 signature of the raw body.
// An empty signature key disables verification.
func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.signatureKey == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.signatureKey))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleEvent processes an incoming webhook event
// POST /webhooks/square
func (h *Handler) HandleEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unable to read request body"})
		return
	}

	if !h.verifySignature(body, c.GetHeader(SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid webhook signature"})
		return
	}

	var evt event
	if err := json.Unmarshal(body, &evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid event payload"})
		return
	}
	if evt.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing event type"})
		return
	}

	if h.isDuplicate(c.Request.Context(), evt.EventID) {
		logger.Debug("Dropping redelivered webhook event",
			zap.String("event_id", evt.EventID),
			zap.String("type", evt.Type),
		)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	h.dispatch(c.Request.Context(), evt)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// isDuplicate records the event ID and reports whether it was seen before.
// Dedup store failures are treated as first delivery.
func (h *Handler) isDuplicate(ctx context.Context, eventID string) bool {
	if h.deduper == nil || eventID == "" {
		return false
	}

	first, err := h.deduper.SetIfAbsent(ctx, "webhook:event:"+eventID, 1, dedupTTL)
	if err != nil {
		logger.Warn("Webhook dedup store unavailable", zap.Error(err))
		return false
	}
	return !first
}

// dispatch routes an event to the interested subsystems
func (h *Handler) dispatch(ctx context.Context, evt event) {
	if strings.HasPrefix(evt.Type, "gift_card") && h.coordinator != nil {
		var payload giftcards.EventPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			logger.Warn("Failed to parse gift card event payload",
				zap.String("type", evt.Type),
				zap.Error(err),
			)
		} else {
			h.coordinator.HandleEvent(ctx, evt.Type, payload)
		}
	}

	if h.reminders != nil && len(evt.Data) > 0 {
		var payload invoicePayload
		if err := json.Unmarshal(evt.Data, &payload); err == nil && payload.Object.Invoice != nil {
			h.reminders.ScheduleFromInvoice(payload.Object.Invoice)
		}
	}
}
