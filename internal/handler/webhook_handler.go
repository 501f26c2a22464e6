package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"paysettle/internal/domain"
	"paysettle/internal/models"
	"paysettle/internal/service"
	"paysettle/pkg/signature"
)

const (
	maxWebhookBody = 1 << 20
	// unsigned bodies are only kept as a prefix
	maxUnsignedPayload = 4 << 10
)

// NotificationApplier is the reconciliation entry point for webhooks.
type NotificationApplier interface {
	ApplyNotification(ctx context.Context, n service.Notification) (service.Result, error)
}

// EventLog stores inbound webhooks.
type EventLog interface {
	Create(ctx context.Context, e *models.WebhookEvent) error
	SetOutcome(ctx context.Context, id uint, outcome, errMsg string) error
	ListByReference(ctx context.Context, ref string, limit int) ([]models.WebhookEvent, error)
}

type MonnifyWebhookHandler struct {
	engine NotificationApplier
	events EventLog
	secret string
	log    *zap.Logger
}

func NewMonnifyWebhookHandler(engine NotificationApplier, events EventLog, secret string, logger *zap.Logger) *MonnifyWebhookHandler {
	return &MonnifyWebhookHandler{engine: engine, events: events, secret: secret, log: logger}
}

type monnifyWebhook struct {
	EventType string `json:"eventType"`
	EventData struct {
		PaymentReference     string          `json:"paymentReference"`
		TransactionReference string          `json:"transactionReference"`
		PaymentStatus        string          `json:"paymentStatus"`
		AmountPaid           decimal.Decimal `json:"amountPaid"`
	} `json:"eventData"`
}

// status falls back to the event type when paymentStatus is missing.
func (w *monnifyWebhook) status() string {
	if w.EventData.PaymentStatus != "" {
		return strings.ToUpper(w.EventData.PaymentStatus)
	}
	switch w.EventType {
	case domain.EventSuccessfulTransaction:
		return domain.GatewayStatusPaid
	case domain.EventFailedTransaction:
		return domain.GatewayStatusFailed
	}
	return ""
}

// Handle verifies the signature before touching any payment record.
func (h *MonnifyWebhookHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	sigOK := signature.Verify(body, c.GetHeader(signature.Header), h.secret)
	var payload monnifyWebhook
	parseErr := json.Unmarshal(body, &payload)
	event := h.record(ctx, c.ClientIP(), body, &payload, sigOK)

	if !sigOK {
		h.log.Warn("[MonnifyWebhook] invalid signature", zap.String("ip", c.ClientIP()))
		h.finish(ctx, event, "invalid_signature", "")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	if parseErr != nil {
		h.finish(ctx, event, "malformed", parseErr.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrMalformedPayload.Error()})
		return
	}
	if payload.EventData.PaymentReference == "" {
		h.finish(ctx, event, "malformed", "missing paymentReference")
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentReference required"})
		return
	}

	result, err := h.engine.ApplyNotification(ctx, service.Notification{
		Reference:            payload.EventData.PaymentReference,
		TransactionReference: payload.EventData.TransactionReference,
		Status:               payload.status(),
		AmountPaid:           payload.EventData.AmountPaid,
		Source:               service.SourceSignedWebhook,
	})
	if err != nil {
		h.log.Error("[MonnifyWebhook] reconcile failed",
			zap.String("reference", payload.EventData.PaymentReference),
			zap.Error(err))
		h.finish(ctx, event, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	h.finish(ctx, event, string(result), "")
	h.log.Info("[MonnifyWebhook] processed",
		zap.String("event_type", payload.EventType),
		zap.String("reference", payload.EventData.PaymentReference),
		zap.String("outcome", string(result)))

	c.JSON(webhookStatus(result), gin.H{"status": result})
}

func webhookStatus(r service.Result) int {
	switch r {
	case service.ResultVerificationUnavailable:
		return http.StatusServiceUnavailable
	case service.ResultNotFound:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

func (h *MonnifyWebhookHandler) record(ctx context.Context, ip string, body []byte, payload *monnifyWebhook, sigOK bool) *models.WebhookEvent {
	if h.events == nil {
		return nil
	}
	raw := body
	switch {
	case !sigOK && len(body) > maxUnsignedPayload:
		raw, _ = json.Marshal(string(body[:maxUnsignedPayload]))
	case !json.Valid(body):
		raw, _ = json.Marshal(string(body))
	}
	e := &models.WebhookEvent{
		EventType:            payload.EventType,
		PaymentReference:     payload.EventData.PaymentReference,
		TransactionReference: payload.EventData.TransactionReference,
		PaymentStatus:        payload.status(),
		SignatureValid:       sigOK,
		RemoteIP:             ip,
		Payload:              datatypes.JSON(raw),
		ReceivedAt:           time.Now(),
	}
	if err := h.events.Create(ctx, e); err != nil {
		h.log.Error("[MonnifyWebhook] store event failed", zap.Error(err))
		return nil
	}
	return e
}

func (h *MonnifyWebhookHandler) finish(ctx context.Context, e *models.WebhookEvent, outcome, errMsg string) {
	if e == nil {
		return
	}
	if err := h.events.SetOutcome(ctx, e.ID, outcome, errMsg); err != nil {
		h.log.Error("[MonnifyWebhook] store outcome failed", zap.Uint("event_id", e.ID), zap.Error(err))
	}
}

// ListEvents returns the stored webhooks for a payment reference.
func (h *MonnifyWebhookHandler) ListEvents(c *gin.Context) {
	list, err := h.events.ListByReference(c.Request.Context(), c.Param("reference"), 50)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}
