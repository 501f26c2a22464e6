package service

import (
	"encoding/json"

	"go.uber.org/zap"

	"paysettle/internal/models"
)

// StatusBroadcaster pushes a message to everyone watching a reference.
type StatusBroadcaster interface {
	BroadcastTo(reference string, msg []byte)
}

// StatusMessage is what the client app receives over the status websocket.
type StatusMessage struct {
	Type                 string `json:"type"`
	PaymentID            string `json:"payment_id"`
	Reference            string `json:"reference"`
	Status               string `json:"status"`
	IsPaid               bool   `json:"is_paid"`
	TransactionReference string `json:"transaction_reference,omitempty"`
}

// NotificationService turns committed transitions into websocket messages.
type NotificationService struct {
	hub StatusBroadcaster
	log *zap.Logger
}

func NewNotificationService(hub StatusBroadcaster, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{hub: hub, log: logger}
}

func (s *NotificationService) NotifyStatus(p *models.PaymentRecord) {
	if s.hub == nil {
		return
	}
	b, err := json.Marshal(StatusMessage{
		Type:                 "payment_status",
		PaymentID:            p.ID,
		Reference:            p.Reference,
		Status:               p.Status,
		IsPaid:               p.IsPaid,
		TransactionReference: p.TxRef(),
	})
	if err != nil {
		s.log.Error("[Notify] marshal status", zap.Error(err))
		return
	}
	s.hub.BroadcastTo(p.Reference, b)
}
