package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is one inbound gateway notification as received, kept for replay and audit.
type WebhookEvent struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	EventType            string         `gorm:"size:64" json:"event_type"`
	PaymentReference     string         `gorm:"size:100;index" json:"payment_reference"`
	TransactionReference string         `gorm:"size:100" json:"transaction_reference"`
	PaymentStatus        string         `gorm:"size:32" json:"payment_status"`
	SignatureValid       bool           `gorm:"not null;default:false" json:"signature_valid"`
	RemoteIP             string         `gorm:"size:64" json:"remote_ip"`
	Payload              datatypes.JSON `json:"payload"`
	Outcome              string         `gorm:"size:32;index" json:"outcome"`
	Error                string         `gorm:"type:text" json:"error"`
	ReceivedAt           time.Time      `gorm:"not null" json:"received_at"`
	CreatedAt            time.Time      `json:"created_at"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
