package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"paysettle/internal/domain"
)

// PaymentRecord is a single checkout attempt tracked until the gateway settles it.
type PaymentRecord struct {
	ID                   string          `gorm:"type:char(36);primaryKey" json:"id"`
	Reference            string          `gorm:"size:100;not null;uniqueIndex" json:"reference"`
	TransactionReference *string         `gorm:"size:100;index" json:"transaction_reference"`
	Amount               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CurrencyCode         string          `gorm:"size:10;not null;default:'NGN'" json:"currency_code"`
	IsPaid               bool            `gorm:"not null;default:false;index" json:"is_paid"`
	Status               string          `gorm:"size:20;not null;default:'pending'" json:"status"`
	PaymentMethod        string          `gorm:"size:50" json:"payment_method"`
	CustomerName         string          `gorm:"size:255" json:"customer_name"`
	CustomerEmail        string          `gorm:"size:255" json:"customer_email"`
	Description          string          `gorm:"size:255" json:"description"`
	ExternalRedirectLink string          `gorm:"size:512" json:"external_redirect_link"`
	SuccessHook          domain.HookKind `gorm:"size:50" json:"success_hook"`
	FailureHook          domain.HookKind `gorm:"size:50" json:"failure_hook"`
	PaidAt               *time.Time      `json:"paid_at"`
	FailedAt             *time.Time      `json:"failed_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (PaymentRecord) TableName() string {
	return "payment_records"
}

func (p *PaymentRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Reference == "" {
		// placeholder until checkout regenerates it; keeps the unique index satisfied
		p.Reference = "PAY-" + p.ID
	}
	if p.Status == "" {
		p.Status = domain.PaymentStatusPending
	}
	if p.CurrencyCode == "" {
		p.CurrencyCode = domain.DefaultCurrency
	}
	return nil
}

// TxRef returns the gateway transaction reference or "" when unset.
func (p PaymentRecord) TxRef() string {
	if p.TransactionReference == nil {
		return ""
	}
	return *p.TransactionReference
}
