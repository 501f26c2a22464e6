package repository

import (
	"context"

	"gorm.io/gorm"

	"paysettle/internal/models"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, e *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *WebhookEventRepository) SetOutcome(ctx context.Context, id uint, outcome, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"outcome": outcome, "error": errMsg}).Error
}

// ListByReference returns the newest events first.
func (r *WebhookEventRepository) ListByReference(ctx context.Context, ref string, limit int) ([]models.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("payment_reference = ?", ref).
		Order("received_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
