package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"paysettle/internal/domain"
	"paysettle/internal/models"
)

var ErrPaymentNotFound = errors.New("payment record not found")

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return found(&p, err)
}

// GetByReference matches either our reference or the gateway transaction reference.
func (r *PaymentRepository) GetByReference(ctx context.Context, ref string) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("reference = ? OR transaction_reference = ?", ref, ref).
		First(&p).Error
	return found(&p, err)
}

// MarkPaid flips is_paid false->true. Only the caller that observes true may run the success hook.
// A failed record is still eligible: a decline only closes one checkout attempt, and money the
// gateway later confirms as PAID for this record must not be left unsettled.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id, transactionRef, method string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]interface{}{
			"is_paid":               true,
			"status":                domain.PaymentStatusPaid,
			"transaction_reference": transactionRef,
			"payment_method":        method,
			"paid_at":               at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkFailed records a decline once; a paid record is never touched.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ? AND is_paid = ? AND status = ?", id, false, domain.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":    domain.PaymentStatusFailed,
			"failed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// PrepareCheckout assigns a fresh reference to an unpaid record and reopens it if it had been declined.
// redirectLink is only stored when the record has none.
func (r *PaymentRepository) PrepareCheckout(ctx context.Context, id, reference, redirectLink string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.PaymentRecord
		if err := tx.Where("id = ? AND is_paid = ?", id, false).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		updates := map[string]interface{}{
			"reference": reference,
			"status":    domain.PaymentStatusPending,
			"failed_at": nil,
		}
		if p.ExternalRedirectLink == "" && redirectLink != "" {
			updates["external_redirect_link"] = redirectLink
		}
		res := tx.Model(&models.PaymentRecord{}).
			Where("id = ? AND is_paid = ?", id, false).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPaymentNotFound
		}
		return nil
	})
}

func found(p *models.PaymentRecord, err error) (*models.PaymentRecord, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}
