package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"paysettle/internal/domain"
	"paysettle/internal/models"
)

// HookFunc performs one business side effect for a settled or declined payment.
type HookFunc func(ctx context.Context, p *models.PaymentRecord) error

// HookDispatcher maps hook kinds to handlers registered at startup.
type HookDispatcher struct {
	mu       sync.RWMutex
	handlers map[domain.HookKind]HookFunc
	log      *zap.Logger
}

func NewHookDispatcher(logger *zap.Logger) *HookDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HookDispatcher{handlers: make(map[domain.HookKind]HookFunc), log: logger}
}

// Register binds fn to kind. Only known, non-empty kinds can be registered.
func (d *HookDispatcher) Register(kind domain.HookKind, fn HookFunc) error {
	if kind == domain.HookNone || !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownHook, kind)
	}
	d.mu.Lock()
	d.handlers[kind] = fn
	d.mu.Unlock()
	return nil
}

// Invoke runs the handler for kind. Missing handlers and handler errors are logged only.
func (d *HookDispatcher) Invoke(ctx context.Context, kind domain.HookKind, p *models.PaymentRecord) {
	if kind == domain.HookNone {
		return
	}
	d.mu.RLock()
	fn, ok := d.handlers[kind]
	d.mu.RUnlock()
	if !ok {
		d.log.Warn("[Hooks] no handler registered, skipping",
			zap.String("hook", string(kind)),
			zap.String("payment_id", p.ID))
		return
	}
	if err := runHook(ctx, fn, p); err != nil {
		d.log.Error("[Hooks] handler failed",
			zap.String("hook", string(kind)),
			zap.String("payment_id", p.ID),
			zap.Error(err))
		return
	}
	d.log.Info("[Hooks] handler ran", zap.String("hook", string(kind)), zap.String("payment_id", p.ID))
}

// runHook turns a panicking handler into an error; the transition it follows is already committed.
func runHook(ctx context.Context, fn HookFunc, p *models.PaymentRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return fn(ctx, p)
}

// PaymentEvent is the message downstream services receive for a hook.
type PaymentEvent struct {
	Kind                 domain.HookKind `json:"kind"`
	PaymentID            string          `json:"payment_id"`
	Reference            string          `json:"reference"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	OccurredAt           time.Time       `json:"occurred_at"`
}

func NewPaymentEvent(kind domain.HookKind, p *models.PaymentRecord, at time.Time) PaymentEvent {
	return PaymentEvent{
		Kind:                 kind,
		PaymentID:            p.ID,
		Reference:            p.Reference,
		TransactionReference: p.TxRef(),
		Status:               p.Status,
		Amount:               p.Amount,
		Currency:             p.CurrencyCode,
		OccurredAt:           at,
	}
}

// EventPublisher sends an event to a queue.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, v interface{}) error
}

// PublishHook forwards the payment event for kind to pub.
func PublishHook(kind domain.HookKind, pub EventPublisher) HookFunc {
	return func(ctx context.Context, p *models.PaymentRecord) error {
		return pub.Publish(ctx, string(kind), NewPaymentEvent(kind, p, time.Now()))
	}
}

// LogHook only records that kind would have run.
func LogHook(kind domain.HookKind, logger *zap.Logger) HookFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, p *models.PaymentRecord) error {
		logger.Info("[Hooks] event",
			zap.String("hook", string(kind)),
			zap.String("payment_id", p.ID),
			zap.String("reference", p.Reference),
			zap.String("status", p.Status))
		return nil
	}
}

// RegisterDefaultHooks wires every known kind to pub, or to LogHook when pub is nil.
func RegisterDefaultHooks(d *HookDispatcher, pub EventPublisher, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, kind := range []domain.HookKind{domain.HookFulfilOrder, domain.HookRefundWallet, domain.HookNotifyCustomer} {
		fn := LogHook(kind, logger)
		if pub != nil {
			fn = PublishHook(kind, pub)
		}
		if err := d.Register(kind, fn); err != nil {
			return err
		}
	}
	return nil
}
