package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"paysettle/internal/domain"
	"paysettle/internal/models"
	"paysettle/pkg/monnify"
)

// CheckoutStore is the persistence checkout needs.
type CheckoutStore interface {
	Create(ctx context.Context, p *models.PaymentRecord) error
	GetByID(ctx context.Context, id string) (*models.PaymentRecord, error)
	PrepareCheckout(ctx context.Context, id, reference, redirectLink string) error
}

// CheckoutGateway starts hosted checkouts.
type CheckoutGateway interface {
	InitializeTransaction(ctx context.Context, in monnify.InitRequest) (*monnify.InitResult, error)
}

type CreateRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerName  string          `json:"customer_name" binding:"required"`
	CustomerEmail string          `json:"customer_email" binding:"required,email"`
	Description   string          `json:"description"`
	RedirectLink  string          `json:"redirect_link"`
	SuccessHook   domain.HookKind `json:"success_hook"`
	FailureHook   domain.HookKind `json:"failure_hook"`
}

type CheckoutResult struct {
	PaymentID            string `json:"payment_id"`
	Reference            string `json:"reference"`
	CheckoutURL          string `json:"checkout_url"`
	TransactionReference string `json:"transaction_reference"`
}

type CheckoutService struct {
	store         CheckoutStore
	gateway       CheckoutGateway
	publicBaseURL string
	log           *zap.Logger
	now           func() time.Time
}

func NewCheckoutService(store CheckoutStore, gateway CheckoutGateway, publicBaseURL string, logger *zap.Logger) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		store:         store,
		gateway:       gateway,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           logger,
		now:           time.Now,
	}
}

// Create stores a new pending payment record.
func (s *CheckoutService) Create(ctx context.Context, req CreateRequest) (*models.PaymentRecord, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	for _, h := range []domain.HookKind{req.SuccessHook, req.FailureHook} {
		if !h.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownHook, h)
		}
	}
	p := &models.PaymentRecord{
		Amount:               req.Amount.Round(2),
		CurrencyCode:         strings.ToUpper(req.Currency),
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		Description:          req.Description,
		ExternalRedirectLink: req.RedirectLink,
		SuccessHook:          req.SuccessHook,
		FailureHook:          req.FailureHook,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("[Checkout] payment created",
		zap.String("payment_id", p.ID),
		zap.String("amount", p.Amount.String()))
	return p, nil
}

// Initialize mints a fresh reference for an unpaid record and opens a gateway checkout for it.
// Every attempt gets its own reference since the gateway rejects a reused paymentReference;
// webhooks for earlier attempts still resolve through the id embedded in the reference.
func (s *CheckoutService) Initialize(ctx context.Context, paymentID, callbackLink string) (*CheckoutResult, error) {
	rec, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if rec.IsPaid {
		return nil, ErrPaymentNotFound
	}

	reference := fmt.Sprintf("PAY-%s-%d", rec.ID, s.now().Unix())
	if err := s.store.PrepareCheckout(ctx, rec.ID, reference, callbackLink); err != nil {
		return nil, err
	}

	description := rec.Description
	if description == "" {
		description = "Payment " + reference
	}
	res, err := s.gateway.InitializeTransaction(ctx, monnify.InitRequest{
		Amount:             rec.Amount,
		CurrencyCode:       rec.CurrencyCode,
		CustomerName:       rec.CustomerName,
		CustomerEmail:      rec.CustomerEmail,
		PaymentReference:   reference,
		PaymentDescription: description,
		RedirectURL:        s.callbackURL(rec.ID),
	})
	if err != nil {
		s.log.Error("[Checkout] gateway init failed", zap.String("payment_id", rec.ID), zap.Error(err))
		return nil, err
	}
	s.log.Info("[Checkout] checkout created",
		zap.String("payment_id", rec.ID),
		zap.String("reference", reference),
		zap.String("transaction_reference", res.TransactionReference))
	return &CheckoutResult{
		PaymentID:            rec.ID,
		Reference:            reference,
		CheckoutURL:          res.CheckoutURL,
		TransactionReference: res.TransactionReference,
	}, nil
}

func (s *CheckoutService) callbackURL(paymentID string) string {
	return s.publicBaseURL + "/api/v1/monnify/callback?payment_id=" + url.QueryEscape(paymentID)
}
