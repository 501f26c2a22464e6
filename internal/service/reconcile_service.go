package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"paysettle/internal/domain"
	"paysettle/internal/models"
	"paysettle/pkg/monnify"
)

// PaymentStore is the persistence the engine needs.
type PaymentStore interface {
	GetByID(ctx context.Context, id string) (*models.PaymentRecord, error)
	GetByReference(ctx context.Context, ref string) (*models.PaymentRecord, error)
	MarkPaid(ctx context.Context, id, transactionRef, method string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, at time.Time) (bool, error)
}

// Gateway returns the authoritative status of a transaction.
type Gateway interface {
	GetTransactionStatus(ctx context.Context, reference string) (*monnify.TransactionStatus, error)
}

// HookInvoker runs the business side effect for a terminal transition.
type HookInvoker interface {
	Invoke(ctx context.Context, kind domain.HookKind, p *models.PaymentRecord)
}

// StatusNotifier is told about every transition the engine commits.
type StatusNotifier interface {
	NotifyStatus(p *models.PaymentRecord)
}

// Source says how much a notification can be trusted.
type Source int

const (
	// SourceUnverified is any claim that was not signed by the gateway.
	SourceUnverified Source = iota
	// SourceSignedWebhook is a webhook whose HMAC signature verified.
	SourceSignedWebhook
	// SourceGateway is a status obtained live from the gateway's status API.
	SourceGateway
)

func (s Source) String() string {
	switch s {
	case SourceSignedWebhook:
		return "signed_webhook"
	case SourceGateway:
		return "gateway"
	default:
		return "unverified"
	}
}

// Result is the outcome of applying one notification.
type Result string

const (
	ResultSettled                 Result = "settled"
	ResultAlreadyProcessed        Result = "already_processed"
	ResultStatusMismatch          Result = "status_mismatch"
	ResultVerificationUnavailable Result = "verification_unavailable"
	ResultDeclined                Result = "declined"
	ResultPending                 Result = "pending"
	ResultNotFound                Result = "not_found"
)

type Notification struct {
	Reference            string
	TransactionReference string
	Status               string
	AmountPaid           decimal.Decimal
	Source               Source
}

type CallbackQuery struct {
	PaymentID            string
	PaymentReference     string
	TransactionReference string
}

type CallbackResult struct {
	Status      string
	Reference   string
	RedirectURL string
}

type VerifyResult struct {
	Success              bool            `json:"success"`
	PaymentStatus        string          `json:"payment_status"`
	TransactionReference string          `json:"transaction_reference"`
	AmountPaid           decimal.Decimal `json:"amount_paid"`
	IsPaid               bool            `json:"is_paid"`
}

type ReconcileOptions struct {
	// StrictReverify refuses to settle from a signed webhook while the gateway cannot be reached.
	StrictReverify bool
}

// referenceIDPattern pulls the record id out of references minted by checkout.
var referenceIDPattern = regexp.MustCompile(`^PAY-([a-f0-9-]{36})-\d+$`)

// ReconcileService moves payment records from pending to paid or failed.
type ReconcileService struct {
	store    PaymentStore
	gateway  Gateway
	hooks    HookInvoker
	notifier StatusNotifier
	opts     ReconcileOptions
	log      *zap.Logger
	now      func() time.Time
}

func NewReconcileService(store PaymentStore, gateway Gateway, hooks HookInvoker, notifier StatusNotifier, opts ReconcileOptions, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{
		store:    store,
		gateway:  gateway,
		hooks:    hooks,
		notifier: notifier,
		opts:     opts,
		log:      logger,
		now:      time.Now,
	}
}

// ApplyNotification applies a status claim about a payment.
func (s *ReconcileService) ApplyNotification(ctx context.Context, n Notification) (Result, error) {
	rec, err := s.lookup(ctx, n.Reference, n.TransactionReference)
	if errors.Is(err, ErrPaymentNotFound) {
		s.log.Warn("[Reconcile] no payment record for notification",
			zap.String("reference", n.Reference),
			zap.String("transaction_reference", n.TransactionReference))
		return ResultNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if rec.IsPaid {
		return ResultAlreadyProcessed, nil
	}

	switch strings.ToUpper(n.Status) {
	case domain.GatewayStatusPaid:
		return s.settle(ctx, rec, n)
	case domain.GatewayStatusFailed, domain.GatewayStatusCancelled:
		return s.decline(ctx, rec)
	default:
		return ResultPending, nil
	}
}

func (s *ReconcileService) settle(ctx context.Context, rec *models.PaymentRecord, n Notification) (Result, error) {
	txRef := n.TransactionReference
	if n.Source != SourceGateway {
		ref := n.Reference
		if !ownsReference(rec, ref) {
			ref = rec.Reference
		}
		st, err := s.gateway.GetTransactionStatus(ctx, ref)
		switch {
		case errors.Is(err, monnify.ErrTransactionNotFound):
			s.log.Warn("[Reconcile] notification says PAID but gateway has no such transaction",
				zap.String("reference", ref),
				zap.String("source", n.Source.String()))
			return ResultStatusMismatch, nil
		case err != nil:
			if !errors.Is(err, monnify.ErrGatewayUnavailable) || n.Source != SourceSignedWebhook || s.opts.StrictReverify {
				s.log.Warn("[Reconcile] cannot confirm PAID with gateway",
					zap.String("reference", ref),
					zap.String("source", n.Source.String()),
					zap.Error(err))
				return ResultVerificationUnavailable, nil
			}
			s.log.Warn("[Reconcile] gateway unreachable, settling from signed webhook",
				zap.String("reference", ref),
				zap.Error(err))
		case !strings.EqualFold(st.PaymentStatus, domain.GatewayStatusPaid):
			s.log.Warn("[Reconcile] notification says PAID but gateway disagrees",
				zap.String("reference", ref),
				zap.String("gateway_status", st.PaymentStatus),
				zap.String("source", n.Source.String()))
			return ResultStatusMismatch, nil
		default:
			if st.TransactionReference != "" {
				txRef = st.TransactionReference
			}
			n.AmountPaid = st.AmountPaid
		}
	}

	if !n.AmountPaid.IsZero() && n.AmountPaid.LessThan(rec.Amount) {
		s.log.Warn("[Reconcile] amount paid below record amount",
			zap.String("payment_id", rec.ID),
			zap.String("amount", rec.Amount.String()),
			zap.String("amount_paid", n.AmountPaid.String()))
	}

	at := s.now()
	won, err := s.store.MarkPaid(ctx, rec.ID, txRef, domain.PaymentMethodMonnify, at)
	if err != nil {
		return "", err
	}
	if !won {
		return ResultAlreadyProcessed, nil
	}
	rec.IsPaid = true
	rec.Status = domain.PaymentStatusPaid
	rec.PaymentMethod = domain.PaymentMethodMonnify
	rec.TransactionReference = &txRef
	rec.PaidAt = &at
	s.log.Info("[Reconcile] payment settled",
		zap.String("payment_id", rec.ID),
		zap.String("reference", rec.Reference),
		zap.String("transaction_reference", txRef),
		zap.String("source", n.Source.String()))

	s.afterCommit(ctx, rec, rec.SuccessHook)
	return ResultSettled, nil
}

func (s *ReconcileService) decline(ctx context.Context, rec *models.PaymentRecord) (Result, error) {
	at := s.now()
	changed, err := s.store.MarkFailed(ctx, rec.ID, at)
	if err != nil {
		return "", err
	}
	if changed {
		rec.Status = domain.PaymentStatusFailed
		rec.FailedAt = &at
		s.log.Info("[Reconcile] payment declined",
			zap.String("payment_id", rec.ID),
			zap.String("reference", rec.Reference))
		s.afterCommit(ctx, rec, rec.FailureHook)
	}
	return ResultDeclined, nil
}

// afterCommit runs once per committed transition; it must not undo the mutation.
func (s *ReconcileService) afterCommit(ctx context.Context, rec *models.PaymentRecord, kind domain.HookKind) {
	ctx = context.WithoutCancel(ctx)
	if s.hooks != nil {
		s.hooks.Invoke(ctx, kind, rec)
	}
	if s.notifier != nil {
		s.notifier.NotifyStatus(rec)
	}
}

// ReconcileForCallback decides which page the returning browser sees.
// Gateway problems degrade to processing, never to an error.
func (s *ReconcileService) ReconcileForCallback(ctx context.Context, q CallbackQuery) (*CallbackResult, error) {
	rec, err := s.findForCallback(ctx, q)
	if err != nil {
		if !errors.Is(err, ErrPaymentNotFound) {
			s.log.Error("[Reconcile] callback lookup failed", zap.Error(err))
		}
		return &CallbackResult{Status: domain.CallbackFail, Reference: q.PaymentReference}, nil
	}

	ref := q.PaymentReference
	if !ownsReference(rec, ref) {
		if ref != "" {
			s.log.Warn("[Reconcile] callback reference does not belong to payment, using stored reference",
				zap.String("payment_id", rec.ID),
				zap.String("reference", ref))
		}
		ref = rec.Reference
	}
	res := &CallbackResult{Status: domain.CallbackProcessing, Reference: ref}

	if rec.IsPaid {
		res.Status = domain.CallbackSuccess
	} else {
		res.Status = s.callbackStatus(ctx, rec, ref)
	}
	if rec.ExternalRedirectLink != "" {
		res.RedirectURL = strings.TrimRight(rec.ExternalRedirectLink, "/") + "/" + res.Status
	}
	return res, nil
}

func (s *ReconcileService) callbackStatus(ctx context.Context, rec *models.PaymentRecord, ref string) string {
	st, err := s.gateway.GetTransactionStatus(ctx, ref)
	if err != nil {
		s.log.Warn("[Reconcile] callback status check failed",
			zap.String("reference", ref),
			zap.Error(err))
		return domain.CallbackProcessing
	}
	switch strings.ToUpper(st.PaymentStatus) {
	case domain.GatewayStatusPaid:
		result, err := s.settle(ctx, rec, Notification{
			Reference:            ref,
			TransactionReference: st.TransactionReference,
			Status:               domain.GatewayStatusPaid,
			AmountPaid:           st.AmountPaid,
			Source:               SourceGateway,
		})
		if err != nil {
			s.log.Error("[Reconcile] settle from callback failed", zap.String("reference", ref), zap.Error(err))
			return domain.CallbackProcessing
		}
		if result == ResultSettled || result == ResultAlreadyProcessed {
			return domain.CallbackSuccess
		}
		return domain.CallbackProcessing
	case domain.GatewayStatusFailed, domain.GatewayStatusCancelled:
		if _, err := s.decline(ctx, rec); err != nil {
			s.log.Error("[Reconcile] decline from callback failed", zap.String("reference", ref), zap.Error(err))
		}
		return domain.CallbackFail
	default:
		return domain.CallbackProcessing
	}
}

func (s *ReconcileService) findForCallback(ctx context.Context, q CallbackQuery) (*models.PaymentRecord, error) {
	if q.PaymentID != "" {
		rec, err := s.store.GetByID(ctx, q.PaymentID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrPaymentNotFound) {
			return nil, err
		}
	}
	if q.PaymentReference == "" && q.TransactionReference == "" {
		return nil, ErrPaymentNotFound
	}
	return s.lookup(ctx, q.PaymentReference, q.TransactionReference)
}

// Verify answers the client app's status poll with a live gateway check.
func (s *ReconcileService) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	rec, err := s.lookup(ctx, reference, "")
	if err != nil {
		return nil, err
	}
	st, err := s.gateway.GetTransactionStatus(ctx, reference)
	if err != nil {
		s.log.Warn("[Reconcile] verify status check failed", zap.String("reference", reference), zap.Error(err))
		return &VerifyResult{
			Success:              false,
			PaymentStatus:        domain.GatewayStatusPending,
			TransactionReference: rec.TxRef(),
			IsPaid:               rec.IsPaid,
		}, nil
	}

	switch strings.ToUpper(st.PaymentStatus) {
	case domain.GatewayStatusPaid:
		if !rec.IsPaid {
			if _, err := s.settle(ctx, rec, Notification{
				Reference:            reference,
				TransactionReference: st.TransactionReference,
				Status:               domain.GatewayStatusPaid,
				AmountPaid:           st.AmountPaid,
				Source:               SourceGateway,
			}); err != nil {
				return nil, err
			}
		}
		rec.IsPaid = true
	case domain.GatewayStatusFailed, domain.GatewayStatusCancelled:
		if !rec.IsPaid {
			if _, err := s.decline(ctx, rec); err != nil {
				return nil, err
			}
		}
	}

	txRef := st.TransactionReference
	if txRef == "" {
		txRef = rec.TxRef()
	}
	return &VerifyResult{
		Success:              true,
		PaymentStatus:        st.PaymentStatus,
		TransactionReference: txRef,
		AmountPaid:           st.AmountPaid,
		IsPaid:               rec.IsPaid,
	}, nil
}

// lookup finds a record by reference, then transaction reference, then the id embedded in a PAY- reference.
func (s *ReconcileService) lookup(ctx context.Context, ref, txRef string) (*models.PaymentRecord, error) {
	for _, r := range []string{ref, txRef} {
		if r == "" {
			continue
		}
		rec, err := s.store.GetByReference(ctx, r)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrPaymentNotFound) {
			return nil, err
		}
	}
	if m := referenceIDPattern.FindStringSubmatch(ref); m != nil {
		return s.store.GetByID(ctx, m[1])
	}
	return nil, ErrPaymentNotFound
}

// ownsReference reports whether ref was minted for rec: its current reference, its gateway
// transaction reference, or an earlier PAY-<id>-<ts> reference carrying rec's id.
func ownsReference(rec *models.PaymentRecord, ref string) bool {
	if ref == "" {
		return false
	}
	if ref == rec.Reference || ref == rec.TxRef() {
		return true
	}
	m := referenceIDPattern.FindStringSubmatch(ref)
	return m != nil && m[1] == rec.ID
}
