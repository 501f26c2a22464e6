package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"paysettle/internal/domain"
	"paysettle/internal/models"
	"paysettle/pkg/monnify"
)

// memStore is an in-memory PaymentStore whose conditional updates are atomic.
type memStore struct {
	mu      sync.Mutex
	records map[string]*models.PaymentRecord
	lookups int
}

func newMemStore(recs ...*models.PaymentRecord) *memStore {
	s := &memStore{records: make(map[string]*models.PaymentRecord)}
	for _, r := range recs {
		s.put(r)
	}
	return s
}

func (s *memStore) put(r *models.PaymentRecord) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = domain.PaymentStatusPending
	}
	s.records[r.ID] = r
}

func (s *memStore) snapshot(id string) models.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[id]
}

func (s *memStore) Create(_ context.Context, p *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CurrencyCode == "" {
		p.CurrencyCode = domain.DefaultCurrency
	}
	s.put(p)
	if p.Reference == "" {
		p.Reference = "PAY-" + p.ID
	}
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	r, ok := s.records[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) GetByReference(_ context.Context, ref string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	for _, r := range s.records {
		if r.Reference == ref || r.TxRef() == ref {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (s *memStore) MarkPaid(_ context.Context, id, txRef, method string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.IsPaid {
		return false, nil
	}
	r.IsPaid = true
	r.Status = domain.PaymentStatusPaid
	r.TransactionReference = &txRef
	r.PaymentMethod = method
	r.PaidAt = &at
	return true, nil
}

func (s *memStore) MarkFailed(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.IsPaid || r.Status != domain.PaymentStatusPending {
		return false, nil
	}
	r.Status = domain.PaymentStatusFailed
	r.FailedAt = &at
	return true, nil
}

func (s *memStore) PrepareCheckout(_ context.Context, id, reference, redirectLink string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.IsPaid {
		return ErrPaymentNotFound
	}
	r.Reference = reference
	r.Status = domain.PaymentStatusPending
	r.FailedAt = nil
	if r.ExternalRedirectLink == "" {
		r.ExternalRedirectLink = redirectLink
	}
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	statusFn func(ref string) (*monnify.TransactionStatus, error)
	initFn   func(in monnify.InitRequest) (*monnify.InitResult, error)
	calls    []string
}

func (g *fakeGateway) GetTransactionStatus(_ context.Context, ref string) (*monnify.TransactionStatus, error) {
	g.mu.Lock()
	g.calls = append(g.calls, ref)
	g.mu.Unlock()
	return g.statusFn(ref)
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, in monnify.InitRequest) (*monnify.InitResult, error) {
	return g.initFn(in)
}

func gatewayStatus(status, txRef string) func(string) (*monnify.TransactionStatus, error) {
	return func(ref string) (*monnify.TransactionStatus, error) {
		return &monnify.TransactionStatus{
			RequestSuccessful:    true,
			PaymentStatus:        status,
			PaymentReference:     ref,
			TransactionReference: txRef,
		}, nil
	}
}

func gatewayDown(string) (*monnify.TransactionStatus, error) {
	return nil, monnify.ErrGatewayUnavailable
}

type hookCall struct {
	Kind      domain.HookKind
	PaymentID string
}

type recordingHooks struct {
	mu    sync.Mutex
	calls []hookCall
}

func (h *recordingHooks) Invoke(_ context.Context, kind domain.HookKind, p *models.PaymentRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, hookCall{Kind: kind, PaymentID: p.ID})
}

func (h *recordingHooks) count(kind domain.HookKind) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
}

func (n *recordingNotifier) NotifyStatus(p *models.PaymentRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, p.Status)
}
