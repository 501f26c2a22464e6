package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paysettle/internal/domain"
	"paysettle/internal/service"
)

// CallbackReconciler resolves the page shown to a browser returning from checkout.
type CallbackReconciler interface {
	ReconcileForCallback(ctx context.Context, q service.CallbackQuery) (*service.CallbackResult, error)
}

type CallbackHandler struct {
	engine CallbackReconciler
	log    *zap.Logger
}

func NewCallbackHandler(engine CallbackReconciler, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{engine: engine, log: logger}
}

// ParseCallbackQuery reads the callback parameters. The gateway appends its own
// "?paymentReference=..." to a redirect URL that already has a query, so
// payment_id may arrive as "abc123?paymentReference=PAY-99".
func ParseCallbackQuery(values url.Values) service.CallbackQuery {
	q := service.CallbackQuery{
		PaymentID:            values.Get("payment_id"),
		PaymentReference:     values.Get("paymentReference"),
		TransactionReference: values.Get("transactionReference"),
	}
	i := strings.Index(q.PaymentID, "?")
	if i < 0 {
		return q
	}
	extra, err := url.ParseQuery(q.PaymentID[i+1:])
	q.PaymentID = q.PaymentID[:i]
	if err != nil {
		return q
	}
	if q.PaymentReference == "" {
		q.PaymentReference = extra.Get("paymentReference")
	}
	if q.TransactionReference == "" {
		q.TransactionReference = extra.Get("transactionReference")
	}
	return q
}

type callbackView struct {
	Status      string
	Reference   string
	RedirectURL string
	Title       string
	Message     string
	Icon        string
	Color       string
}

func viewFor(res *service.CallbackResult) callbackView {
	v := callbackView{Status: res.Status, Reference: res.Reference, RedirectURL: res.RedirectURL}
	switch res.Status {
	case domain.CallbackSuccess:
		v.Title, v.Message, v.Icon, v.Color = "Payment successful", "Your payment has been confirmed.", "✓", "#27ae60"
	case domain.CallbackFail:
		v.Title, v.Message, v.Icon, v.Color = "Payment failed", "Your payment could not be completed.", "✗", "#e74c3c"
	default:
		v.Title, v.Message, v.Icon, v.Color = "Payment processing", "We are still confirming your payment. You will be notified once it completes.", "…", "#f39c12"
	}
	return v
}

// Handle renders the result page; it never shows an error page for an undetermined status.
func (h *CallbackHandler) Handle(c *gin.Context) {
	q := ParseCallbackQuery(c.Request.URL.Query())
	res, err := h.engine.ReconcileForCallback(c.Request.Context(), q)
	if err != nil || res == nil {
		h.log.Error("[MonnifyCallback] reconcile failed", zap.String("payment_id", q.PaymentID), zap.Error(err))
		res = &service.CallbackResult{Status: domain.CallbackProcessing, Reference: q.PaymentReference}
	}
	h.log.Info("[MonnifyCallback] rendered",
		zap.String("payment_id", q.PaymentID),
		zap.String("reference", res.Reference),
		zap.String("status", res.Status))
	c.HTML(http.StatusOK, callbackTemplate, viewFor(res))
}
