package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paysettle/internal/models"
	"paysettle/internal/service"
	"paysettle/pkg/monnify"
)

type fakeVerifier struct {
	verifyFn func(ref string) (*service.VerifyResult, error)
}

func (f *fakeVerifier) Verify(_ context.Context, ref string) (*service.VerifyResult, error) {
	return f.verifyFn(ref)
}

type fakeCheckout struct {
	createFn func(req service.CreateRequest) (*models.PaymentRecord, error)
	initFn   func(id, callback string) (*service.CheckoutResult, error)
}

func (f *fakeCheckout) Create(_ context.Context, req service.CreateRequest) (*models.PaymentRecord, error) {
	return f.createFn(req)
}

func (f *fakeCheckout) Initialize(_ context.Context, id, callback string) (*service.CheckoutResult, error) {
	return f.initFn(id, callback)
}

func newPaymentRouter(v PaymentVerifier, co Checkout) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(v, co, zap.NewNop())
	r := gin.New()
	r.POST("/payments", h.Create)
	r.POST("/payments/monnify/verify", h.Verify)
	r.POST("/payments/:id/monnify/initialize", h.Initialize)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPaymentHandler_Verify(t *testing.T) {
	v := &fakeVerifier{verifyFn: func(ref string) (*service.VerifyResult, error) {
		if ref == "PAY-404" {
			return nil, service.ErrPaymentNotFound
		}
		return &service.VerifyResult{
			Success:              true,
			PaymentStatus:        "PAID",
			TransactionReference: "MNFY-1",
			AmountPaid:           decimal.NewFromInt(500),
			IsPaid:               true,
		}, nil
	}}
	r := newPaymentRouter(v, nil)

	w := doJSON(r, http.MethodPost, "/payments/monnify/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/payments/monnify/verify", `{"payment_reference":"PAY-404"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/payments/monnify/verify", `{"payment_reference":"PAY-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"payment_status":"PAID","transaction_reference":"MNFY-1","amount_paid":"500","is_paid":true}`, w.Body.String())
}

func TestPaymentHandler_Create(t *testing.T) {
	co := &fakeCheckout{createFn: func(req service.CreateRequest) (*models.PaymentRecord, error) {
		if !req.Amount.IsPositive() {
			return nil, service.ErrInvalidAmount
		}
		return &models.PaymentRecord{ID: "p1", Reference: "PAY-p1", Amount: req.Amount, CustomerEmail: req.CustomerEmail}, nil
	}}
	r := newPaymentRouter(nil, co)

	w := doJSON(r, http.MethodPost, "/payments", `{"amount":500,"customer_name":"Ada","customer_email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/payments", `{"amount":0,"customer_name":"Ada","customer_email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/payments", `{"amount":"1500.50","customer_name":"Ada","customer_email":"ada@example.com","success_hook":"fulfil_order"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "p1", got["id"])
	assert.Equal(t, "1500.5", got["amount"])
}

func TestPaymentHandler_Initialize(t *testing.T) {
	co := &fakeCheckout{initFn: func(id, callback string) (*service.CheckoutResult, error) {
		switch id {
		case "missing":
			return nil, service.ErrPaymentNotFound
		case "down":
			return nil, fmt.Errorf("%w: timeout", monnify.ErrGatewayUnavailable)
		}
		assert.Equal(t, "https://shop.example.com/orders/7", callback)
		return &service.CheckoutResult{PaymentID: id, Reference: "PAY-" + id + "-1", CheckoutURL: "https://sandbox.sdk.monnify.com/checkout/MNFY|1"}, nil
	}}
	r := newPaymentRouter(nil, co)

	w := doJSON(r, http.MethodPost, "/payments/p1/monnify/initialize?callback=https://shop.example.com/orders/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"checkout_url":"https://sandbox.sdk.monnify.com/checkout/MNFY|1"`)

	w = doJSON(r, http.MethodPost, "/payments/p1/monnify/initialize?redirect=1&callback=https://shop.example.com/orders/7", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://sandbox.sdk.monnify.com/checkout/MNFY|1", w.Header().Get("Location"))

	w = doJSON(r, http.MethodPost, "/payments/missing/monnify/initialize", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/payments/down/monnify/initialize", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type fakeChecker struct {
	err error
}

func (f *fakeChecker) Ping(context.Context) error { return f.err }

func (f *fakeChecker) Config() monnify.Config {
	return monnify.Config{Mode: "test", BaseURL: monnify.SandboxURL, APIKey: "MK_TEST_ABCDEFGH"}
}

func TestGatewayHandler_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checker := &fakeChecker{}
	r := gin.New()
	r.GET("/health", NewGatewayHandler(checker).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":true`)
	assert.Contains(t, w.Body.String(), `MK_T********EFGH`)
	assert.NotContains(t, w.Body.String(), "MK_TEST_ABCDEFGH")

	checker.err = monnify.ErrGatewayUnavailable
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":false`)
}
