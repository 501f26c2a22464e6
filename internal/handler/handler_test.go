package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paysettle/internal/domain"
	"paysettle/internal/repository"
	"paysettle/internal/service"
	"paysettle/internal/testutil"
	"paysettle/pkg/signature"
)

const testSecret = "sk_test_webhook"

type fakeApplier struct {
	applyFn func(n service.Notification) (service.Result, error)
	calls   []service.Notification
}

func (f *fakeApplier) ApplyNotification(_ context.Context, n service.Notification) (service.Result, error) {
	f.calls = append(f.calls, n)
	return f.applyFn(n)
}

func newWebhookRouter(t *testing.T, applier *fakeApplier) (*gin.Engine, *repository.WebhookEventRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	events := repository.NewWebhookEventRepository(testutil.NewDB(t))
	h := NewMonnifyWebhookHandler(applier, events, testSecret, zap.NewNop())
	r := gin.New()
	r.POST("/webhooks/monnify", h.Handle)
	return r, events
}

func postWebhook(r http.Handler, body, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/monnify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(signature.Header, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const paidBody = `{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{"paymentReference":"PAY-123","transactionReference":"MNFY-1","paymentStatus":"PAID","amountPaid":500}}`

func TestWebhook_BadSignatureNeverReachesEngine(t *testing.T) {
	applier := &fakeApplier{applyFn: func(service.Notification) (service.Result, error) {
		t.Fatal("engine must not be called")
		return "", nil
	}}
	r, events := newWebhookRouter(t, applier)

	for _, sig := range []string{"", "deadbeef", signature.Sign([]byte(paidBody), "wrong-secret")} {
		w := postWebhook(r, paidBody, sig)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	list, err := events.ListByReference(context.Background(), "PAY-123", 10)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, e := range list {
		assert.False(t, e.SignatureValid)
		assert.Equal(t, "invalid_signature", e.Outcome)
	}
}

func TestWebhook_UnsignedPayloadIsTruncated(t *testing.T) {
	applier := &fakeApplier{applyFn: func(service.Notification) (service.Result, error) {
		t.Fatal("engine must not be called")
		return "", nil
	}}
	r, events := newWebhookRouter(t, applier)

	body := `{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{"paymentReference":"PAY-BIG"},"pad":"` +
		strings.Repeat("x", 64<<10) + `"}`
	w := postWebhook(r, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	list, err := events.ListByReference(context.Background(), "PAY-BIG", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Less(t, len(list[0].Payload), 2*maxUnsignedPayload)

	var stored string
	require.NoError(t, json.Unmarshal(list[0].Payload, &stored))
	assert.True(t, strings.HasPrefix(body, stored))
}

func TestWebhook_SignedPayloadIsStoredWhole(t *testing.T) {
	applier := &fakeApplier{applyFn: func(service.Notification) (service.Result, error) {
		return service.ResultPending, nil
	}}
	r, events := newWebhookRouter(t, applier)

	body := `{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{"paymentReference":"PAY-BIG","paymentStatus":"PENDING"},"pad":"` +
		strings.Repeat("x", 8<<10) + `"}`
	w := postWebhook(r, body, signature.Sign([]byte(body), testSecret))
	require.Equal(t, http.StatusOK, w.Code)

	list, err := events.ListByReference(context.Background(), "PAY-BIG", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, body, string(list[0].Payload))
}

func TestWebhook_SignedPaidIsApplied(t *testing.T) {
	applier := &fakeApplier{applyFn: func(service.Notification) (service.Result, error) {
		return service.ResultSettled, nil
	}}
	r, events := newWebhookRouter(t, applier)

	w := postWebhook(r, paidBody, signature.Sign([]byte(paidBody), testSecret))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"settled"}`, w.Body.String())

	require.Len(t, applier.calls, 1)
	n := applier.calls[0]
	assert.Equal(t, "PAY-123", n.Reference)
	assert.Equal(t, "MNFY-1", n.TransactionReference)
	assert.Equal(t, domain.GatewayStatusPaid, n.Status)
	assert.Equal(t, "500", n.AmountPaid.String())
	assert.Equal(t, service.SourceSignedWebhook, n.Source)

	list, err := events.ListByReference(context.Background(), "PAY-123", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].SignatureValid)
	assert.Equal(t, "settled", list[0].Outcome)
	assert.Equal(t, domain.EventSuccessfulTransaction, list[0].EventType)
}

func TestWebhook_StatusFromEventType(t *testing.T) {
	applier := &fakeApplier{applyFn: func(service.Notification) (service.Result, error) {
		return service.ResultDeclined, nil
	}}
	r, _ := newWebhookRouter(t, applier)

	body := `{"eventType":"FAILED_TRANSACTION","eventData":{"paymentReference":"PAY-9"}}`
	w := postWebhook(r, body, signature.Sign([]byte(body), testSecret))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, applier.calls, 1)
	assert.Equal(t, domain.GatewayStatusFailed, applier.calls[0].Status)
}

func TestWebhook_ResponseCodes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		result service.Result
		want   int
	}{
		{"malformed json", `{"eventType":`, "", http.StatusBadRequest},
		{"missing reference", `{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{}}`, "", http.StatusBadRequest},
		{"already processed", paidBody, service.ResultAlreadyProcessed, http.StatusOK},
		{"status mismatch", paidBody, service.ResultStatusMismatch, http.StatusOK},
		{"gateway down", paidBody, service.ResultVerificationUnavailable, http.StatusServiceUnavailable},
		{"unknown reference", paidBody, service.ResultNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applier := &fakeApplier{applyFn: func(service.Notification) (service.Result, error) {
				return tt.result, nil
			}}
			r, _ := newWebhookRouter(t, applier)
			w := postWebhook(r, tt.body, signature.Sign([]byte(tt.body), testSecret))
			assert.Equal(t, tt.want, w.Code)
			if tt.result == "" {
				assert.Empty(t, applier.calls)
			}
		})
	}
}

func TestParseCallbackQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want service.CallbackQuery
	}{
		{
			"payment_id=abc123?paymentReference=PAY-99",
			service.CallbackQuery{PaymentID: "abc123", PaymentReference: "PAY-99"},
		},
		{
			"payment_id=abc123?paymentReference=PAY-99&transactionReference=MNFY-7",
			service.CallbackQuery{PaymentID: "abc123", PaymentReference: "PAY-99", TransactionReference: "MNFY-7"},
		},
		{
			"payment_id=abc123&paymentReference=PAY-1",
			service.CallbackQuery{PaymentID: "abc123", PaymentReference: "PAY-1"},
		},
		{
			"paymentReference=PAY-2",
			service.CallbackQuery{PaymentReference: "PAY-2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ParseCallbackQuery(values))
		})
	}
}

type fakeCallbackEngine struct {
	got service.CallbackQuery
	res *service.CallbackResult
}

func (f *fakeCallbackEngine) ReconcileForCallback(_ context.Context, q service.CallbackQuery) (*service.CallbackResult, error) {
	f.got = q
	return f.res, nil
}

func TestCallbackHandler_RendersPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := &fakeCallbackEngine{res: &service.CallbackResult{
		Status:      domain.CallbackSuccess,
		Reference:   "PAY-99",
		RedirectURL: "https://shop.example.com/orders/7/success",
	}}
	r := gin.New()
	r.SetHTMLTemplate(Templates())
	r.GET("/monnify/callback", NewCallbackHandler(engine, zap.NewNop()).Handle)

	req := httptest.NewRequest(http.MethodGet, "/monnify/callback?payment_id=abc123?paymentReference=PAY-99", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.CallbackQuery{PaymentID: "abc123", PaymentReference: "PAY-99"}, engine.got)
	body := w.Body.String()
	assert.Contains(t, body, "Payment successful")
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, "https://shop.example.com/orders/7/success")

	engine.res = &service.CallbackResult{Status: domain.CallbackProcessing, Reference: "PAY-99"}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/monnify/callback?payment_id=abc123", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Payment processing")
	assert.Contains(t, w.Body.String(), "flutter_inappwebview")
	assert.NotContains(t, w.Body.String(), `http-equiv="refresh"`)
}
