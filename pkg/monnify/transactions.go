package monnify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type InitRequest struct {
	Amount             decimal.Decimal
	CurrencyCode       string
	CustomerName       string
	CustomerEmail      string
	PaymentReference   string
	PaymentDescription string
	RedirectURL        string
}

type InitResult struct {
	CheckoutURL          string `json:"checkoutUrl"`
	TransactionReference string `json:"transactionReference"`
	PaymentReference     string `json:"paymentReference"`
}

type initPayload struct {
	Amount             json.Number `json:"amount"`
	CustomerName       string      `json:"customerName"`
	CustomerEmail      string      `json:"customerEmail"`
	PaymentReference   string      `json:"paymentReference"`
	PaymentDescription string      `json:"paymentDescription"`
	CurrencyCode       string      `json:"currencyCode"`
	ContractCode       string      `json:"contractCode"`
	RedirectURL        string      `json:"redirectUrl"`
	PaymentMethods     []string    `json:"paymentMethods"`
}

// InitializeTransaction creates a hosted checkout for the request.
func (c *Client) InitializeTransaction(ctx context.Context, in InitRequest) (*InitResult, error) {
	payload := initPayload{
		Amount:             json.Number(in.Amount.StringFixed(2)),
		CustomerName:       in.CustomerName,
		CustomerEmail:      in.CustomerEmail,
		PaymentReference:   in.PaymentReference,
		PaymentDescription: in.PaymentDescription,
		CurrencyCode:       in.CurrencyCode,
		ContractCode:       c.cfg.ContractCode,
		RedirectURL:        in.RedirectURL,
		PaymentMethods:     defaultPaymentMethods,
	}
	c.log.Info("[Monnify] init transaction",
		zap.String("reference", in.PaymentReference),
		zap.String("amount", payload.Amount.String()))

	r, err := c.do(ctx, http.MethodPost, "/api/v1/merchant/transactions/init-transaction", payload)
	if err != nil {
		return nil, err
	}
	if r.status >= http.StatusBadRequest || !r.env.RequestSuccessful {
		c.log.Warn("[Monnify] init transaction rejected",
			zap.String("reference", in.PaymentReference),
			zap.Int("status", r.status),
			zap.String("message", r.env.ResponseMessage))
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, r.env.ResponseMessage)
	}
	var out InitResult
	if err := json.Unmarshal(r.env.ResponseBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode init body: %v", ErrGatewayRejected, err)
	}
	if out.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: no checkout url returned", ErrGatewayRejected)
	}
	return &out, nil
}

// TransactionStatus is Monnify's authoritative view of one transaction.
type TransactionStatus struct {
	RequestSuccessful    bool            `json:"-"`
	PaymentStatus        string          `json:"paymentStatus"`
	PaymentReference     string          `json:"paymentReference"`
	TransactionReference string          `json:"transactionReference"`
	AmountPaid           decimal.Decimal `json:"amountPaid"`
}

// GetTransactionStatus looks up a transaction by payment or transaction reference.
func (c *Client) GetTransactionStatus(ctx context.Context, reference string) (*TransactionStatus, error) {
	r, err := c.do(ctx, http.MethodGet, "/api/v2/transactions/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	if r.status == http.StatusNotFound || !r.env.RequestSuccessful || len(r.env.ResponseBody) == 0 || string(r.env.ResponseBody) == "null" {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, reference)
	}
	var st TransactionStatus
	if err := json.Unmarshal(r.env.ResponseBody, &st); err != nil {
		return nil, fmt.Errorf("%w: decode status body: %v", ErrGatewayUnavailable, err)
	}
	st.RequestSuccessful = true
	c.log.Debug("[Monnify] transaction status",
		zap.String("reference", reference),
		zap.String("status", st.PaymentStatus))
	return &st, nil
}
