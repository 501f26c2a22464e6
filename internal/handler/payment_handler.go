package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paysettle/internal/models"
	"paysettle/internal/service"
)

// PaymentVerifier answers the client app's status poll.
type PaymentVerifier interface {
	Verify(ctx context.Context, reference string) (*service.VerifyResult, error)
}

// Checkout creates payment records and gateway checkouts.
type Checkout interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.PaymentRecord, error)
	Initialize(ctx context.Context, paymentID, callbackLink string) (*service.CheckoutResult, error)
}

type PaymentHandler struct {
	verifier PaymentVerifier
	checkout Checkout
	log      *zap.Logger
}

func NewPaymentHandler(verifier PaymentVerifier, checkout Checkout, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{verifier: verifier, checkout: checkout, log: logger}
}

type verifyRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_reference is required"})
		return
	}
	res, err := h.verifier.Verify(c.Request.Context(), req.PaymentReference)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.checkout.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Initialize starts a gateway checkout. With ?redirect=1 the browser is sent straight to it.
func (h *PaymentHandler) Initialize(c *gin.Context) {
	res, err := h.checkout.Initialize(c.Request.Context(), c.Param("id"), c.Query("callback"))
	if err != nil {
		h.log.Warn("[Checkout] initialize failed", zap.String("payment_id", c.Param("id")), zap.Error(err))
		respondError(c, err)
		return
	}
	if c.Query("redirect") == "1" {
		c.Redirect(http.StatusFound, res.CheckoutURL)
		return
	}
	c.JSON(http.StatusOK, res)
}
