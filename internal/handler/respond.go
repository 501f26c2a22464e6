package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"paysettle/internal/service"
)

// respondError maps service errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		status, msg = http.StatusNotFound, "payment not found"
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrUnknownHook), errors.Is(err, service.ErrMalformedPayload):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidSignature):
		status, msg = http.StatusUnauthorized, "invalid signature"
	case errors.Is(err, service.ErrGatewayRejected):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrGatewayUnavailable):
		status, msg = http.StatusServiceUnavailable, "payment gateway unavailable"
	case errors.Is(err, service.ErrTransactionNotFound):
		status, msg = http.StatusNotFound, "transaction not found"
	}
	c.JSON(status, gin.H{"error": msg})
}
