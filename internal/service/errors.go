package service

import (
	"errors"

	"paysettle/internal/repository"
	"paysettle/pkg/monnify"
)

var (
	ErrPaymentNotFound     = repository.ErrPaymentNotFound
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrMalformedPayload    = errors.New("malformed webhook payload")
	ErrGatewayUnavailable  = monnify.ErrGatewayUnavailable
	ErrGatewayRejected     = monnify.ErrGatewayRejected
	ErrTransactionNotFound = monnify.ErrTransactionNotFound
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrUnknownHook         = errors.New("unknown hook kind")
)
