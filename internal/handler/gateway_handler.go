package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"paysettle/internal/service"
	"paysettle/pkg/monnify"
)

// GatewayChecker checks that the gateway accepts our credentials.
type GatewayChecker interface {
	Ping(ctx context.Context) error
	Config() monnify.Config
}

type GatewayHandler struct {
	gateway GatewayChecker
}

func NewGatewayHandler(gateway GatewayChecker) *GatewayHandler {
	return &GatewayHandler{gateway: gateway}
}

// Health reports the masked gateway configuration and whether login works.
func (h *GatewayHandler) Health(c *gin.Context) {
	resp := gin.H{
		"config":    service.MaskedGatewayConfig(h.gateway.Config()),
		"connected": true,
	}
	if err := h.gateway.Ping(c.Request.Context()); err != nil {
		resp["connected"] = false
		resp["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
