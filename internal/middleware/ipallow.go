package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IPAllowList rejects requests whose client IP is not listed. Entries may be
// single addresses or CIDR ranges. An empty list allows everything.
func IPAllowList(allowed []string, logger *zap.Logger) gin.HandlerFunc {
	var nets []*net.IPNet
	ips := make(map[string]struct{})
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.Contains(a, "/") {
			if _, n, err := net.ParseCIDR(a); err == nil {
				nets = append(nets, n)
				continue
			}
			logger.Warn("[IPAllowList] ignoring invalid CIDR", zap.String("entry", a))
			continue
		}
		if ip := net.ParseIP(a); ip != nil {
			ips[ip.String()] = struct{}{}
		}
	}
	open := len(ips) == 0 && len(nets) == 0

	return func(c *gin.Context) {
		if open {
			c.Next()
			return
		}
		ip := net.ParseIP(c.ClientIP())
		if ip != nil {
			if _, ok := ips[ip.String()]; ok {
				c.Next()
				return
			}
			for _, n := range nets {
				if n.Contains(ip) {
					c.Next()
					return
				}
			}
		}
		logger.Warn("[IPAllowList] rejected request",
			zap.String("ip", c.ClientIP()),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
