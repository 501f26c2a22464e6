package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"paysettle/config"
	"paysettle/internal/auth"
	"paysettle/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RecordLookup returns the current record for a reference, used for the first message.
type RecordLookup interface {
	GetByReference(ctx context.Context, ref string) (*models.PaymentRecord, error)
}

type snapshot struct {
	Type                 string `json:"type"`
	Reference            string `json:"reference"`
	Status               string `json:"status"`
	IsPaid               bool   `json:"is_paid"`
	TransactionReference string `json:"transaction_reference,omitempty"`
}

// UpgradePaymentStatusWS subscribes a client to status changes of ?reference=, authenticated by ?token=.
func UpgradePaymentStatusWS(cfg *config.JWTConfig, hub *StatusHub, lookup RecordLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Query("reference")
		token := c.Query("token")
		if reference == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference and token are required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("[WS] upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		client := NewClient(reference, claims.Subject)
		hub.Register(client)
		defer client.Close()

		if lookup != nil {
			if rec, err := lookup.GetByReference(c.Request.Context(), reference); err == nil {
				data, _ := json.Marshal(snapshot{
					Type:                 "payment_status",
					Reference:            reference,
					Status:               rec.Status,
					IsPaid:               rec.IsPaid,
					TransactionReference: rec.TxRef(),
				})
				client.deliver(data)
			}
		}
		go writePump(client, conn)
		readPump(conn)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
