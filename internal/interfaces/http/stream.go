package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/expense-batchpay/internal/application/service"
)

// StreamHandler serves the SSE real-time stream
type StreamHandler struct {
	hub       StreamHub
	keepalive time.Duration
	logger    Logger
}

// NewStreamHandler creates a StreamHandler; keepalive defaults to 30s
func NewStreamHandler(hub StreamHub, keepalive time.Duration, logger Logger) *StreamHandler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &StreamHandler{hub: hub, keepalive: keepalive, logger: logger}
}

// Stream handles GET /api/realtime/stream. The client receives its user
// channel, its role channel and broadcasts.
func (h *StreamHandler) Stream(c *gin.Context) {
	actor := actorFrom(c)
	connID := uuid.New().String()

	conn := h.hub.Register(connID, actor.ID, []string{
		service.UserChannel(actor.ID),
		service.RoleChannel(actor.Role),
	})
	if conn == nil {
		c.JSON(http.StatusTooManyRequests, Response{
			Success: false,
			Message: "Too many connections",
		})
		return
	}
	defer h.hub.Unregister(connID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := c.Writer.WriteString(": connected\n\n"); err != nil {
		h.logger.Error("SSE initial write error", "conn_id", connID, "error", err)
		return
	}
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE connection closed by client", "conn_id", connID, "user_id", actor.ID)
			return

		case data, ok := <-conn.Send:
			if !ok {
				return
			}
			if _, err := c.Writer.Write(data); err != nil {
				h.logger.Error("SSE write error", "conn_id", connID, "error", err)
				return
			}
			c.Writer.Flush()

		case <-ticker.C:
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				h.logger.Error("SSE keepalive error", "conn_id", connID, "error", err)
				return
			}
			c.Writer.Flush()
		}
	}
}
