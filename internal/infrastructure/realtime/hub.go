// Package realtime delivers RealtimeMessages to connected SSE clients,
// locally through Hub and across instances through Redis pub/sub.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/port"
)

// Conn is one SSE client connection
type Conn struct {
	ID          string
	UserID      int64
	Send        chan []byte
	ConnectedAt time.Time

	channels map[string]bool
	closed   atomic.Bool
}

// TrySend queues data without blocking. It reports false when the
// connection is closed or its buffer is full.
func (c *Conn) TrySend(data []byte) (sent bool) {
	if c.closed.Load() {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			sent = false
		}
	}()

	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Close marks the connection closed and closes Send
func (c *Conn) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.Send)
	}
}

// receives reports whether a message for channel reaches this connection.
// The empty channel is a broadcast.
func (c *Conn) receives(channel string) bool {
	return channel == "" || c.channels[channel]
}

// HubConfig holds Hub limits
type HubConfig struct {
	MaxConnsPerUser int
	BufferSize      int
}

// Hub fans RealtimeMessages out to registered connections
type Hub struct {
	conns     map[string]*Conn
	userConns map[int64]int
	mu        sync.RWMutex

	maxConnsPerUser int
	bufferSize      int
	shutdown        atomic.Bool

	logger *zap.Logger
}

// NewHub creates a hub; zero config values take defaults of 5 connections
// per user and a 64 message buffer.
func NewHub(config HubConfig, logger *zap.Logger) *Hub {
	if config.MaxConnsPerUser <= 0 {
		config.MaxConnsPerUser = 5
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	return &Hub{
		conns:           make(map[string]*Conn),
		userConns:       make(map[int64]int),
		maxConnsPerUser: config.MaxConnsPerUser,
		bufferSize:      config.BufferSize,
		logger:          logger,
	}
}

// Register adds a connection subscribed to channels. It returns nil when the
// user is at the connection limit or the hub is shut down.
func (h *Hub) Register(connID string, userID int64, channels []string) *Conn {
	if h.shutdown.Load() {
		return nil
	}

	subs := make(map[string]bool, len(channels))
	for _, ch := range channels {
		subs[ch] = true
	}
	conn := &Conn{
		ID:          connID,
		UserID:      userID,
		Send:        make(chan []byte, h.bufferSize),
		ConnectedAt: time.Now(),
		channels:    subs,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.userConns[userID] >= h.maxConnsPerUser {
		h.logger.Warn("SSE connection limit exceeded",
			zap.Int64("user_id", userID),
			zap.Int("limit", h.maxConnsPerUser))
		return nil
	}

	h.conns[connID] = conn
	h.userConns[userID]++

	h.logger.Info("SSE connection registered",
		zap.String("conn_id", connID),
		zap.Int64("user_id", userID),
		zap.Strings("channels", channels))
	return conn
}

// Unregister removes and closes a connection
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		if h.userConns[conn.UserID] > 0 {
			h.userConns[conn.UserID]--
		}
		if h.userConns[conn.UserID] == 0 {
			delete(h.userConns, conn.UserID)
		}
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.logger.Info("SSE connection unregistered",
			zap.String("conn_id", connID),
			zap.Int64("user_id", conn.UserID))
	}
}

// Publish delivers msg to local connections. Delivery is at-most-once: a
// connection whose buffer is full misses the message.
func (h *Hub) Publish(ctx context.Context, msg port.RealtimeMessage) error {
	data, err := FormatSSE(msg)
	if err != nil {
		return err
	}
	h.deliver(msg.Channel, msg.Event, data)
	return nil
}

func (h *Hub) deliver(channel, eventName string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.conns {
		if !conn.receives(channel) {
			continue
		}
		if !conn.TrySend(data) {
			h.logger.Warn("Failed to send SSE event, channel full",
				zap.String("conn_id", conn.ID),
				zap.String("event", eventName))
		}
	}
}

// ConnCount returns the number of registered connections
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Shutdown closes every connection and rejects new ones. Safe to call twice.
func (h *Hub) Shutdown() {
	if !h.shutdown.CompareAndSwap(false, true) {
		return
	}

	h.mu.Lock()
	for _, conn := range h.conns {
		conn.Close()
	}
	h.conns = make(map[string]*Conn)
	h.userConns = make(map[int64]int)
	h.mu.Unlock()
}

// FormatSSE renders msg as "event: <name>\ndata: <json>\n\n"
func FormatSSE(msg port.RealtimeMessage) ([]byte, error) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal realtime data: %w", err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", msg.Event, data)), nil
}

// Verify interface compliance
var _ port.EventPublisher = (*Hub)(nil)
