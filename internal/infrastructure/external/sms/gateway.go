package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/port"
)

// GatewayConfig holds the HTTP SMS gateway settings
type GatewayConfig struct {
	URL      string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// GatewaySender implements port.SMSSender against a JSON HTTP gateway
type GatewaySender struct {
	config     GatewayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

// NewGatewaySender creates an SMS sender
func NewGatewaySender(config GatewayConfig, logger *zap.Logger) *GatewaySender {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewaySender{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send posts one text message to the gateway. Any non-2xx status is an error.
func (s *GatewaySender) Send(ctx context.Context, phone, text string) error {
	if phone == "" {
		return fmt.Errorf("phone cannot be empty")
	}

	data, err := json.Marshal(sendRequest{To: phone, Message: text, Sender: s.config.SenderID})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("SMS gateway request failed", zap.Error(err))
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error("SMS gateway rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil
}

// Verify interface compliance
var _ port.SMSSender = (*GatewaySender)(nil)
