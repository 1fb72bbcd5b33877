package port

import (
	"context"

	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

// EmailMessage is one outbound email
type EmailMessage struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// EmailSender delivers email. A nil error means the message was accepted.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMSSender delivers SMS text messages
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}

// RealtimeMessage is one named event addressed to a channel
type RealtimeMessage struct {
	// Channel is a room such as "user-12" or "role-finance"; empty means broadcast
	Channel string                 `json:"channel,omitempty"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

// EventPublisher pushes real-time messages to connected clients.
// Delivery is at-most-once.
type EventPublisher interface {
	Publish(ctx context.Context, msg RealtimeMessage) error
}

// Authorizer decides whether a role may perform an action on a resource
type Authorizer interface {
	Authorize(role, resource, action string) (bool, error)
}

// LedgerExporter renders ledger entries into a downloadable document
type LedgerExporter interface {
	Export(entries []*entity.BatchPayment) ([]byte, error)
}
