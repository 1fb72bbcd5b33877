package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/expense-batchpay/internal/domain/entity"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ActorID       int64                  `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`

	// Settlement is set on TypeBatchSettled events
	Settlement *Settlement `json:"settlement,omitempty"`
}

// Settlement summarises a committed batch for the deferred consumers
type Settlement struct {
	Reference   string            `json:"reference"`
	Processor   *entity.User      `json:"processor"`
	Expenses    []*entity.Expense `json:"expenses"`
	FailedCount int               `json:"failed_count"`
	TotalAmount float64           `json:"total_amount"`
	SettledAt   time.Time         `json:"settled_at"`
}

// ProcessedCount is the number of settled expenses in the batch
func (s *Settlement) ProcessedCount() int {
	return len(s.Expenses)
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, actorID int64, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// NewSettledEvent creates the batch-settled event for a committed batch
func NewSettledEvent(s *Settlement, correlationID string) *Event {
	evt := NewEvent(TypeBatchSettled, s.Processor.ID, map[string]interface{}{
		"reference":       s.Reference,
		"processed_count": s.ProcessedCount(),
		"failed_count":    s.FailedCount,
		"total_amount":    s.TotalAmount,
	})
	evt.Settlement = s
	if correlationID != "" {
		evt.CorrelationID = correlationID
	}
	return evt
}

// WithPayload returns a copy of the event with one extra payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	cp := *e
	cp.Payload = payload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if str, ok := e.Payload[key].(string); ok {
		return str
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	switch v := e.Payload[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
