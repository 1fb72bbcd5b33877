package event

// Type identifies the type of domain event
type Type string

const (
	// TypeBatchSettled fires once per settlement batch with at least one processed expense
	TypeBatchSettled Type = "batch.settled"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeBatchSettled:
		return true
	default:
		return false
	}
}
