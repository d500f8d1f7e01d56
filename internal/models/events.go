package models

import "encoding/json"

// Push event kinds delivered on the order-events topic.
const (
	EventOrderCreated = "orderCreated"
	EventOrderUpdated = "orderUpdated"
	EventOrderDeleted = "orderDeleted"
	EventTableUpdated = "tableUpdated"
)

// Event is the envelope published by the order-service for every mutation.
// Payload carries the object, a partial of it, or just an identifier in one of
// several historical shapes; sync.NormalizeID resolves them all.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
