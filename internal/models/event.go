package models

import "time"

// Position event type constants
const (
	EventPositionOpened = "POSITION_OPENED"
	EventPositionEdited = "POSITION_EDITED"
	EventPositionClosed = "POSITION_CLOSED"
	EventPositionRolled = "POSITION_ROLLED"
	EventPositionShared = "POSITION_SHARED"
)

// PositionEvent represents a Kafka event for a position transition
type PositionEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	PositionID int       `json:"position_id"`
	OwnerEmail string    `json:"owner_email"`
	Symbol     string    `json:"symbol"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}
