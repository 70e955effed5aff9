// Package events defines the session event payloads exchanged over the
// message broker and the publisher/consumer pair that moves them.  Events
// let the surrounding application (the operator's screen, notification
// bots) react to engine state changes without polling the board.
package events

import "context"

// Event types published on the session.events queue.
const (
	TypeBookingConfirmed = "booking_confirmed" // a booking became active and was charged
	TypePromotionPending = "promotion_pending" // a device went idle with customers waiting
)

// SessionEvent is published whenever a booking is confirmed on a device or a
// device is left idle with a non-empty queue awaiting an operator decision.
// It carries enough context for downstream consumers to log or notify
// without querying the engine.
type SessionEvent struct {
	Type         string `json:"type"`
	DeviceID     string `json:"device_id"`
	DeviceName   string `json:"device_name"`
	BookingID    string `json:"booking_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	Game         string `json:"game,omitempty"`
	DurationMin  int    `json:"duration_min,omitempty"`
	Price        int    `json:"price,omitempty"`
	EndTime      string `json:"end_time,omitempty"` // RFC3339
	QueueLength  int    `json:"queue_length"`
	OccurredAt   string `json:"occurred_at"` // RFC3339
}

// PublishFunc is the signature the engine uses to emit events.  Wiring a nil
// function disables publishing.
type PublishFunc func(ctx context.Context, ev SessionEvent) error
