// Package realtime pushes booking events to users' live connections.
// Delivery is fire-and-forget: the persisted notification is the durable record.
package realtime

import (
	"context"
	"time"
)

const EventBookingUpdated = "booking.updated"

// Event is the live message sent to one user's connections.
type Event struct {
	Type         string             `json:"type"`
	BookingID    string             `json:"bookingId"`
	Status       string             `json:"status"`
	Notification *NotificationEvent `json:"notification,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// NotificationEvent mirrors the inbox record created alongside the event.
type NotificationEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Broadcaster delivers an event to every live connection of userID.
// A user with no connections is not an error.
type Broadcaster interface {
	Broadcast(ctx context.Context, userID string, evt Event) error
}

// Conn is one live connection handle.
type Conn interface {
	// Send queues msg without blocking. It reports false when the connection cannot keep up.
	Send(msg []byte) bool
	Close()
}
