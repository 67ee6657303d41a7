// Package queue defines the notification messages exchanged over the
// message broker and the publish/consume plumbing around them.
package queue

import "time"

// NotificationQueue is the durable queue carrying booking outcomes to
// the notification consumer.
const NotificationQueue = "booking_notifications"

// Booking outcomes carried in a message payload.  The notification
// dispatcher maps each outcome to a set of delivery channels.
const (
	OutcomeBookingCreated   = "booking_created"
	OutcomeBookingCancelled = "booking_cancelled"
	OutcomeEventReminder    = "event_reminder"
)

// Payload identifies the booking a notification is about and what
// happened to it.
type Payload struct {
	UserID    uint64 `json:"user_id"`
	EventID   uint64 `json:"event_id"`
	BookingID uint64 `json:"booking_id"`
	Outcome   string `json:"outcome"`
}

// Message is the wire format of a notification.  It is transient: it
// exists only on the queue between publish and acknowledgment.
type Message struct {
	Type      string    `json:"type"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotification builds a notification message for a booking outcome,
// stamped with the current UTC time.
func NewNotification(userID, eventID, bookingID uint64, outcome string) Message {
	return Message{
		Type: "notification",
		Payload: Payload{
			UserID:    userID,
			EventID:   eventID,
			BookingID: bookingID,
			Outcome:   outcome,
		},
		Timestamp: time.Now().UTC(),
	}
}
