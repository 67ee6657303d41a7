package model

import "time"

// Booking records that a user holds one seat for an event.  The
// `bookings` table enforces a unique key over (event_id, user_id), so a
// user can hold at most one booking per event at any point in time.
// Rows are created and deleted exclusively by the booking orchestrator
// while it holds the per-event distributed lock.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event this booking belongs to.
//  UserID    – user who made the booking.
//  CreatedAt – creation timestamp.
type Booking struct {
	ID        uint64    `json:"id"`         // bookings.id
	EventID   uint64    `json:"event_id"`   // bookings.event_id
	UserID    uint64    `json:"user_id"`    // bookings.user_id
	CreatedAt time.Time `json:"created_at"` // bookings.created_at
}

// TopBooker is one row of the most-active-bookers leaderboard.
type TopBooker struct {
	UserID   uint64 `json:"user_id"`
	Bookings int64  `json:"count"`
	Place    int    `json:"place"`
}
