package model

import "time"

// Event represents a bookable event as stored in the `events` table.
// TotalSeats is the event's capacity and is immutable after creation;
// the booking core only ever reads it.  The number of seats currently
// taken is not stored here – it lives in the Redis seat counter and is
// reconciled against booking rows by the orchestrator.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – human readable event name.
//  TotalSeats – capacity of the event (>= 1).
//  CreatedAt  – creation timestamp.
type Event struct {
	ID         uint64    `json:"id"`          // events.id
	Name       string    `json:"name"`        // events.name
	TotalSeats uint32    `json:"total_seats"` // events.total_seats
	CreatedAt  time.Time `json:"created_at"`  // events.created_at
}
