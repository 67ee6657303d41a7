// Package service contains the booking orchestrator: the one place
// that coordinates validation, the distributed lock, the seat counter,
// persistence and notification publishing for creating and cancelling
// bookings.
package service

import "errors"

// Booking error taxonomy.  Validation failures (event missing,
// duplicate booking, no seats) are client-facing and final; lock and
// reserve races are retryable from the client's point of view;
// persistence failures indicate a degraded system and are rolled back
// before being surfaced.
var (
	// ErrEventNotFound means the event does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrAlreadyBooked means the user already holds a booking for
	// this event; at most one booking per (event, user) may exist.
	ErrAlreadyBooked = errors.New("user has already booked a seat for this event")

	// ErrNoSeatsAvailable means the event is sold out - either
	// observed during validation or by losing the race at the atomic
	// reserve step.
	ErrNoSeatsAvailable = errors.New("no seats available for this event")

	// ErrLockUnavailable means the per-event booking lock could not
	// be acquired after retries; the client should try again shortly.
	ErrLockUnavailable = errors.New("event is busy, try again")

	// ErrBookingNotFound means the booking does not exist or belongs
	// to a different user.
	ErrBookingNotFound = errors.New("booking not found")
)
