package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/event-booking/internal/model"
)

// Validator runs the stateless pre-conditions for creating a booking:
// the event exists, the user holds no booking for it yet, and at least
// one seat appears available.  The same checks run twice per create –
// once outside the lock to fail fast, and again inside the lock where
// they are authoritative, because only the lock serializes writers.
type Validator struct {
	events   EventStore
	bookings BookingStore
	seats    Counter
}

// NewValidator returns a Validator over the given stores.
func NewValidator(events EventStore, bookings BookingStore, seats Counter) *Validator {
	return &Validator{events: events, bookings: bookings, seats: seats}
}

// Validate checks all booking pre-conditions and returns the event on
// success.  Failures map onto the service error taxonomy.
func (v *Validator) Validate(ctx context.Context, eventID, userID uint64) (*model.Event, error) {
	event, err := v.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	existing, err := v.bookings.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("check existing booking: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyBooked
	}

	booked, err := v.seats.Current(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if booked >= int64(event.TotalSeats) {
		return nil, ErrNoSeatsAvailable
	}
	return event, nil
}
