package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/lock"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
)

// EventStore reads events from durable persistence.  GetByID returns
// (nil, nil) when the event does not exist.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
}

// BookingStore reads and writes booking rows.  Lookups return
// (nil, nil) when no row matches.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByEventAndUser(ctx context.Context, eventID, userID uint64) (*model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id uint64) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error)
	TopBookers(ctx context.Context, limit int) ([]model.TopBooker, error)
}

// Locker serializes booking writers per event.  WithLock returns
// lock.ErrNotAcquired when the lock cannot be taken.
type Locker interface {
	WithLock(ctx context.Context, eventID uint64, fn func(ctx context.Context) error) error
}

// Counter is the atomic seat counter.  Only lock holders may call
// TryReserve or Release for an event; Current is an advisory read.
type Counter interface {
	TryReserve(ctx context.Context, eventID uint64, capacity uint32) (bool, error)
	Release(ctx context.Context, eventID uint64) (bool, error)
	Current(ctx context.Context, eventID uint64) (int64, error)
}

// Notifier publishes booking outcomes to the notification queue.
type Notifier interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// BookingService coordinates validator, lock manager, seat counter and
// persistence to create or cancel a booking as one logical unit, and
// owns the compensation when persistence fails after a seat was
// already reserved.
type BookingService struct {
	events    EventStore
	bookings  BookingStore
	locks     Locker
	seats     Counter
	notifier  Notifier
	validator *Validator
	log       *logrus.Entry
}

// NewBookingService wires the orchestrator's collaborators together.
func NewBookingService(events EventStore, bookings BookingStore, locks Locker, seats Counter, notifier Notifier) *BookingService {
	return &BookingService{
		events:    events,
		bookings:  bookings,
		locks:     locks,
		seats:     seats,
		notifier:  notifier,
		validator: NewValidator(events, bookings, seats),
		log:       logrus.WithField("component", "booking_service"),
	}
}

// CreateBooking books one seat on an event for a user.
//
// The flow is: validate without the lock (fail fast), acquire the
// per-event lock, validate again (double-check - the first pass can
// race with another booker), atomically reserve a seat, persist the
// row, release the lock, and finally publish the outcome without
// waiting for it.  A persistence failure releases the reserved seat
// before propagating, since counter and database are not covered by a
// shared transaction.
func (s *BookingService) CreateBooking(ctx context.Context, eventID, userID uint64) (*model.Booking, error) {
	if _, err := s.validator.Validate(ctx, eventID, userID); err != nil {
		return nil, err
	}

	var booking *model.Booking
	err := s.locks.WithLock(ctx, eventID, func(ctx context.Context) error {
		event, err := s.validator.Validate(ctx, eventID, userID)
		if err != nil {
			return err
		}

		reserved, err := s.seats.TryReserve(ctx, eventID, event.TotalSeats)
		if err != nil {
			return err
		}
		if !reserved {
			return ErrNoSeatsAvailable
		}

		b := &model.Booking{EventID: eventID, UserID: userID}
		if err := s.bookings.Create(ctx, b); err != nil {
			// Compensate: the seat was reserved but the row never
			// materialized, so give the seat back before failing.
			if _, relErr := s.seats.Release(ctx, eventID); relErr != nil {
				s.log.WithField("event_id", eventID).WithError(relErr).
					Error("rollback of seat reservation failed; counter is ahead of bookings")
			}
			return fmt.Errorf("persist booking: %w", err)
		}
		booking = b
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrLockUnavailable
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"event_id":   eventID,
		"user_id":    userID,
	}).Info("booking created")
	s.notifyAsync(booking, queue.OutcomeBookingCreated)
	return booking, nil
}

// CancelBooking removes a user's booking and gives the seat back.
// Cancellation takes the same per-event lock as creation, so the two
// can never interleave for one event.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID uint64) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("look up booking: %w", err)
	}
	if booking == nil || booking.UserID != userID {
		return ErrBookingNotFound
	}

	err = s.locks.WithLock(ctx, booking.EventID, func(ctx context.Context) error {
		if err := s.bookings.Delete(ctx, booking.ID); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		// Release never drives the counter below zero; a failed
		// release leaves the counter ahead of the rows, which the
		// next administrative reset reconciles.
		if _, err := s.seats.Release(ctx, booking.EventID); err != nil {
			s.log.WithField("event_id", booking.EventID).WithError(err).
				Error("failed to release seat after cancellation")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return ErrLockUnavailable
		}
		return err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"user_id":    userID,
	}).Info("booking cancelled")
	s.notifyAsync(booking, queue.OutcomeBookingCancelled)
	return nil
}

// Availability describes how full an event is.  Booked comes from the
// seat counter and is advisory: authoritative only inside the lock.
type Availability struct {
	Event     *model.Event `json:"event"`
	Booked    int64        `json:"booked"`
	Available int64        `json:"available"`
}

// EventAvailability returns the event together with its current seat
// usage.
func (s *BookingService) EventAvailability(ctx context.Context, eventID uint64) (*Availability, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	booked, err := s.seats.Current(ctx, eventID)
	if err != nil {
		return nil, err
	}
	available := int64(event.TotalSeats) - booked
	if available < 0 {
		available = 0
	}
	return &Availability{Event: event, Booked: booked, Available: available}, nil
}

// BookingsForUser lists a user's bookings, newest first.
func (s *BookingService) BookingsForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// BookingsForEvent lists an event's bookings, newest first.
func (s *BookingService) BookingsForEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return s.bookings.ListByEvent(ctx, eventID)
}

// TopBookers returns the users with the most bookings, ranked.
func (s *BookingService) TopBookers(ctx context.Context, limit int) ([]model.TopBooker, error) {
	if limit <= 0 {
		limit = 10
	}
	top, err := s.bookings.TopBookers(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range top {
		top[i].Place = i + 1
	}
	return top, nil
}

// notifyAsync publishes a booking outcome from a detached goroutine.
// The booking result never depends on notification delivery: publish
// errors are logged here and go no further.
func (s *BookingService) notifyAsync(b *model.Booking, outcome string) {
	msg := queue.NewNotification(b.UserID, b.EventID, b.ID, outcome)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.Publish(ctx, msg); err != nil {
			s.log.WithFields(logrus.Fields{
				"outcome":    outcome,
				"booking_id": b.ID,
			}).WithError(err).Error("failed to publish notification")
		}
	}()
}
