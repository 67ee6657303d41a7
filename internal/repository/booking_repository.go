package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-booking/internal/model"
)

// BookingRepo provides data access to the `bookings` table.  The table
// carries a unique key over (event_id, user_id); all writes happen
// under the per-event distributed lock, so the key is a safety net
// rather than the primary concurrency control.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts a booking row and populates the generated ID and
// creation timestamp.  A unique-key violation maps to
// ErrDuplicateBooking.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO bookings (event_id, user_id) VALUES (?, ?)",
		b.EventID, b.UserID)
	if err != nil {
		// MySQL error 1062: duplicate entry for a unique key.
		if strings.Contains(err.Error(), "1062") {
			return ErrDuplicateBooking
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM bookings WHERE id = ?", b.ID).Scan(&b.CreatedAt)
}

// GetByID fetches a booking by id.  It returns (nil, nil) when no row
// matches.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		"SELECT id, event_id, user_id, created_at FROM bookings WHERE id = ? LIMIT 1",
		id).Scan(&b.ID, &b.EventID, &b.UserID, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByEventAndUser fetches the booking a user holds for an event.  It
// returns (nil, nil) when the user has no booking for the event.
func (r *BookingRepo) GetByEventAndUser(ctx context.Context, eventID, userID uint64) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		"SELECT id, event_id, user_id, created_at FROM bookings WHERE event_id = ? AND user_id = ? LIMIT 1",
		eventID, userID).Scan(&b.ID, &b.EventID, &b.UserID, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes a booking row by id.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
	return err
}

// ListByUser returns all bookings of a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx,
		"SELECT id, event_id, user_id, created_at FROM bookings WHERE user_id = ? ORDER BY created_at DESC",
		userID)
}

// ListByEvent returns all bookings for an event, newest first.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
	return r.list(ctx,
		"SELECT id, event_id, user_id, created_at FROM bookings WHERE event_id = ? ORDER BY created_at DESC",
		eventID)
}

func (r *BookingRepo) list(ctx context.Context, query string, arg uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// TopBookers returns the users holding the most bookings, up to limit.
// Place numbering is left to the caller.
func (r *BookingRepo) TopBookers(ctx context.Context, limit int) ([]model.TopBooker, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id, COUNT(id) AS cnt FROM bookings GROUP BY user_id ORDER BY cnt DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []model.TopBooker
	for rows.Next() {
		var t model.TopBooker
		if err := rows.Scan(&t.UserID, &t.Bookings); err != nil {
			return nil, err
		}
		top = append(top, t)
	}
	return top, rows.Err()
}
