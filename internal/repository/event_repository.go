package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-booking/internal/model"
)

// EventRepo provides data access to the `events` table.  The booking
// core only ever reads events; creation is an administrative concern
// exposed through the events API.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts an event and populates the generated ID and
// timestamps on the provided model.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO events (name, total_seats) VALUES (?, ?)",
		ev.Name, ev.TotalSeats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT created_at FROM events WHERE id = ?", ev.ID).Scan(&ev.CreatedAt)
}

// GetByID fetches an event by id.  It returns (nil, nil) when the
// event does not exist.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	var ev model.Event
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, total_seats, created_at FROM events WHERE id = ? LIMIT 1",
		id).Scan(&ev.ID, &ev.Name, &ev.TotalSeats, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// List returns all events, newest first.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, total_seats, created_at FROM events ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.TotalSeats, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
