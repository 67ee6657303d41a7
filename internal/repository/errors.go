// Package repository provides data access to the MySQL tables backing
// events, bookings, users and refresh tokens.  Sentinel errors let the
// service and handler layers distinguish failure scenarios without
// string matching.
package repository

import "errors"

// ErrEmailExists is returned when registering with an email that is
// already taken.  Handlers translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateBooking is returned when the bookings unique key over
// (event_id, user_id) rejects an insert.  Under the event lock this
// should not happen; it is the database's last line of defense.
var ErrDuplicateBooking = errors.New("booking already exists for this event and user")
