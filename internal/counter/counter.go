// Package counter maintains the per-event seat counter: the number of
// reservations currently held, bounded by the event's capacity.  The
// check-and-mutate operations are indivisible at the store – a plain
// read-then-write would let two bookers both observe the last free
// seat, which is exactly the defect this package exists to avoid.
package counter

import (
	"context"
	"fmt"
)

// Store is the atomic-counter contract against the shared key-value
// store.  IncrementIfBelow and DecrementIfPositive must each execute as
// a single indivisible read-check-mutate with respect to concurrent
// callers.
type Store interface {
	IncrementIfBelow(ctx context.Context, key string, limit int64) (bool, error)
	DecrementIfPositive(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// SeatCounter tracks held reservations per event.  The counter is
// created implicitly on the first reservation and deleted by Reset.
// It is eventually consistent with booking rows; the orchestrator's
// rollback path reconciles the two.
type SeatCounter struct {
	store Store
}

// New returns a SeatCounter bound to the given store.
func New(store Store) *SeatCounter {
	return &SeatCounter{store: store}
}

// Key returns the counter key for an event.
func Key(eventID uint64) string {
	return fmt.Sprintf("event:%d:bookings", eventID)
}

// TryReserve atomically takes one seat if the count is still below
// capacity.  It reports whether a seat was taken; false means the
// event is sold out.
func (c *SeatCounter) TryReserve(ctx context.Context, eventID uint64, capacity uint32) (bool, error) {
	ok, err := c.store.IncrementIfBelow(ctx, Key(eventID), int64(capacity))
	if err != nil {
		return false, fmt.Errorf("counter: reserve event %d: %w", eventID, err)
	}
	return ok, nil
}

// Release atomically gives one seat back.  It is a no-op when the
// count is already zero, so cancellation and rollback can never drive
// the counter negative.  It reports whether a decrement happened.
func (c *SeatCounter) Release(ctx context.Context, eventID uint64) (bool, error) {
	ok, err := c.store.DecrementIfPositive(ctx, Key(eventID))
	if err != nil {
		return false, fmt.Errorf("counter: release event %d: %w", eventID, err)
	}
	return ok, nil
}

// Current returns the number of reservations currently held.  The read
// is not atomic with any subsequent mutation: outside the event lock
// the value is advisory, used for availability displays and the
// pre-lock validation pass.
func (c *SeatCounter) Current(ctx context.Context, eventID uint64) (int64, error) {
	n, err := c.store.Get(ctx, Key(eventID))
	if err != nil {
		return 0, fmt.Errorf("counter: read event %d: %w", eventID, err)
	}
	return n, nil
}

// Reset deletes the counter key.  Administrative and test use.
func (c *SeatCounter) Reset(ctx context.Context, eventID uint64) error {
	if err := c.store.Delete(ctx, Key(eventID)); err != nil {
		return fmt.Errorf("counter: reset event %d: %w", eventID, err)
	}
	return nil
}
