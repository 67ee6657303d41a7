// Package lock implements per-event distributed mutual exclusion on top
// of a shared key-value store with expiry.  Exactly one holder exists
// per event at a time across every process that shares the store; a
// crashed holder is recovered by the key's TTL.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotAcquired is returned by Acquire and WithLock when the lock could
// not be obtained after all retry attempts.  Callers should surface
// this as a retryable condition to clients.
var ErrNotAcquired = errors.New("lock: not acquired")

// Default tuning values.  The TTL bounds worst-case staleness when a
// holder crashes before releasing; retries back off linearly so that
// competing bookers spread out under contention.
const (
	DefaultTTL        = 30 * time.Second
	DefaultAttempts   = 3
	DefaultRetryDelay = 100 * time.Millisecond
)

// Store is the minimal key-value contract the lock manager needs from
// the shared store.  Both operations must be atomic with respect to
// concurrent callers: SetIfAbsent is a single set-if-not-exists with
// TTL, and CompareAndDelete deletes the key only while it still holds
// the given value.
type Store interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// Manager acquires and releases per-event booking locks.  A zero
// Manager is not usable; construct one with NewManager.
type Manager struct {
	store      Store
	ttl        time.Duration
	attempts   int
	retryDelay time.Duration
	log        *logrus.Entry
}

// Option tweaks a Manager's tuning values.
type Option func(*Manager)

// WithTTL overrides the lock TTL.
func WithTTL(ttl time.Duration) Option { return func(m *Manager) { m.ttl = ttl } }

// WithAttempts overrides the number of acquisition attempts.
func WithAttempts(n int) Option { return func(m *Manager) { m.attempts = n } }

// WithRetryDelay overrides the base delay between attempts.  Attempt n
// waits n times this value before trying again.
func WithRetryDelay(d time.Duration) Option { return func(m *Manager) { m.retryDelay = d } }

// NewManager returns a Manager bound to the given store with the
// default TTL and retry policy.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		ttl:        DefaultTTL,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
		log:        logrus.WithField("component", "event_lock"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key returns the lock key for an event.
func Key(eventID uint64) string {
	return fmt.Sprintf("lock:event:%d:booking", eventID)
}

// Acquire attempts to take the booking lock for an event.  It retries
// with linearly increasing backoff and returns the opaque ownership
// token on success.  After exhausting all attempts it returns
// ErrNotAcquired.
func (m *Manager) Acquire(ctx context.Context, eventID uint64) (string, error) {
	key := Key(eventID)
	token := uuid.NewString()

	for attempt := 1; attempt <= m.attempts; attempt++ {
		ok, err := m.store.SetIfAbsent(ctx, key, token, m.ttl)
		if err != nil {
			return "", fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			m.log.WithFields(logrus.Fields{"event_id": eventID, "attempt": attempt}).Debug("lock acquired")
			return token, nil
		}
		if attempt < m.attempts {
			select {
			case <-time.After(time.Duration(attempt) * m.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	m.log.WithFields(logrus.Fields{"event_id": eventID, "attempts": m.attempts}).Warn("failed to acquire lock")
	return "", ErrNotAcquired
}

// Release frees the booking lock for an event, but only if it is still
// owned by the given token.  The compare-and-delete guard prevents a
// slow holder from deleting a lock that has already expired and been
// taken over by someone else.  It reports whether the delete took
// effect.
func (m *Manager) Release(ctx context.Context, eventID uint64, token string) (bool, error) {
	released, err := m.store.CompareAndDelete(ctx, Key(eventID), token)
	if err != nil {
		return false, fmt.Errorf("lock: release event %d: %w", eventID, err)
	}
	if !released {
		m.log.WithField("event_id", eventID).Warn("lock not released - it may have expired")
	}
	return released, nil
}

// WithLock runs fn while holding the event's booking lock and releases
// the lock on every exit path, including when fn returns an error.  At
// most one fn runs per event at a time across all processes sharing
// the store, modulo TTL expiry.  When the lock cannot be acquired it
// returns ErrNotAcquired without invoking fn.
func (m *Manager) WithLock(ctx context.Context, eventID uint64, fn func(ctx context.Context) error) error {
	token, err := m.Acquire(ctx, eventID)
	if err != nil {
		return err
	}
	defer func() {
		// Release must not inherit fn's cancellation: a cancelled ctx
		// would leave the lock held until the TTL expires.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := m.Release(releaseCtx, eventID, token); err != nil {
			m.log.WithField("event_id", eventID).WithError(err).Error("failed to release lock")
		}
	}()
	return fn(ctx)
}
