package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/lock"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/service"
)

// ----- in-memory collaborators -----

type fakeEvents struct {
	mu     sync.Mutex
	events map[uint64]*model.Event
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

type fakeBookings struct {
	mu         sync.Mutex
	nextID     uint64
	rows       map[uint64]model.Booking
	failCreate error
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{rows: make(map[uint64]model.Booking)}
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.rows[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeBookings) GetByEventAndUser(_ context.Context, eventID, userID uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.rows {
		if b.EventID == eventID && b.UserID == userID {
			cp := b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now().UTC()
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeBookings) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.rows {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) ListByEvent(_ context.Context, eventID uint64) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.rows {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) TopBookers(_ context.Context, limit int) ([]model.TopBooker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[uint64]int64)
	for _, b := range f.rows {
		counts[b.UserID]++
	}
	var out []model.TopBooker
	for uid, n := range counts {
		out = append(out, model.TopBooker{UserID: uid, Bookings: n})
	}
	// crude sort by count, enough for small fixtures
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Bookings > out[i].Bookings {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeLocker serializes WithLock calls per event with real mutexes, or
// refuses outright when failing is set.
type fakeLocker struct {
	mu      sync.Mutex
	locks   map[uint64]*sync.Mutex
	failing bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: make(map[uint64]*sync.Mutex)}
}

func (f *fakeLocker) WithLock(ctx context.Context, eventID uint64, fn func(ctx context.Context) error) error {
	if f.failing {
		return lock.ErrNotAcquired
	}
	f.mu.Lock()
	m, ok := f.locks[eventID]
	if !ok {
		m = &sync.Mutex{}
		f.locks[eventID] = m
	}
	f.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type fakeSeats struct {
	mu     sync.Mutex
	counts map[uint64]int64
}

func newFakeSeats() *fakeSeats {
	return &fakeSeats{counts: make(map[uint64]int64)}
}

func (f *fakeSeats) TryReserve(_ context.Context, eventID uint64, capacity uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[eventID] >= int64(capacity) {
		return false, nil
	}
	f.counts[eventID]++
	return true, nil
}

func (f *fakeSeats) Release(_ context.Context, eventID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[eventID] <= 0 {
		return false, nil
	}
	f.counts[eventID]--
	return true, nil
}

func (f *fakeSeats) Current(_ context.Context, eventID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[eventID], nil
}

// chanNotifier hands published messages to the test over a channel so
// the async publish can be awaited.
type chanNotifier struct {
	msgs chan queue.Message
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{msgs: make(chan queue.Message, 16)}
}

func (n *chanNotifier) Publish(_ context.Context, msg queue.Message) error {
	n.msgs <- msg
	return nil
}

func (n *chanNotifier) await(t *testing.T) queue.Message {
	t.Helper()
	select {
	case msg := <-n.msgs:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return queue.Message{}
	}
}

type fixture struct {
	events   *fakeEvents
	bookings *fakeBookings
	locker   *fakeLocker
	seats    *fakeSeats
	notifier *chanNotifier
	svc      *service.BookingService
}

func newFixture(capacity uint32) *fixture {
	f := &fixture{
		events: &fakeEvents{events: map[uint64]*model.Event{
			1: {ID: 1, Name: "Go Meetup", TotalSeats: capacity},
		}},
		bookings: newFakeBookings(),
		locker:   newFakeLocker(),
		seats:    newFakeSeats(),
		notifier: newChanNotifier(),
	}
	f.svc = service.NewBookingService(f.events, f.bookings, f.locker, f.seats, f.notifier)
	return f
}

// ----- tests -----

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("success reserves seat and notifies", func(t *testing.T) {
		f := newFixture(10)

		b, err := f.svc.CreateBooking(ctx, 1, 100)
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.NotZero(t, b.ID)
		assert.Equal(t, uint64(1), b.EventID)
		assert.Equal(t, uint64(100), b.UserID)

		n, _ := f.seats.Current(ctx, 1)
		assert.Equal(t, int64(1), n)

		msg := f.notifier.await(t)
		assert.Equal(t, "notification", msg.Type)
		assert.Equal(t, queue.OutcomeBookingCreated, msg.Payload.Outcome)
		assert.Equal(t, b.ID, msg.Payload.BookingID)
		assert.Equal(t, uint64(100), msg.Payload.UserID)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture(10)
		_, err := f.svc.CreateBooking(ctx, 99, 100)
		assert.ErrorIs(t, err, service.ErrEventNotFound)
	})

	t.Run("second booking by same user rejected", func(t *testing.T) {
		f := newFixture(10)
		_, err := f.svc.CreateBooking(ctx, 1, 100)
		require.NoError(t, err)
		f.notifier.await(t)

		_, err = f.svc.CreateBooking(ctx, 1, 100)
		assert.ErrorIs(t, err, service.ErrAlreadyBooked)

		n, _ := f.seats.Current(ctx, 1)
		assert.Equal(t, int64(1), n, "failed attempt must not consume a seat")
	})

	t.Run("sold out", func(t *testing.T) {
		f := newFixture(1)
		_, err := f.svc.CreateBooking(ctx, 1, 100)
		require.NoError(t, err)
		f.notifier.await(t)

		_, err = f.svc.CreateBooking(ctx, 1, 101)
		assert.ErrorIs(t, err, service.ErrNoSeatsAvailable)
	})

	t.Run("lock unavailable", func(t *testing.T) {
		f := newFixture(10)
		f.locker.failing = true

		_, err := f.svc.CreateBooking(ctx, 1, 100)
		assert.ErrorIs(t, err, service.ErrLockUnavailable)

		n, _ := f.seats.Current(ctx, 1)
		assert.Equal(t, int64(0), n)
		rows, _ := f.bookings.ListByEvent(ctx, 1)
		assert.Empty(t, rows)
	})

	t.Run("persistence failure rolls the seat back", func(t *testing.T) {
		f := newFixture(10)
		f.bookings.failCreate = errors.New("connection lost")

		_, err := f.svc.CreateBooking(ctx, 1, 100)
		require.Error(t, err)
		assert.NotErrorIs(t, err, service.ErrNoSeatsAvailable)

		n, _ := f.seats.Current(ctx, 1)
		assert.Equal(t, int64(0), n, "reserved seat must be released on rollback")

		// The seat is usable again once persistence recovers.
		f.bookings.failCreate = nil
		_, err = f.svc.CreateBooking(ctx, 1, 100)
		require.NoError(t, err)
		f.notifier.await(t)
	})
}

func TestCreateBookingLastSeatRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(1)

	const bookers = 20
	var wg sync.WaitGroup
	errs := make(chan error, bookers)

	for i := 0; i < bookers; i++ {
		userID := uint64(200 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBooking(ctx, 1, userID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, soldOut int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, service.ErrNoSeatsAvailable):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one booker gets the last seat")
	assert.Equal(t, bookers-1, soldOut)

	n, _ := f.seats.Current(ctx, 1)
	assert.Equal(t, int64(1), n)
	rows, _ := f.bookings.ListByEvent(ctx, 1)
	assert.Len(t, rows, 1)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel frees the seat for rebooking", func(t *testing.T) {
		f := newFixture(1)
		b, err := f.svc.CreateBooking(ctx, 1, 100)
		require.NoError(t, err)
		f.notifier.await(t)

		require.NoError(t, f.svc.CancelBooking(ctx, b.ID, 100))
		msg := f.notifier.await(t)
		assert.Equal(t, queue.OutcomeBookingCancelled, msg.Payload.Outcome)

		n, _ := f.seats.Current(ctx, 1)
		assert.Equal(t, int64(0), n)

		// Same user can book again without tripping the duplicate check.
		b2, err := f.svc.CreateBooking(ctx, 1, 100)
		require.NoError(t, err)
		assert.NotEqual(t, b.ID, b2.ID)

		n, _ = f.seats.Current(ctx, 1)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newFixture(1)
		err := f.svc.CancelBooking(ctx, 999, 100)
		assert.ErrorIs(t, err, service.ErrBookingNotFound)
	})

	t.Run("someone else's booking looks like it does not exist", func(t *testing.T) {
		f := newFixture(1)
		b, err := f.svc.CreateBooking(ctx, 1, 100)
		require.NoError(t, err)
		f.notifier.await(t)

		err = f.svc.CancelBooking(ctx, b.ID, 666)
		assert.ErrorIs(t, err, service.ErrBookingNotFound)

		n, _ := f.seats.Current(ctx, 1)
		assert.Equal(t, int64(1), n, "foreign cancel must not free the seat")
	})
}

func TestEventAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(5)

	_, err := f.svc.CreateBooking(ctx, 1, 100)
	require.NoError(t, err)
	f.notifier.await(t)

	avail, err := f.svc.EventAvailability(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), avail.Booked)
	assert.Equal(t, int64(4), avail.Available)
	assert.Equal(t, "Go Meetup", avail.Event.Name)

	_, err = f.svc.EventAvailability(ctx, 99)
	assert.ErrorIs(t, err, service.ErrEventNotFound)
}

func TestTopBookers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(10)
	f.events.events[2] = &model.Event{ID: 2, Name: "GopherCon", TotalSeats: 10}
	f.events.events[3] = &model.Event{ID: 3, Name: "Hack Night", TotalSeats: 10}

	// user 100 books two events, user 101 one
	for _, pair := range []struct{ event, user uint64 }{{1, 100}, {2, 100}, {3, 101}} {
		_, err := f.svc.CreateBooking(ctx, pair.event, pair.user)
		require.NoError(t, err)
		f.notifier.await(t)
	}

	top, err := f.svc.TopBookers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, uint64(100), top[0].UserID)
	assert.Equal(t, int64(2), top[0].Bookings)
	assert.Equal(t, 1, top[0].Place)
	assert.Equal(t, 2, top[1].Place)
}
