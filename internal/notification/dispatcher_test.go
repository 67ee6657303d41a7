package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/notification"
	"github.com/iliyamo/event-booking/internal/queue"
)

// stubStrategy counts sends and fails on demand.
type stubStrategy struct {
	kind notification.Kind
	err  error

	mu    sync.Mutex
	sends int
}

func (s *stubStrategy) Kind() notification.Kind { return s.kind }

func (s *stubStrategy) Send(_ context.Context, _ queue.Message) error {
	s.mu.Lock()
	s.sends++
	s.mu.Unlock()
	return s.err
}

func (s *stubStrategy) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

func TestChannelsFor(t *testing.T) {
	assert.ElementsMatch(t,
		[]notification.Kind{notification.KindEmail, notification.KindPush},
		notification.ChannelsFor(queue.OutcomeBookingCreated))
	assert.ElementsMatch(t,
		[]notification.Kind{notification.KindEmail, notification.KindSMS},
		notification.ChannelsFor(queue.OutcomeBookingCancelled))
	assert.ElementsMatch(t,
		[]notification.Kind{notification.KindPush, notification.KindEmail},
		notification.ChannelsFor(queue.OutcomeEventReminder))
	assert.Equal(t,
		[]notification.Kind{notification.KindEmail},
		notification.ChannelsFor("something_else"))
}

func TestDispatchFansOutPerOutcome(t *testing.T) {
	ctx := context.Background()
	email := &stubStrategy{kind: notification.KindEmail}
	push := &stubStrategy{kind: notification.KindPush}
	sms := &stubStrategy{kind: notification.KindSMS}
	d := notification.NewDispatcher(email, push, sms)

	msg := queue.NewNotification(1, 2, 3, queue.OutcomeBookingCreated)
	require.NoError(t, d.Dispatch(ctx, msg))

	assert.Equal(t, 1, email.sendCount())
	assert.Equal(t, 1, push.sendCount())
	assert.Equal(t, 0, sms.sendCount(), "sms is not selected for creations")
}

func TestDispatchOneChannelFailureIsTolerated(t *testing.T) {
	ctx := context.Background()
	email := &stubStrategy{kind: notification.KindEmail}
	push := &stubStrategy{kind: notification.KindPush, err: errors.New("fcm down")}
	d := notification.NewDispatcher(email, push)

	msg := queue.NewNotification(1, 2, 3, queue.OutcomeBookingCreated)
	err := d.Dispatch(ctx, msg)

	require.NoError(t, err, "one surviving channel is a successful dispatch")
	assert.Equal(t, 1, email.sendCount())
	assert.Equal(t, 1, push.sendCount(), "the failing channel still got its attempt")
}

func TestDispatchAllChannelsFailing(t *testing.T) {
	ctx := context.Background()
	email := &stubStrategy{kind: notification.KindEmail, err: errors.New("smtp down")}
	push := &stubStrategy{kind: notification.KindPush, err: errors.New("fcm down")}
	d := notification.NewDispatcher(email, push)

	msg := queue.NewNotification(1, 2, 3, queue.OutcomeBookingCreated)
	err := d.Dispatch(ctx, msg)

	require.Error(t, err)
}

func TestDispatchMissingStrategyCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	// Only email registered; creations also want push.
	email := &stubStrategy{kind: notification.KindEmail}
	d := notification.NewDispatcher(email)

	msg := queue.NewNotification(1, 2, 3, queue.OutcomeBookingCreated)
	require.NoError(t, d.Dispatch(ctx, msg), "email alone still delivers")

	// With nothing registered every selected channel is missing.
	empty := notification.NewDispatcher()
	assert.Error(t, empty.Dispatch(ctx, msg))
}

func TestNewDispatcherRegistry(t *testing.T) {
	d := notification.NewDispatcher(
		notification.NewEmailStrategy(),
		notification.NewPushStrategy(),
		notification.NewSMSStrategy(),
	)
	assert.ElementsMatch(t,
		[]notification.Kind{notification.KindEmail, notification.KindPush, notification.KindSMS},
		d.Kinds())
}
