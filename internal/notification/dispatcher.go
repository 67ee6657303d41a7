package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/queue"
)

// Dispatcher fans one notification message out to every channel its
// outcome selects.  The strategy registry is an explicit dependency
// built at construction; adding a channel means registering another
// Strategy, not touching dispatch logic.
type Dispatcher struct {
	strategies map[Kind]Strategy
	log        *logrus.Entry
}

// NewDispatcher builds a Dispatcher from the given strategies, keyed
// by each strategy's own Kind.  Registering two strategies with the
// same kind keeps the last one.
func NewDispatcher(strategies ...Strategy) *Dispatcher {
	reg := make(map[Kind]Strategy, len(strategies))
	for _, s := range strategies {
		reg[s.Kind()] = s
	}
	return &Dispatcher{
		strategies: reg,
		log:        logrus.WithField("component", "notification_dispatcher"),
	}
}

// Kinds returns the registered channel kinds.
func (d *Dispatcher) Kinds() []Kind {
	kinds := make([]Kind, 0, len(d.strategies))
	for k := range d.strategies {
		kinds = append(kinds, k)
	}
	return kinds
}

// Dispatch sends the message over every channel selected by its
// outcome, concurrently.  Channel failures are isolated: every channel
// gets its attempt regardless of the others, and failures are logged
// per channel.  Dispatch returns an error only when no selected
// channel succeeded, which signals the consumer to reject the message.
func (d *Dispatcher) Dispatch(ctx context.Context, msg queue.Message) error {
	kinds := ChannelsFor(msg.Payload.Outcome)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failed    []Kind
	)
	for _, kind := range kinds {
		strategy, ok := d.strategies[kind]
		if !ok {
			d.log.WithField("kind", kind).Warn("no strategy registered for channel")
			mu.Lock()
			failed = append(failed, kind)
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(kind Kind, strategy Strategy) {
			defer wg.Done()
			if err := strategy.Send(ctx, msg); err != nil {
				d.log.WithFields(logrus.Fields{
					"kind":    kind,
					"user_id": msg.Payload.UserID,
				}).WithError(err).Warn("channel delivery failed, continuing with others")
				mu.Lock()
				failed = append(failed, kind)
				mu.Unlock()
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}(kind, strategy)
	}
	wg.Wait()

	if succeeded == 0 {
		return fmt.Errorf("notification: all channels failed for outcome %q: %v", msg.Payload.Outcome, failed)
	}
	if len(failed) > 0 {
		d.log.WithFields(logrus.Fields{
			"outcome": msg.Payload.Outcome,
			"failed":  failed,
		}).Warn("partial notification delivery")
	}
	return nil
}
