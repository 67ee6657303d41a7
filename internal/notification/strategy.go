// Package notification fans booking-outcome messages out to delivery
// channels.  Channels are strategies behind a small interface; which
// channels apply to a message is a pure function of its outcome.
package notification

import (
	"context"

	"github.com/iliyamo/event-booking/internal/queue"
)

// Kind names a delivery channel.
type Kind string

const (
	KindEmail Kind = "email"
	KindPush  Kind = "push"
	KindSMS   Kind = "sms"
)

// Strategy delivers a notification over one channel.  Implementations
// must be safe for concurrent use: the dispatcher invokes all selected
// strategies in parallel.
type Strategy interface {
	Send(ctx context.Context, msg queue.Message) error
	Kind() Kind
}

// ChannelsFor maps a booking outcome to the channels that should carry
// it.  Unrecognized outcomes fall back to email only.
func ChannelsFor(outcome string) []Kind {
	switch outcome {
	case queue.OutcomeBookingCreated:
		return []Kind{KindEmail, KindPush}
	case queue.OutcomeBookingCancelled:
		return []Kind{KindEmail, KindSMS}
	case queue.OutcomeEventReminder:
		return []Kind{KindPush, KindEmail}
	default:
		return []Kind{KindEmail}
	}
}
