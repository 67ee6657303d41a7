package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/queue"
)

// PushStrategy delivers notifications as mobile push messages.  Like
// the other strategies, delivery is simulated with a log line.
type PushStrategy struct {
	log *logrus.Entry
}

// NewPushStrategy returns a PushStrategy.
func NewPushStrategy() *PushStrategy {
	return &PushStrategy{log: logrus.WithField("channel", "push")}
}

// Kind identifies this strategy as the push channel.
func (s *PushStrategy) Kind() Kind { return KindPush }

// Send builds and "sends" the push notification.
func (s *PushStrategy) Send(ctx context.Context, msg queue.Message) error {
	title, body := pushContent(msg)
	s.log.WithFields(logrus.Fields{
		"user_id":  msg.Payload.UserID,
		"event_id": msg.Payload.EventID,
		"title":    title,
	}).Info("push notification sent")
	s.log.WithField("body", body).Debug("push content")
	return nil
}

func pushContent(msg queue.Message) (title, body string) {
	switch msg.Payload.Outcome {
	case queue.OutcomeBookingCreated:
		return "Booking confirmed", fmt.Sprintf("Your seat for event %d is booked", msg.Payload.EventID)
	case queue.OutcomeBookingCancelled:
		return "Booking cancelled", fmt.Sprintf("Your booking for event %d was cancelled", msg.Payload.EventID)
	case queue.OutcomeEventReminder:
		return "Event reminder", fmt.Sprintf("Event %d starts soon", msg.Payload.EventID)
	default:
		return "Notification", "Notification from the booking system"
	}
}
