package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/queue"
)

// EmailStrategy delivers notifications over email.  The actual mail
// submission is simulated with a structured log line; swapping in an
// SMTP or provider client only touches Send.
type EmailStrategy struct {
	log *logrus.Entry
}

// NewEmailStrategy returns an EmailStrategy.
func NewEmailStrategy() *EmailStrategy {
	return &EmailStrategy{log: logrus.WithField("channel", "email")}
}

// Kind identifies this strategy as the email channel.
func (s *EmailStrategy) Kind() Kind { return KindEmail }

// Send builds and "sends" the email for the message's outcome.
func (s *EmailStrategy) Send(ctx context.Context, msg queue.Message) error {
	subject, body := emailContent(msg)
	s.log.WithFields(logrus.Fields{
		"user_id":  msg.Payload.UserID,
		"event_id": msg.Payload.EventID,
		"subject":  subject,
	}).Info("email notification sent")
	s.log.WithField("body", body).Debug("email content")
	return nil
}

func emailContent(msg queue.Message) (subject, body string) {
	switch msg.Payload.Outcome {
	case queue.OutcomeBookingCreated:
		return "Booking confirmed",
			fmt.Sprintf("Hello! Your booking for event %d is confirmed.", msg.Payload.EventID)
	case queue.OutcomeBookingCancelled:
		return "Booking cancelled",
			fmt.Sprintf("Hello! Your booking for event %d has been cancelled.", msg.Payload.EventID)
	case queue.OutcomeEventReminder:
		return "Event reminder",
			fmt.Sprintf("Reminder: event %d starts soon.", msg.Payload.EventID)
	default:
		return "Notification", "Notification from the booking system."
	}
}
