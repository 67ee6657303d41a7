package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/queue"
)

// SMSStrategy delivers notifications as text messages.
type SMSStrategy struct {
	log *logrus.Entry
}

// NewSMSStrategy returns an SMSStrategy.
func NewSMSStrategy() *SMSStrategy {
	return &SMSStrategy{log: logrus.WithField("channel", "sms")}
}

// Kind identifies this strategy as the sms channel.
func (s *SMSStrategy) Kind() Kind { return KindSMS }

// Send builds and "sends" the SMS.
func (s *SMSStrategy) Send(ctx context.Context, msg queue.Message) error {
	s.log.WithFields(logrus.Fields{
		"user_id":  msg.Payload.UserID,
		"event_id": msg.Payload.EventID,
		"text":     smsContent(msg),
	}).Info("sms notification sent")
	return nil
}

func smsContent(msg queue.Message) string {
	switch msg.Payload.Outcome {
	case queue.OutcomeBookingCreated:
		return fmt.Sprintf("Booking confirmed. Event: %d", msg.Payload.EventID)
	case queue.OutcomeBookingCancelled:
		return fmt.Sprintf("Booking cancelled. Event: %d", msg.Payload.EventID)
	case queue.OutcomeEventReminder:
		return fmt.Sprintf("Reminder: event %d starts soon", msg.Payload.EventID)
	default:
		return "Notification from the booking system"
	}
}
