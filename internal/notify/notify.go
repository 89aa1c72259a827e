package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Recipients of booking notifications.
const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

// Message is a fire-and-forget notice about a booking.
type Message struct {
	Role      string    `json:"role"`
	Event     string    `json:"event"`
	BookingID string    `json:"booking_id"`
	GuestID   string    `json:"guest_id,omitempty"`
	Text      string    `json:"message"`
	At        time.Time `json:"at"`
}

// Notifier delivers messages. Failures never roll back booking state.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the log; used when no broker is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.log.WithFields(logrus.Fields{
		"role":       msg.Role,
		"event":      msg.Event,
		"booking_id": msg.BookingID,
	}).Info(msg.Text)
	return nil
}

// Safe delivers msg with a short deadline, logging and swallowing any failure.
func Safe(ctx context.Context, n Notifier, log logrus.FieldLogger, msg Message) {
	if n == nil {
		return
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := n.Notify(ctx, msg); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"event":      msg.Event,
			"booking_id": msg.BookingID,
		}).Warn("notification failed")
	}
}
