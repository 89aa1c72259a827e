package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const defaultDialTimeout = 2 * time.Second

// AMQPNotifier publishes messages to a durable RabbitMQ queue. The connection is
// dialed lazily and re-dialed after the broker drops it. A dial never outlives
// dialTimeout or the caller's deadline, whichever comes first.
type AMQPNotifier struct {
	url         string
	queue       string
	log         logrus.FieldLogger
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(url, queue string, log logrus.FieldLogger) *AMQPNotifier {
	return &AMQPNotifier{url: url, queue: queue, log: log, dialTimeout: defaultDialTimeout}
}

func (n *AMQPNotifier) timeout(ctx context.Context) time.Duration {
	timeout := n.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	return timeout
}

func (n *AMQPNotifier) channel(ctx context.Context) (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	if n.conn == nil || n.conn.IsClosed() {
		timeout := n.timeout(ctx)
		if timeout <= 0 {
			return nil, fmt.Errorf("rabbitmq dial skipped: %w", context.DeadlineExceeded)
		}
		conn, err := amqp.DialConfig(n.url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(timeout),
		})
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
		}
		n.conn = conn
		n.log.WithField("queue", n.queue).Info("connected to rabbitmq")
	}

	ch, err := n.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}
	n.ch = ch
	return ch, nil
}

func encode(msg Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal notification failed: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         msg.Event,
		Body:         body,
	}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, msg Message) error {
	pub, err := encode(msg)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel(ctx)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		n.ch = nil
		return fmt.Errorf("rabbitmq publish failed: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch != nil {
		_ = n.ch.Close()
		n.ch = nil
	}
	if n.conn != nil {
		err := n.conn.Close()
		n.conn = nil
		return err
	}
	return nil
}
