package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeclareQueue declares the durable mail queue shared by the API and the mail worker.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete, must stay false so the queue survives without consumers
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// AMQPSender publishes messages to the mail queue; cmd/mail performs delivery.
type AMQPSender struct {
	mu      sync.Mutex
	ch      *amqp.Channel
	queue   string
	timeout time.Duration
}

// NewAMQPSender publishes with the mandatory flag; messages the broker cannot route are
// returned and logged.
func NewAMQPSender(ch *amqp.Channel, queue string, timeout time.Duration, logger *slog.Logger) *AMQPSender {
	if logger == nil {
		logger = slog.Default()
	}
	go logReturns(ch.NotifyReturn(make(chan amqp.Return, 1)), logger)

	return &AMQPSender{ch: ch, queue: queue, timeout: timeout}
}

// logReturns runs until the channel is closed.
func logReturns(returns <-chan amqp.Return, logger *slog.Logger) {
	for ret := range returns {
		logger.Error("notification returned by broker",
			"message_id", ret.MessageId,
			"type", ret.Type,
			"routing_key", ret.RoutingKey,
			"reply_code", ret.ReplyCode,
			"reply_text", ret.ReplyText,
		)
	}
}

func (s *AMQPSender) Send(ctx context.Context, msg domain.MailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ch.PublishWithContext(
		ctx,
		"",
		s.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Type:         string(msg.Type),
			Body:         body,
		},
	)
}
