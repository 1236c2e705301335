package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/config"
	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	/**********************************************
	 * logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("unable to load configuration", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * mail client
	 **********************************************/
	mailer, err := notify.NewMailer(cfg)
	if err != nil {
		logger.Error("unable to create mail client", slog.String("error", err.Error()))
		return
	}
	defer mailer.Close()

	// fail fast if the SMTP server is unreachable
	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := mailer.Client().DialWithContext(dialCtx); err != nil {
		logger.Error("unable to connect to mail server", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("unable to connect to rabbitmq", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("unable to open channel", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	q, err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue)
	if err != nil {
		logger.Error("unable to declare queue", slog.String("error", err.Error()))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(
		q.Name,
		"",    // consumer tag assigned by the broker
		false, // manual ack
		false, // exclusive
		false, // no-local, unsupported by rabbitmq
		false, // no-wait
		nil,
	)
	if err != nil {
		logger.Error("unable to consume queue", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Warn("delivery channel closed")
					return
				}
				handleDelivery(ctx, logger, mailer, msg)
			}
		}
	}()

	logger.Info("waiting for messages", slog.String("queue", q.Name))
	<-sigChan

	logger.Info("shutting down mail worker")
	cancel()
	wg.Wait()
	logger.Info("mail worker stopped")
}

// handleDelivery drops malformed messages and requeues ones that failed to send.
func handleDelivery(ctx context.Context, logger *slog.Logger, mailer *notify.Mailer, msg amqp.Delivery) {
	logger = logger.With(slog.String("message_id", msg.MessageId))

	var mailMessage domain.MailMessage
	if err := json.Unmarshal(msg.Body, &mailMessage); err != nil {
		logger.Error("unable to decode message", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	out, err := mailer.Build(mailMessage)
	if err != nil {
		logger.Error("unable to build mail", slog.String("type", string(mailMessage.Type)), slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	if err := mailer.Client().DialAndSendWithContext(ctx, out); err != nil {
		logger.Error("unable to send mail", slog.String("type", string(mailMessage.Type)), slog.String("error", err.Error()))
		_ = msg.Nack(false, true)
		return
	}

	logger.Info("mail sent", slog.String("type", string(mailMessage.Type)), slog.Int("recipients", len(mailMessage.To)))
	_ = msg.Ack(false)
}
