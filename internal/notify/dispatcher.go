package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

// Sender delivers one message. Implementations: AMQPSender, Mailer.
type Sender interface {
	Send(ctx context.Context, msg domain.MailMessage) error
}

type Options struct {
	Workers        int
	QueueSize      int
	EnqueueTimeout time.Duration
	SendTimeout    time.Duration
}

// Dispatcher is a bounded queue drained by a fixed pool of workers.
type Dispatcher struct {
	sender Sender
	opts   Options
	logger *slog.Logger

	jobs chan domain.MailMessage
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sender: sender,
		opts:   opts,
		logger: logger,
		jobs:   make(chan domain.MailMessage, opts.QueueSize),
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.work(i)
	}

	return d
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()

	for msg := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		err := d.sender.Send(ctx, msg)
		cancel()

		if err != nil {
			d.logger.Error("failed to send notification", "worker", id, "type", msg.Type, "recipients", len(msg.To), "error", err)
			continue
		}
		d.logger.Info("notification sent", "worker", id, "type", msg.Type, "recipients", len(msg.To))
	}
}

// Notify enqueues msg, waiting at most EnqueueTimeout for room in the queue.
func (d *Dispatcher) Notify(ctx context.Context, msg domain.MailMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- msg:
		return nil
	default:
	}

	if d.opts.EnqueueTimeout <= 0 {
		return ErrQueueFull
	}

	timer := time.NewTimer(d.opts.EnqueueTimeout)
	defer timer.Stop()

	select {
	case d.jobs <- msg:
		return nil
	case <-timer.C:
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits until the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
}
