package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []domain.MailMessage
	err   error
	block chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg domain.MailMessage) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherDeliversAllMessages(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, Options{Workers: 3, QueueSize: 8, EnqueueTimeout: time.Second}, quietLogger())

	for i := 0; i < 20; i++ {
		require.NoError(t, d.Notify(context.Background(), domain.MailMessage{Type: domain.MailIncidentCreated, To: []string{"a@example.com"}}))
	}
	d.Close()

	assert.Equal(t, 20, sender.count())
}

func TestDispatcherReportsFullQueue(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, Options{Workers: 1, QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond}, quietLogger())

	msg := domain.MailMessage{Type: domain.MailIncidentAssigned, To: []string{"a@example.com"}}

	// the worker holds one message, the queue holds one more
	require.NoError(t, d.Notify(context.Background(), msg))
	require.Eventually(t, func() bool { return len(d.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Notify(context.Background(), msg))

	err := d.Notify(context.Background(), msg)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(sender.block)
	d.Close()
	assert.Equal(t, 2, sender.count())
}

func TestDispatcherHonoursContextWhileWaiting(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, Options{Workers: 1, QueueSize: 1, EnqueueTimeout: time.Minute}, quietLogger())

	msg := domain.MailMessage{Type: domain.MailIncidentAssigned, To: []string{"a@example.com"}}
	require.NoError(t, d.Notify(context.Background(), msg))
	require.Eventually(t, func() bool { return len(d.jobs) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Notify(context.Background(), msg))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Notify(ctx, msg), context.DeadlineExceeded)

	close(sender.block)
	d.Close()
}

func TestDispatcherSwallowsSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp unavailable")}
	d := NewDispatcher(sender, Options{Workers: 2, QueueSize: 4}, quietLogger())

	require.NoError(t, d.Notify(context.Background(), domain.MailMessage{Type: domain.MailIncidentCreated}))
	require.NoError(t, d.Notify(context.Background(), domain.MailMessage{Type: domain.MailIncidentCreated}))
	d.Close()

	assert.Equal(t, 2, sender.count())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, Options{}, quietLogger())
	d.Close()
	d.Close()

	assert.ErrorIs(t, d.Notify(context.Background(), domain.MailMessage{}), ErrDispatcherClosed)
}
