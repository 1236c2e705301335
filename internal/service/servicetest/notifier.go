package servicetest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/cache"
	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
)

// Notifier records every message it is handed. Err, when set, is returned instead.
type Notifier struct {
	mu       sync.Mutex
	messages []domain.MailMessage
	Err      error
}

func (n *Notifier) Notify(_ context.Context, msg domain.MailMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Err != nil {
		return n.Err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *Notifier) Messages() []domain.MailMessage {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]domain.MailMessage(nil), n.messages...)
}

func (n *Notifier) OfType(typ domain.MailType) []domain.MailMessage {
	var out []domain.MailMessage
	for _, msg := range n.Messages() {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = nil
}

// DecodeData unmarshals a message payload into a value of type T.
func DecodeData[T any](t *testing.T, msg domain.MailMessage) T {
	t.Helper()

	var data T
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("decode %s payload: %v", msg.Type, err)
	}
	return data
}

// OTPStore keeps codes in a map. Expiry is ignored.
type OTPStore struct {
	mu       sync.Mutex
	codes    map[string]string
	failures map[string]int64
}

func NewOTPStore() *OTPStore {
	return &OTPStore{codes: make(map[string]string), failures: make(map[string]int64)}
}

func (s *OTPStore) Save(_ context.Context, username, purpose, otp string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[username+"/"+purpose] = otp
	delete(s.failures, username+"/"+purpose)
	return nil
}

func (s *OTPStore) RecordFailure(_ context.Context, username, purpose string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[username+"/"+purpose]++
	return s.failures[username+"/"+purpose], nil
}

func (s *OTPStore) Get(_ context.Context, username, purpose string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	otp, ok := s.codes[username+"/"+purpose]
	if !ok {
		return "", cache.ErrOTPNotFound
	}
	return otp, nil
}

func (s *OTPStore) Delete(_ context.Context, username, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, username+"/"+purpose)
	delete(s.failures, username+"/"+purpose)
	return nil
}
