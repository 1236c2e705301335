package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrOTPNotFound = errors.New("otp not found")

// OTPStore keeps one-time passwords in redis under otp_<username>_<purpose> and counts failed
// checks under otp_attempts_<username>_<purpose>.
type OTPStore struct {
	client  *redis.Client
	timeout time.Duration
}

func NewOTPStore(client *redis.Client, timeout time.Duration) *OTPStore {
	return &OTPStore{client: client, timeout: timeout}
}

func otpKey(username, purpose string) string {
	return fmt.Sprintf("otp_%s_%s", username, purpose)
}

func attemptsKey(username, purpose string) string {
	return fmt.Sprintf("otp_attempts_%s_%s", username, purpose)
}

// Save stores a fresh code and resets its failure count.
func (s *OTPStore) Save(ctx context.Context, username, purpose, otp string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, otpKey(username, purpose), otp, ttl)
	pipe.Del(ctx, attemptsKey(username, purpose))
	_, err := pipe.Exec(ctx)
	return err
}

// RecordFailure counts a wrong code and returns the number of failures so far.
func (s *OTPStore) RecordFailure(ctx context.Context, username, purpose string, ttl time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptsKey(username, purpose))
	pipe.Expire(ctx, attemptsKey(username, purpose), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *OTPStore) Get(ctx context.Context, username, purpose string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	otp, err := s.client.Get(ctx, otpKey(username, purpose)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrOTPNotFound
	}
	return otp, err
}

func (s *OTPStore) Delete(ctx context.Context, username, purpose string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.client.Del(ctx, otpKey(username, purpose), attemptsKey(username, purpose)).Err()
}
