package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOTPKey(t *testing.T) {
	assert.Equal(t, "otp_alice_reset_password", otpKey("alice", "reset_password"))
	assert.Equal(t, "otp_attempts_alice_reset_password", attemptsKey("alice", "reset_password"))
}
