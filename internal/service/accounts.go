package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/ecnc-ops/incident-tracker/backend/internal/cache"
	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const otpPurposeResetPassword = "reset_password"

// a code is discarded after this many wrong guesses
const maxOTPAttempts = 5

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a member account. Roles are granted by an admin out of band.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	switch {
	case username == "":
		return nil, domain.Errorf(domain.ErrInvalidArgument, "missing required field: username")
	case email == "":
		return nil, domain.Errorf(domain.ErrInvalidArgument, "missing required field: email")
	case in.Password == "":
		return nil, domain.Errorf(domain.ErrInvalidArgument, "missing required field: password")
	}

	user := &domain.User{
		Username: username,
		Email:    email,
		Role:     domain.RoleMember,
	}
	if err := s.createUser(ctx, user, in.Password); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) createUser(ctx context.Context, user *domain.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)

	return s.store.CreateUser(ctx, user)
}

// EnsureUser creates the user unless the username is already taken. It reports whether a new
// account was created.
func (s *Service) EnsureUser(ctx context.Context, user *domain.User, password string) (bool, error) {
	if !user.Role.Valid() {
		return false, domain.Errorf(domain.ErrInvalidArgument, "invalid role %q", user.Role)
	}

	err := s.createUser(ctx, user, password)
	if errors.Is(err, domain.ErrDuplicateUsername) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrUnauthenticated, "invalid username or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Errorf(domain.ErrUnauthenticated, "invalid username or password")
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Errorf(domain.ErrNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.store.GetAllUsers(ctx)
}

// RequestPasswordReset mails a one-time code to the account owner. Unknown usernames succeed
// silently so the endpoint cannot be used to discover which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, username string) error {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	otp, err := utils.GenerateRandomOTP()
	if err != nil {
		return err
	}

	if err := s.otps.Save(ctx, user.Username, otpPurposeResetPassword, otp, s.opts.OTPExpiration); err != nil {
		return err
	}

	s.send(ctx, domain.MailResetPassword, []string{user.Email}, domain.ResetPasswordMailData{
		Username:   user.Username,
		OTP:        otp,
		Expiration: int(s.opts.OTPExpiration.Minutes()),
	})

	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, username, otp, password string) error {
	if password == "" {
		return domain.Errorf(domain.ErrInvalidArgument, "missing required field: password")
	}

	expected, err := s.otps.Get(ctx, username, otpPurposeResetPassword)
	if err != nil {
		if errors.Is(err, cache.ErrOTPNotFound) {
			return domain.Errorf(domain.ErrInvalidArgument, "invalid or expired verification code")
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(otp)) != 1 {
		s.otpFailed(ctx, username, otpPurposeResetPassword)
		return domain.Errorf(domain.ErrInvalidArgument, "invalid or expired verification code")
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrInvalidArgument, "invalid or expired verification code")
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}

	if err := s.otps.Delete(ctx, username, otpPurposeResetPassword); err != nil {
		s.logger.Warn("failed to delete used otp", "username", username, "error", err)
	}

	return nil
}

func (s *Service) otpFailed(ctx context.Context, username, purpose string) {
	failures, err := s.otps.RecordFailure(ctx, username, purpose, s.opts.OTPExpiration)
	if err != nil {
		s.logger.Warn("failed to record otp failure", "username", username, "error", err)
		return
	}
	if failures < maxOTPAttempts {
		return
	}

	s.logger.Warn("otp discarded after too many failures", "username", username, "purpose", purpose)
	if err := s.otps.Delete(ctx, username, purpose); err != nil {
		s.logger.Warn("failed to delete otp", "username", username, "error", err)
	}
}
