// Package credentials verifies login attempts and creates accounts. It owns
// the user-facing error taxonomy: callers branch on the sentinel errors, not
// on store internals.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/roostd-dev/roostd/internal/auth"
	"github.com/roostd-dev/roostd/internal/models"
	"github.com/roostd-dev/roostd/internal/store"
)

var (
	// ErrValidation reports missing or malformed signup input.
	ErrValidation = errors.New("email and password are required")

	// ErrInvalidCredentials reports a failed login. Unknown email and wrong
	// password both map here so the response never reveals which was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateEmail reports a registration conflict.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrStoreUnavailable reports an infrastructure failure talking to the
	// credential store.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Service creates accounts and verifies login attempts against the user
// store. It holds no per-request state and is safe for concurrent use.
type Service struct {
	users    store.UserStore
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewService creates a credential service backed by the given store.
func NewService(users store.UserStore, log zerolog.Logger) *Service {
	return &Service{
		users:    users,
		validate: validator.New(),
		logger:   log,
	}
}

// Register creates a new account and returns the store-assigned user id.
// Exactly one row is created on success; a concurrent registration for the
// same email is resolved by the store's unique constraint.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrValidation
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", ErrValidation
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrValidation
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return "", ErrDuplicateEmail
		}
		s.logger.Error().Err(err).Msg("Failed to create user")
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User registered")
	return user.ID, nil
}

// Login verifies an email/password pair and returns the full user record for
// token issuance.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash comparison so this path costs the same as a
			// wrong password for an existing account.
			auth.BurnVerification(password)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("Failed to find user by email")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
