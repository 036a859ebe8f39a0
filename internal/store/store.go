package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/roostd-dev/roostd/internal/models"
)

var (
	// ErrNotFound reports that no user matches the lookup key.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateEmail reports a uniqueness violation on create. Concurrent
	// registrations for one email race on the database constraint; the loser
	// gets this error.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserStore is the credential store abstraction. The access gate and the
// credential service both sit behind it so an implementation may add an
// explicit caching policy without either caller changing.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id string) (*models.User, error)

	// BumpTokenVersion increments the user's revocation counter, killing
	// every session token issued before the bump.
	BumpTokenVersion(ctx context.Context, id string) error
}

// GormStore implements UserStore on a gorm database handle.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *GormStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (s *GormStore) ByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &user, nil
}

func (s *GormStore) BumpTokenVersion(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("token_version", gorm.Expr("token_version + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to bump token version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateError detects a uniqueness violation across drivers. The sqlite
// driver does not always translate to gorm.ErrDuplicatedKey, so the message
// check stays as a fallback.
func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key")
}
