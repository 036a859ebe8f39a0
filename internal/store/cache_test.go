package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roostd-dev/roostd/internal/models"
)

// countingStore records how many calls reach the backing store.
type countingStore struct {
	users   map[string]models.User
	byIDs   int
	failAll bool
}

func newCountingStore(users ...models.User) *countingStore {
	s := &countingStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *countingStore) Create(ctx context.Context, user *models.User) error {
	s.users[user.ID] = *user
	return nil
}

func (s *countingStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *countingStore) ByID(ctx context.Context, id string) (*models.User, error) {
	s.byIDs++
	if s.failAll {
		return nil, errors.New("store down")
	}
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := u
	return &copied, nil
}

func (s *countingStore) BumpTokenVersion(ctx context.Context, id string) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.TokenVersion++
	s.users[id] = u
	return nil
}

func alice() models.User {
	return models.User{BaseModel: models.BaseModel{ID: "id-alice"}, Email: "a@x.com"}
}

func TestCachedStore_ServesFromCacheWithinTTL(t *testing.T) {
	backing := newCountingStore(alice())
	cache := NewCachedStore(backing, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user, err := cache.ByID(ctx, "id-alice")
		if err != nil {
			t.Fatalf("ByID() error = %v", err)
		}
		if user.Email != "a@x.com" {
			t.Fatalf("ByID() email = %q", user.Email)
		}
	}

	if backing.byIDs != 1 {
		t.Errorf("backing ByID calls = %d, want 1", backing.byIDs)
	}
}

func TestCachedStore_ExpiresAfterTTL(t *testing.T) {
	backing := newCountingStore(alice())
	cache := NewCachedStore(backing, time.Minute)
	ctx := context.Background()

	now := time.Now()
	cache.now = func() time.Time { return now }

	if _, err := cache.ByID(ctx, "id-alice"); err != nil {
		t.Fatalf("ByID() error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.ByID(ctx, "id-alice"); err != nil {
		t.Fatalf("ByID() error = %v", err)
	}

	if backing.byIDs != 2 {
		t.Errorf("backing ByID calls = %d, want 2 after expiry", backing.byIDs)
	}
}

func TestCachedStore_DoesNotCacheMisses(t *testing.T) {
	backing := newCountingStore()
	cache := NewCachedStore(backing, time.Minute)
	ctx := context.Background()

	if _, err := cache.ByID(ctx, "id-alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ByID() error = %v, want ErrNotFound", err)
	}

	// User appears (registration); the gate must see them immediately
	if err := backing.Create(ctx, &models.User{BaseModel: models.BaseModel{ID: "id-alice"}, Email: "a@x.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := cache.ByID(ctx, "id-alice"); err != nil {
		t.Errorf("ByID() after create error = %v, want nil", err)
	}
}

func TestCachedStore_InvalidateForcesRefetch(t *testing.T) {
	backing := newCountingStore(alice())
	cache := NewCachedStore(backing, time.Hour)
	ctx := context.Background()

	if _, err := cache.ByID(ctx, "id-alice"); err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	cache.Invalidate("id-alice")
	if _, err := cache.ByID(ctx, "id-alice"); err != nil {
		t.Fatalf("ByID() error = %v", err)
	}

	if backing.byIDs != 2 {
		t.Errorf("backing ByID calls = %d, want 2 after Invalidate", backing.byIDs)
	}
}

func TestCachedStore_BumpTokenVersionInvalidates(t *testing.T) {
	backing := newCountingStore(alice())
	cache := NewCachedStore(backing, time.Hour)
	ctx := context.Background()

	if _, err := cache.ByID(ctx, "id-alice"); err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if err := cache.BumpTokenVersion(ctx, "id-alice"); err != nil {
		t.Fatalf("BumpTokenVersion() error = %v", err)
	}

	user, err := cache.ByID(ctx, "id-alice")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if user.TokenVersion != 1 {
		t.Errorf("TokenVersion = %d, want 1 (stale cache entry served)", user.TokenVersion)
	}
}
