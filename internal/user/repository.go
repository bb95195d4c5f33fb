package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
)

var (
	ErrNotFound           = apperror.NotFound("user")
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)
	ErrEmailExists        = fmt.Errorf("%w: email already exists", apperror.ErrConflict)
)

type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}

type InMemoryRepository struct {
	mu    sync.RWMutex
	users []User
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{users: make([]User, 0, len(seed))}
	repo.users = append(repo.users, seed...)
	return repo
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return User{}, ErrEmailExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users = append(r.users, u)
	return u, nil
}

func (r *InMemoryRepository) SetAdmin(_ context.Context, id string, isAdmin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].IsAdmin = isAdmin
			return nil
		}
	}
	return ErrNotFound
}

// isNotFound is used by the service to tell a lookup miss from a store error.
func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
