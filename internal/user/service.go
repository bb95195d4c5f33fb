package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/wichananm65/coffee-shop-backend/internal/apperror"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return User{}, apperror.Validation("", "email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, apperror.Validation("email", "invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return User{}, apperror.Validation("password", "password must be at least 6 characters")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailExists
	} else if !isNotFound(err) {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, User{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if isNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// IsAdmin reads the flag from the store on every call so that revoking
// admin rights takes effect without waiting for tokens to expire.
func (s *Service) IsAdmin(ctx context.Context, id string) (bool, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// SetAdmin grants or revokes admin rights for the account with email.
func (s *Service) SetAdmin(ctx context.Context, email string, isAdmin bool) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return User{}, err
	}
	if err := s.repo.SetAdmin(ctx, u.ID, isAdmin); err != nil {
		return User{}, err
	}
	u.IsAdmin = isAdmin
	return u, nil
}
