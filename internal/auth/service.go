// Package auth verifies credentials and manages signed-in sessions.
package auth

import (
	"context"
	"errors"
	"fmt"

	"billsplit/internal/models"
	"billsplit/internal/storage"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCredentialMismatch = errors.New("credential mismatch")
	ErrEmailExists        = errors.New("email already registered")
)

// UserStore is the user persistence the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Service implements sign-up and sign-in.
type Service struct {
	users UserStore
}

// NewService creates a Service backed by users.
func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// SignUp creates a user unless email is already registered. The caller is
// not signed in.
func (s *Service) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, Email: email, Password: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SignIn returns the user registered with email if password matches.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if !CheckPassword(password, user.Password) {
		return nil, ErrCredentialMismatch
	}
	return user, nil
}
