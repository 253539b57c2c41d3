// Package auth provides user account management and credential checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	ierrors "github.com/tiendatech/inventory/internal/errors"
	"github.com/tiendatech/inventory/internal/store"
)

// Bootstrap account created when the users collection is empty. The original
// deployment shipped the same fixed pair; the password is stored hashed.
const (
	bootstrapUsername = "admin"
	bootstrapPassword = "admin"
)

// UserService defines the user management operations.
type UserService interface {
	// Bootstrap inserts the default account if the users collection is
	// empty. Called once at process start.
	Bootstrap(ctx context.Context) error

	// Register creates a new account. createdBy records the authenticated
	// caller. Returns ErrInvalidInput for empty fields and ErrUserExists
	// for a taken username.
	Register(ctx context.Context, username, password string, createdBy *string) (*UserDto, error)

	// Authenticate checks the credentials. A mismatch or unknown username
	// yields (nil, nil) - an absent result, not an error.
	Authenticate(ctx context.Context, username, password string) (*UserDto, error)
}

// Service implements UserService on top of the user store gateway.
// Passwords are stored as bcrypt hashes and compared with bcrypt's
// constant-time comparison, never as plaintext.
type Service struct {
	users  store.UserStore
	logger *slog.Logger
}

// NewService creates a new auth service with the provided user store.
func NewService(users store.UserStore, logger *slog.Logger) *Service {
	return &Service{users: users, logger: logger.With("component", "auth")}
}

// UserDto represents the data transfer object for a user account. The
// password hash never leaves the service.
type UserDto struct {
	Username  string  `json:"username"`
	CreatedBy *string `json:"created_by"`
}

// Bootstrap materializes the default account on an empty users collection.
func (s *Service) Bootstrap(ctx context.Context) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(bootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}
	err = s.users.Insert(ctx, store.User{
		Username:     bootstrapUsername,
		PasswordHash: string(hash),
	})
	if err != nil {
		// Another instance may have won the race on the unique index.
		if errors.Is(err, ierrors.ErrUserExists) {
			return nil
		}
		return fmt.Errorf("failed to insert bootstrap user: %w", err)
	}
	s.logger.InfoContext(ctx, "Default account created", "username", bootstrapUsername)
	return nil
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, username, password string, createdBy *string) (*UserDto, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", ierrors.ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", ierrors.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := store.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedBy:    createdBy,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, ierrors.ErrUserExists) {
			return nil, fmt.Errorf("%w: username %q", ierrors.ErrUserExists, username)
		}
		return nil, fmt.Errorf("failed to insert user %q: %w", username, err)
	}

	return toDto(&user), nil
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*UserDto, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ierrors.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user %q: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return toDto(user), nil
}

// toDto converts a store.User to a UserDto.
func toDto(u *store.User) *UserDto {
	return &UserDto{
		Username:  u.Username,
		CreatedBy: u.CreatedBy,
	}
}
