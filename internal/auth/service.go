package auth

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bachat/bachat/internal/identity"
	"github.com/bachat/bachat/internal/shared"
)

// Accounts is the slice of the identity service the auth flow consumes.
type Accounts interface {
	GetUser(ctx context.Context, id uuid.UUID) (identity.User, error)
	GetUserByUsername(ctx context.Context, username string) (identity.User, error)
	CreateUser(ctx context.Context, in identity.CreateUserInput) (identity.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	UsernameAvailable(ctx context.Context, username string) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	accounts Accounts
	tokens   *TokenIssuer
}

// NewService constructs a new Service.
func NewService(accounts Accounts, tokens *TokenIssuer) *Service {
	return &Service{accounts: accounts, tokens: tokens}
}

// Authenticate validates username/password credentials. Missing accounts,
// inactive accounts and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (identity.User, error) {
	user, err := s.accounts.GetUserByUsername(ctx, username)
	if err != nil {
		return identity.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return identity.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return identity.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register opens an account and returns it.
func (s *Service) Register(ctx context.Context, in identity.CreateUserInput) (identity.User, error) {
	return s.accounts.CreateUser(ctx, in)
}

// ChangePassword rotates a credential after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	return s.accounts.SetPassword(ctx, userID, next)
}

// UsernameAvailable reports whether a username is free to register.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	return s.accounts.UsernameAvailable(ctx, username)
}
