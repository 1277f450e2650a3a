package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jellydator/validation"
	"github.com/quill-blog/quill/internal/store"
	"github.com/quill-blog/quill/types"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores input past 72 bytes and newer versions reject it outright.
const maxPasswordBytes = 72

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates registration and login.
type UserService struct {
	repo     UserRepository
	hashCost int
}

// NewUserService constructs a UserService. A hashCost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func NewUserService(repo UserRepository, hashCost int) *UserService {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, hashCost: hashCost}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return types.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Register creates a user with a bcrypt-hashed password. Duplicate usernames
// are detected by the database's unique constraint.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if err := firstInvalid(
		fieldRules{"username", username, []validation.Rule{validation.Required.Error("Username is required.")}},
		fieldRules{"password", password, []validation.Rule{
			validation.Required.Error("Password is required."),
			validation.Length(0, maxPasswordBytes).Error("Password must be at most 72 bytes."),
		}},
	); err != nil {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, &ConflictError{Message: fmt.Sprintf("User %s is already registered.", username)}
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the user whose stored hash matches password.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrIncorrectUsername
		}
		return types.User{}, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrIncorrectPassword
	}
	return user, nil
}
