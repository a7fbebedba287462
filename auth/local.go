package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dbt "motoroute/db/db"
)

const (
	MinPasswordLength = 6
	ProviderPassword  = "password"
	ProviderGoogle    = "google.com"
)

// Identity is a user as established by a provider, before any session exists.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Provider    string
}

// LocalProvider keeps email/password accounts in the user store.
type LocalProvider struct {
	users dbt.UserDBWrapper
	cost  int
	now   func() time.Time
}

func NewLocalProvider(users dbt.UserDBWrapper) *LocalProvider {
	return &LocalProvider{
		users: users,
		cost:  bcrypt.DefaultCost,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail trims and lowercases email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return newError(CodeInvalidEmail, err)
	}
	if addr.Address != email {
		return newError(CodeInvalidEmail, fmt.Errorf("%q is not a bare address", email))
	}
	return nil
}

// Register creates an account and its profile with default settings.
func (p *LocalProvider) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, newError(CodeWeakPassword, nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, newError(CodeWeakPassword, err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := p.now()
	user := &dbt.UserProfile{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Provider:     ProviderPassword,
		CreatedAt:    now,
		LastLoginAt:  now,
		Settings:     dbt.DefaultUserSettings(),
	}
	if err := p.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, dbt.ErrAlreadyExists) {
			return nil, newError(CodeEmailInUse, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return identityOf(user), nil
}

// Verify checks email and password against the stored hash.
func (p *LocalProvider) Verify(ctx context.Context, email, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, dbt.ErrNotFound) {
			return nil, newError(CodeUserNotFound, err)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.PasswordHash == "" {
		// federated account without a password
		return nil, newError(CodeInvalidCredentials, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, newError(CodeInvalidCredentials, nil)
	}
	return identityOf(user), nil
}

func identityOf(user *dbt.UserProfile) *Identity {
	return &Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Provider:    user.Provider,
	}
}
