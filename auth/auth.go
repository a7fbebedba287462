// Package auth wraps the identity providers behind signed session tokens and
// keeps user profiles in step with sign-ins.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	dbt "motoroute/db/db"
	"motoroute/verify"
)

type EventKind int

const (
	SignedIn EventKind = iota
	SignedOut
)

func (k EventKind) String() string {
	if k == SignedIn {
		return "signed_in"
	}
	return "signed_out"
}

// SessionEvent is delivered to observers after every sign-in and sign-out.
type SessionEvent struct {
	Kind      EventKind
	Principal *Principal
	Profile   *dbt.UserProfile // nil on sign-out
}

type SessionObserver func(SessionEvent)

type SignUpInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	DisplayName     string `json:"displayName"`
}

// SignInResult is a freshly issued session.
type SignInResult struct {
	Token     string
	Principal *Principal
	Profile   *dbt.UserProfile
}

type Option func(*Service)

func WithGoogleVerifier(v FederatedVerifier) Option {
	return func(s *Service) { s.google = v }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.tokens.now = now
		s.local.now = now
	}
}

type Service struct {
	users   dbt.UserDBWrapper
	local   *LocalProvider
	google  FederatedVerifier
	tokens  *tokenIssuer
	revoked *revocationList
	now     func() time.Time

	mu        sync.RWMutex
	observers []SessionObserver
}

func NewService(users dbt.UserDBWrapper, secret string, ttl time.Duration, opts ...Option) *Service {
	now := func() time.Time { return time.Now().UTC() }
	s := &Service{
		users:   users,
		local:   NewLocalProvider(users),
		tokens:  &tokenIssuer{secret: []byte(secret), ttl: ttl, now: now},
		revoked: newRevocationList(),
		now:     now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnSessionChange registers fn. Observers run synchronously on the signing goroutine.
func (s *Service) OnSessionChange(fn SessionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Service) notify(ev SessionEvent) {
	s.mu.RLock()
	observers := make([]SessionObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(ev)
	}
}

func validateSignUp(in SignUpInput) error {
	if strings.TrimSpace(in.DisplayName) == "" || strings.TrimSpace(in.Email) == "" ||
		in.Password == "" || in.ConfirmPassword == "" {
		return &verify.Error{Message: "Please fill in all fields"}
	}
	if in.Password != in.ConfirmPassword {
		return verify.Errorf("confirmPassword", "Passwords do not match")
	}
	return verify.MinLength("password", in.Password, MinPasswordLength)
}

// SignUp registers an email/password account and signs it in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*SignInResult, error) {
	if err := validateSignUp(in); err != nil {
		return nil, err
	}
	identity, err := s.local.Register(ctx, in.Email, in.Password, in.DisplayName)
	if err != nil {
		log.Printf("Error signing up %s: %v", in.Email, err)
		return nil, err
	}
	return s.establish(ctx, identity)
}

// SignIn checks email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &verify.Error{Message: "Please fill in all fields"}
	}
	identity, err := s.local.Verify(ctx, email, password)
	if err != nil {
		log.Printf("Error signing in %s: %v", email, err)
		return nil, err
	}
	return s.establish(ctx, identity)
}

// SignInWithGoogle exchanges a Google ID token for a session.
func (s *Service) SignInWithGoogle(ctx context.Context, idToken string) (*SignInResult, error) {
	if s.google == nil {
		return nil, errors.New("google sign-in is not configured")
	}
	if idToken == "" {
		return nil, verify.Errorf("idToken", "is required")
	}
	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		log.Printf("Error signing in with Google: %v", err)
		return nil, err
	}
	return s.establish(ctx, identity)
}

// establish creates the profile on first sign-in, otherwise refreshes last-login only.
func (s *Service) establish(ctx context.Context, identity *Identity) (*SignInResult, error) {
	profile, err := s.ensureProfile(ctx, identity)
	if err != nil {
		return nil, err
	}
	token, principal, err := s.tokens.issue(profile.ID, profile.Email, profile.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	log.Printf("User %s signed in via %s", profile.ID, identity.Provider)
	s.notify(SessionEvent{Kind: SignedIn, Principal: principal, Profile: profile})
	return &SignInResult{Token: token, Principal: principal, Profile: profile}, nil
}

func (s *Service) ensureProfile(ctx context.Context, identity *Identity) (*dbt.UserProfile, error) {
	now := s.now()
	profile, err := s.users.GetUser(ctx, identity.UserID)
	switch {
	case err == nil:
		if err := s.users.UpdateUserLastLogin(ctx, profile.ID, now); err != nil {
			return nil, fmt.Errorf("failed to update last login: %w", err)
		}
		profile.LastLoginAt = now
		return profile, nil
	case errors.Is(err, dbt.ErrNotFound):
		profile = &dbt.UserProfile{
			ID:          identity.UserID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
			Provider:    identity.Provider,
			CreatedAt:   now,
			LastLoginAt: now,
			Settings:    dbt.DefaultUserSettings(),
		}
		if err := s.users.CreateUser(ctx, profile); err != nil {
			if errors.Is(err, dbt.ErrAlreadyExists) {
				return nil, newError(CodeEmailInUse, err)
			}
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		return profile, nil
	default:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
}

// Authenticate validates a session token that has not been signed out.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	p, err := s.tokens.parse(token)
	if err != nil {
		return nil, newError(CodeInvalidSession, err)
	}
	if s.revoked.isRevoked(p.TokenID) {
		return nil, newError(CodeInvalidSession, errors.New("session signed out"))
	}
	return p, nil
}

// SignOut revokes the token until it expires.
func (s *Service) SignOut(ctx context.Context, token string) error {
	p, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	s.revoked.revoke(p.TokenID, p.ExpiresAt, s.now())
	log.Printf("User %s signed out", p.UserID)
	s.notify(SessionEvent{Kind: SignedOut, Principal: p})
	return nil
}

// Profile returns the stored profile of userID.
func (s *Service) Profile(ctx context.Context, userID string) (*dbt.UserProfile, error) {
	profile, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}
