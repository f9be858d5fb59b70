// Package identity provides email/password registration and token-based sessions.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pathwise/api/internal/auth"
	"pathwise/api/internal/session"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ID        string
	UserID    string
	ExpiresAt time.Time
}

// UserStore defines the storage interface for accounts
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, user User) error
}

// Service provides email/password authentication
type Service struct {
	users       UserStore
	sessions    session.Store
	tokenSecret []byte
	sessionTTL  time.Duration
	bcryptCost  int
	now         func() time.Time
}

type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func NewService(users UserStore, sessions session.Store, tokenSecret string, sessionTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:       users,
		sessions:    sessions,
		tokenSecret: []byte(tokenSecret),
		sessionTTL:  sessionTTL,
		bcryptCost:  bcrypt.DefaultCost,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate checks the password and opens a new session.
// Concurrent sessions for the same user are allowed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	expiresAt := s.now().Add(s.sessionTTL)
	token, err := auth.IssueToken(s.tokenSecret, auth.Claims{
		UserID:    user.ID,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Save(ctx, sessionID, user.ID, expiresAt); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	return Session{
		Token:     token,
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve answers "who is this token". A token that does not resolve is
// reported with ok=false; err is only set when a backend fails.
func (s *Service) Resolve(ctx context.Context, token string) (User, bool, error) {
	if strings.TrimSpace(token) == "" {
		return User{}, false, nil
	}
	claims, err := auth.ParseToken(s.tokenSecret, token)
	if err != nil {
		return User{}, false, nil
	}
	userID, err := s.sessions.Lookup(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	if userID != claims.UserID {
		return User{}, false, nil
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(s.tokenSecret, token)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.SessionID)
}

// User looks an account up by id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	return s.users.GetUserByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
