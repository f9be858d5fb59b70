package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pathwise/api/internal/session"
)

func newTestService() (*Service, *session.MemoryStore) {
	sessions := session.NewMemoryStore()
	svc := NewService(NewMemoryUserStore(), sessions, "test-secret", time.Hour, WithBcryptCost(bcrypt.MinCost))
	return svc, sessions
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	t.Run("successful register", func(t *testing.T) {
		user, err := svc.Register(ctx, "  Test@Example.com ", "password123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID == "" {
			t.Error("expected ID to be set")
		}
		if user.Email != "test@example.com" {
			t.Errorf("expected normalized email, got %q", user.Email)
		}
		if user.PasswordHash == "password123" || user.PasswordHash == "" {
			t.Error("expected password to be hashed")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx, "test@example.com", "password456")
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		for _, email := range []string{"", "plain", "a@b", "with space@example.com"} {
			_, err := svc.Register(ctx, email, "password123")
			if !errors.Is(err, ErrInvalidEmail) {
				t.Errorf("Register(%q) expected ErrInvalidEmail, got %v", email, err)
			}
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Register(ctx, "short@example.com", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})
}

func TestRegisterConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Register(ctx, "race@example.com", "password123"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one registration to succeed, got %d", succeeded)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	if _, err := svc.Register(ctx, "test@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	t.Run("successful login", func(t *testing.T) {
		sess, err := svc.Authenticate(ctx, "test@example.com", "password123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Token == "" || sess.UserID == "" {
			t.Fatalf("expected token and user id, got %+v", sess)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "test@example.com", "wrongpassword")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody@example.com", "password123")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("multiple sessions", func(t *testing.T) {
		first, err := svc.Authenticate(ctx, "test@example.com", "password123")
		if err != nil {
			t.Fatalf("first login: %v", err)
		}
		second, err := svc.Authenticate(ctx, "test@example.com", "password123")
		if err != nil {
			t.Fatalf("second login: %v", err)
		}
		if first.Token == second.Token {
			t.Fatal("expected distinct tokens per login")
		}
		for _, token := range []string{first.Token, second.Token} {
			if _, ok, err := svc.Resolve(ctx, token); err != nil || !ok {
				t.Fatalf("expected token to resolve, ok=%v err=%v", ok, err)
			}
		}
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	svc, sessions := newTestService()
	registered, err := svc.Register(ctx, "test@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	sess, err := svc.Authenticate(ctx, "test@example.com", "password123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		user, ok, err := svc.Resolve(ctx, sess.Token)
		if err != nil || !ok {
			t.Fatalf("expected resolve to succeed, ok=%v err=%v", ok, err)
		}
		if user.ID != registered.ID {
			t.Errorf("expected user %s, got %s", registered.ID, user.ID)
		}
	})

	t.Run("garbage and empty tokens", func(t *testing.T) {
		for _, token := range []string{"", "   ", "nope"} {
			if _, ok, err := svc.Resolve(ctx, token); ok || err != nil {
				t.Errorf("Resolve(%q) = ok=%v err=%v, want not found", token, ok, err)
			}
		}
	})

	t.Run("swept session", func(t *testing.T) {
		other, err := svc.Authenticate(ctx, "test@example.com", "password123")
		if err != nil {
			t.Fatalf("authenticate: %v", err)
		}
		sessions.Sweep(other.ExpiresAt)
		if _, ok, _ := svc.Resolve(ctx, other.Token); ok {
			t.Fatal("expected swept session not to resolve")
		}
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	if _, err := svc.Register(ctx, "test@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	sess, err := svc.Authenticate(ctx, "test@example.com", "password123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if err := svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := svc.Resolve(ctx, sess.Token); ok {
		t.Fatal("expected revoked token not to resolve")
	}
	if err := svc.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout with garbage token should be a no-op, got %v", err)
	}
}
