package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/marup-app/marup-server/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewPasswordAuthenticator(store)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t)

	if _, err := a.Register(ctx, "a@example.com", "Asha", "", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("Expected ErrWeakPassword, got %v", err)
	}

	user, err := a.Register(ctx, "a@example.com", "Asha", "+91 9000000000", "correct horse")
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if user.ID == "" || user.UserCode == "" {
		t.Error("Expected user ID and code to be assigned")
	}
	if user.PasswordHash == "correct horse" {
		t.Error("Password must not be stored in plaintext")
	}

	if _, err := a.Register(ctx, "a@example.com", "Asha Again", "", "correct horse"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got %v", err)
	}

	got, err := a.Authenticate(ctx, "a@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Expected user %s, got %s", user.ID, got.ID)
	}

	if _, err := a.Authenticate(ctx, "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t)
	user, err := a.Register(ctx, "b@example.com", "Bina", "", "long enough")
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	m := NewJWTManager("test-secret-key-for-tests-only!!", time.Hour)
	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email {
		t.Errorf("Claims do not match user: %+v", claims)
	}

	if _, err := m.Validate(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for tampered token, got %v", err)
	}

	expired := NewJWTManager("test-secret-key-for-tests-only!!", -time.Minute)
	stale, err := expired.Generate(user)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := m.Validate(stale); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}
