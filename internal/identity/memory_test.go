package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemory_SignUpSignIn(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	s, err := m.SignUp(ctx, "Alice@Example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignUp() error: %v", err)
	}
	if s.User.Email != "alice@example.com" || s.User.Username != "alice" {
		t.Errorf("user = %+v", s.User)
	}
	if s.User.ID == "" || s.AccessToken == "" || s.RefreshToken == "" {
		t.Errorf("session missing fields: %+v", s)
	}

	if _, err := m.SignUp(ctx, "alice@example.com", "another1"); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate SignUp err = %v, want ErrUserExists", err)
	}

	s2, err := m.SignIn(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if s2.User.ID != s.User.ID {
		t.Errorf("SignIn user id = %q, want %q", s2.User.ID, s.User.ID)
	}

	if _, err := m.SignIn(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := m.SignIn(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestMemory_ShortPassword(t *testing.T) {
	m := NewMemory(time.Hour)
	if _, err := m.SignUp(context.Background(), "a@b.c", "123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestMemory_TokenExpiry(t *testing.T) {
	m := NewMemory(30 * time.Minute)
	s, _ := m.SignUp(context.Background(), "a@example.com", "secret1")

	exp, ok := TokenExpiry(s.AccessToken)
	if !ok {
		t.Fatal("TokenExpiry() found no exp claim")
	}
	if !exp.Equal(s.ExpiresAt) {
		t.Errorf("exp = %v, want %v", exp, s.ExpiresAt)
	}
	if s.Expired(time.Now()) {
		t.Error("fresh session should not be expired")
	}
	if !s.Expired(s.ExpiresAt) {
		t.Error("session should be expired at ExpiresAt")
	}
}

func TestMemory_Refresh(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()
	s, _ := m.SignUp(ctx, "a@example.com", "secret1")

	s2, err := m.Refresh(ctx, s.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if s2.User.ID != s.User.ID {
		t.Errorf("refreshed user = %q, want %q", s2.User.ID, s.User.ID)
	}

	// Refresh tokens are single use
	if _, err := m.Refresh(ctx, s.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("reused refresh err = %v, want ErrInvalidSession", err)
	}
}

func TestMemory_SignOut(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()
	s, _ := m.SignUp(ctx, "a@example.com", "secret1")

	if err := m.SignOut(ctx, s.AccessToken); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
	if err := m.SignOut(ctx, s.AccessToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("second SignOut err = %v, want ErrInvalidSession", err)
	}
	if _, err := m.Refresh(ctx, s.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Refresh after SignOut err = %v, want ErrInvalidSession", err)
	}
}

func TestMemory_ExpiredToken(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()
	s, _ := m.SignUp(ctx, "a@example.com", "secret1")

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if err := m.UpdatePassword(ctx, s.AccessToken, "newsecret"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("UpdatePassword with expired token err = %v, want ErrInvalidSession", err)
	}
}

func TestMemory_UpdatePassword(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()
	s, _ := m.SignUp(ctx, "a@example.com", "secret1")

	if err := m.UpdatePassword(ctx, s.AccessToken, "secret2"); err != nil {
		t.Fatalf("UpdatePassword() error: %v", err)
	}
	if _, err := m.SignIn(ctx, "a@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := m.SignIn(ctx, "a@example.com", "secret2"); err != nil {
		t.Errorf("new password SignIn error: %v", err)
	}
}

func TestMemory_UpdateEmail(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()
	s, _ := m.SignUp(ctx, "a@example.com", "secret1")
	m.SignUp(ctx, "taken@example.com", "secret1")

	if err := m.UpdateEmail(ctx, s.AccessToken, "taken@example.com"); !errors.Is(err, ErrUserExists) {
		t.Errorf("taken email err = %v, want ErrUserExists", err)
	}
	if err := m.UpdateEmail(ctx, s.AccessToken, "b@example.com"); err != nil {
		t.Fatalf("UpdateEmail() error: %v", err)
	}
	if _, err := m.SignIn(ctx, "a@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old email err = %v, want ErrInvalidCredentials", err)
	}
	got, err := m.SignIn(ctx, "b@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn with new email error: %v", err)
	}
	if got.User.ID != s.User.ID {
		t.Errorf("user id changed: %q -> %q", s.User.ID, got.User.ID)
	}

	// The token issued before the change still works
	if err := m.UpdatePassword(ctx, s.AccessToken, "secret3"); err != nil {
		t.Errorf("UpdatePassword with pre-change token error: %v", err)
	}
}

func TestMemory_ResetPassword(t *testing.T) {
	m := NewMemory(time.Hour)
	if err := m.ResetPassword(context.Background(), "Who@Example.com"); err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if len(m.resets) != 1 || m.resets[0] != "who@example.com" {
		t.Errorf("resets = %v", m.resets)
	}
}

func TestTokenExpiry_Garbage(t *testing.T) {
	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Error("TokenExpiry should fail on garbage")
	}
}
