package auth

import (
	"testing"
	"time"
)

func TestUserValidate(t *testing.T) {
	base := User{
		ID:     "u-1",
		Email:  "analyst@example.com",
		Role:   RoleAnalyst,
		Status: StatusActive,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*User)
	}{
		{"missing email", func(u *User) { u.Email = "" }},
		{"malformed email", func(u *User) { u.Email = "not-an-email" }},
		{"unknown role", func(u *User) { u.Role = "superuser" }},
		{"missing status", func(u *User) { u.Status = "" }},
	}
	for _, tc := range cases {
		u := base
		tc.mutate(&u)
		if err := u.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestUserIsActive(t *testing.T) {
	u := User{Status: StatusActive}
	if !u.IsActive() {
		t.Error("active user must be able to log in")
	}
	for _, st := range []Status{StatusDisabled, StatusLocked} {
		u.Status = st
		if u.IsActive() {
			t.Errorf("status %s must not be able to log in", st)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Admin@Example.COM "); got != "admin@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Hour)}
	if !s.Active(now) {
		t.Error("unexpired session must be active")
	}

	s.ExpiresAt = now.Add(-time.Hour)
	if s.Active(now) {
		t.Error("expired session must be inactive")
	}

	revoked := now.Add(-time.Minute)
	s.ExpiresAt = now.Add(time.Hour)
	s.RevokedAt = &revoked
	if s.Active(now) {
		t.Error("revoked session must be inactive")
	}
	if !s.Revoked() {
		t.Error("Revoked must report true after revocation")
	}
}

func TestSessionRemaining(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(30 * time.Minute)}
	if got := s.Remaining(now); got != 30*time.Minute {
		t.Errorf("Remaining = %v", got)
	}
	s.ExpiresAt = now.Add(-time.Minute)
	if got := s.Remaining(now); got != 0 {
		t.Errorf("expired session Remaining = %v, want 0", got)
	}
}

func TestTokenPairAccessValid(t *testing.T) {
	now := time.Now()
	p := TokenPair{AccessToken: "tok", AccessExpiry: now.Add(time.Minute)}
	if !p.AccessValid(now) {
		t.Error("unexpired access token must be valid")
	}
	p.AccessExpiry = now.Add(-time.Minute)
	if p.AccessValid(now) {
		t.Error("expired access token must be invalid")
	}
	if (TokenPair{}).AccessValid(now) {
		t.Error("empty token must be invalid")
	}
}
