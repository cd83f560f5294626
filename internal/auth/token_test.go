package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", "habit-api", time.Hour)
	userID := uuid.New()

	token, err := m.Issue(userID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got != userID {
		t.Errorf("expected subject %s, got %s", userID, got)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	m := NewTokenManager("secret", "habit-api", time.Hour)
	other := NewTokenManager("different", "habit-api", time.Hour)

	token, err := m.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Error("token signed with a different secret must not verify")
	}
}

func TestTokenWrongIssuer(t *testing.T) {
	m := NewTokenManager("secret", "habit-api", time.Hour)
	other := NewTokenManager("secret", "someone-else", time.Hour)

	token, err := other.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := m.Verify(token); err == nil {
		t.Error("token from a different issuer must not verify")
	}
}

func TestTokenExpired(t *testing.T) {
	m := &TokenManager{secret: []byte("secret"), issuer: "habit-api", ttl: -time.Minute}

	token, err := m.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := m.Verify(token); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestTokenGarbage(t *testing.T) {
	m := NewTokenManager("secret", "habit-api", time.Hour)
	if _, err := m.Verify("not.a.token"); err == nil {
		t.Error("garbage must not verify")
	}
}
