package auth

import (
	"testing"
	"time"
)

func TestNewToken_ValidateToken_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := NewToken(secret, 42, time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	id, err := claims.ActorID()
	if err != nil {
		t.Fatalf("ActorID: %v", err)
	}
	if id != 42 {
		t.Errorf("ActorID = %d, want 42", id)
	}
}

func TestValidateToken_WrongSecretRejected(t *testing.T) {
	token, err := NewToken([]byte("secret-a"), 1, time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if _, err := ValidateToken(token, []byte("secret-b")); err == nil {
		t.Error("expected error validating with wrong secret")
	}
}

func TestValidateToken_ExpiredRejected(t *testing.T) {
	token, err := NewToken([]byte("secret"), 1, -time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if _, err := ValidateToken(token, []byte("secret")); err == nil {
		t.Error("expected error validating expired token")
	}
}
