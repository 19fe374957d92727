package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewJWTIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	token, err := issuer.Issue("u-42")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if userID != "u-42" {
		t.Fatalf("expected u-42, got %q", userID)
	}
}

func TestJWTIssuer_Expired(t *testing.T) {
	issuer, _ := NewJWTIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.Issue("u-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(token); err != domain.ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWTIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer, _ := NewJWTIssuer("secret", time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims{UserID: "u-1"})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.Parse(signed); err != domain.ErrTokenInvalid {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewJWTIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewJWTIssuer("", 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
	issuer, err := NewJWTIssuer("s", 0)
	if err != nil || issuer.ttl != DefaultTokenTTL {
		t.Fatalf("expected default ttl, got %v (%v)", issuer.ttl, err)
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)
	hash, err := h.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.Compare(hash, "secret1"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := h.Compare(hash, "other"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if NewBcryptHasher(100).cost != DefaultBcryptCost {
		t.Fatal("out of range cost must fall back to default")
	}
}
