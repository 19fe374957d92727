package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func TestVerificationCodeCheck(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	code := domain.VerificationCode{Code: "123456", ExpiresAt: now.Add(10 * time.Minute)}

	cases := []struct {
		name string
		code domain.VerificationCode
		in   string
		at   time.Time
		want error
	}{
		{name: "ok", code: code, in: "123456", at: now},
		{name: "blank", code: code, in: " ", at: now, want: domain.ErrCodeRequired},
		{name: "never issued", code: domain.VerificationCode{}, in: "123456", at: now, want: domain.ErrCodeMissing},
		{name: "expired", code: code, in: "123456", at: now.Add(11 * time.Minute), want: domain.ErrCodeExpired},
		{name: "wrong", code: code, in: "654321", at: now, want: domain.ErrCodeInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.code.Check(tc.in, tc.at)
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUserValidators(t *testing.T) {
	if email, err := domain.NormalizeEmail(" Buyer@Example.COM "); err != nil || email != "buyer@example.com" {
		t.Fatalf("unexpected email normalization: %q %v", email, err)
	}
	if _, err := domain.NormalizeEmail("not-an-email"); !errors.Is(err, domain.ErrEmailInvalid) {
		t.Fatalf("expected ErrEmailInvalid, got %v", err)
	}
	if err := domain.ValidatePassword("12345"); !errors.Is(err, domain.ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := domain.ValidatePhone("+919876543210"); err != nil {
		t.Fatalf("unexpected phone error: %v", err)
	}
	if err := domain.ValidatePhone("0123"); !errors.Is(err, domain.ErrPhoneInvalid) {
		t.Fatalf("expected ErrPhoneInvalid, got %v", err)
	}
	if err := domain.ValidateName("A"); !errors.Is(err, domain.ErrNameInvalid) {
		t.Fatalf("expected ErrNameInvalid, got %v", err)
	}
	if typ, err := domain.ParseRegistrationType(""); err != nil || typ != domain.UserTypeConsumer {
		t.Fatalf("expected consumer default, got %q %v", typ, err)
	}
	if _, err := domain.ParseRegistrationType("seller"); !errors.Is(err, domain.ErrUserTypeInvalid) {
		t.Fatalf("expected ErrUserTypeInvalid, got %v", err)
	}
	seller := domain.User{Type: domain.UserTypeVendor}
	if !seller.IsSeller() {
		t.Fatal("vendor must be a seller")
	}
}
