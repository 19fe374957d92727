package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClasses(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class error
	}{
		{name: "empty cart", err: ErrCartEmpty, class: ErrValidation},
		{name: "incomplete address", err: ErrDeliveryAddressIncomplete, class: ErrValidation},
		{name: "invalid status", err: ErrInvalidOrderStatus, class: ErrValidation},
		{name: "bad credentials", err: ErrInvalidCredentials, class: ErrUnauthenticated},
		{name: "order access", err: ErrOrderAccessDenied, class: ErrForbidden},
		{name: "missing product", err: ErrProductNotFound, class: ErrNotFound},
		{name: "duplicate number", err: ErrOrderNumberTaken, class: ErrConflict},
		{name: "notification", err: ErrNotificationFailed, class: ErrUpstream},
		{name: "wrapped", err: fmt.Errorf("load cart: %w", ErrCartNotFound), class: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.class) {
				t.Fatalf("expected %v to belong to class %v", tt.err, tt.class)
			}
		})
	}
}

func TestErrorMessageHasNoClassPrefix(t *testing.T) {
	if got := ErrCartEmpty.Error(); got != "Cart is empty" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestIsVersionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "version conflict error", err: ErrOrderVersionConflict, want: true},
		{name: "wrapped version conflict error", err: errors.Join(ErrOrderVersionConflict, errors.New("additional context")), want: true},
		{name: "other conflict", err: ErrOrderNumberTaken, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVersionConflict(tt.err); got != tt.want {
				t.Errorf("IsVersionConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsIdempotencyConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "idempotency already exists", err: ErrIdempotencyKeyAlreadyExists, want: true},
		{name: "idempotency hash mismatch", err: ErrIdempotencyHashMismatch, want: true},
		{name: "wrapped idempotency conflict", err: errors.Join(ErrIdempotencyHashMismatch, errors.New("extra context")), want: true},
		{name: "non idempotency error", err: ErrOrderVersionConflict, want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIdempotencyConflict(tt.err); got != tt.want {
				t.Errorf("IsIdempotencyConflict() = %v, want %v", got, tt.want)
			}
		})
	}
}
