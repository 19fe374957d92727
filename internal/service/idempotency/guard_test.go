package idempotency

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func TestGuard_FirstRequestThenReplay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	key := ScopedKey("buyer-1", " checkout-1 ")
	hash := RequestHash(http.MethodPost, "/api/orders", []byte(`{"shippingAddress":{}}`))

	_, replay, err := guard.Begin(ctx, key, hash)
	require.NoError(t, err)
	require.False(t, replay)

	guard.Complete(ctx, key, http.StatusCreated, []byte(`{"success":true}`))

	record, replay, err := guard.Begin(ctx, key, hash)
	require.NoError(t, err)
	require.True(t, replay)
	require.Equal(t, http.StatusCreated, record.HTTPStatus)
	require.JSONEq(t, `{"success":true}`, string(record.ResponseBody))
}

func TestGuard_Conflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	key := ScopedKey("buyer-1", "checkout-2")
	hash := RequestHash(http.MethodPost, "/api/orders", []byte(`{"a":1}`))

	_, _, err := guard.Begin(ctx, key, hash)
	require.NoError(t, err)

	_, _, err = guard.Begin(ctx, key, hash)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	require.ErrorIs(t, err, domain.ErrConflict)

	_, _, err = guard.Begin(ctx, key, RequestHash(http.MethodPost, "/api/orders", []byte(`{"a":2}`)))
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestGuard_FailedResponseIsReplayed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository(), 0, nil)
	key := ScopedKey("buyer-2", "checkout-3")
	hash := RequestHash(http.MethodPost, "/api/orders", nil)

	_, _, err := guard.Begin(ctx, key, hash)
	require.NoError(t, err)
	guard.Complete(ctx, key, http.StatusBadRequest, []byte(`{"success":false,"message":"Cart is empty"}`))

	record, replay, err := guard.Begin(ctx, key, hash)
	require.NoError(t, err)
	require.True(t, replay)
	require.Equal(t, domain.IdempotencyStatusFailed, record.Status)
	require.Equal(t, http.StatusBadRequest, record.HTTPStatus)
}

func TestGuard_RepositoryFailure(t *testing.T) {
	t.Parallel()

	guard := NewGuard(&stubCleanupRepo{createErr: errors.New("db down")}, 0, nil)
	_, _, err := guard.Begin(context.Background(), "k", "h")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrConflict)
}

func TestRequestHash_DependsOnPathAndBody(t *testing.T) {
	t.Parallel()

	base := RequestHash(http.MethodPost, "/api/orders", []byte("x"))
	if base == RequestHash(http.MethodPost, "/api/orders", []byte("y")) {
		t.Fatal("hash must depend on body")
	}
	if base == RequestHash(http.MethodPost, "/api/other", []byte("x")) {
		t.Fatal("hash must depend on path")
	}
	if len(base) != 64 {
		t.Fatalf("unexpected hash length %d", len(base))
	}
}
