package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func sampleOrder(id, number, buyerID, sellerID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		OrderNumber: number,
		BatchID:     "ORD-0A1B2C3D4E5F",
		BuyerID:     buyerID,
		SellerID:    sellerID,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Name: "Mug", Image: "mug.jpg", Quantity: 2, PriceMinor: 1250},
		},
		Currency: "USD",
		Pricing:  domain.Pricing{SubtotalMinor: 2500, TotalMinor: 2500},
		Delivery: domain.Delivery{
			Address:      domain.Address{Street: "1 Main St", City: "Springfield", State: "IL", Pincode: "62701"},
			ExpectedDate: createdAt.Add(domain.DeliveryLeadTime),
		},
		Payment:   domain.Payment{Method: domain.DefaultPaymentMethod, Status: domain.PaymentStatusPending},
		Status:    domain.OrderStatusPlaced,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_MongoLifecycle(t *testing.T) {
	store := openMongoStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := testContext(t)

	at := now()
	first := sampleOrder("order-1", "ORD-0A1B2C3D4E5F-seller-1", "buyer-1", "seller-1", at.Add(-time.Minute))
	second := sampleOrder("order-2", "ORD-0A1B2C3D4E5F-seller-2", "buyer-1", "seller-2", at)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	dup := sampleOrder("order-3", first.OrderNumber, "buyer-1", "seller-1", at)
	require.ErrorIs(t, repo.Create(ctx, dup), domain.ErrOrderNumberTaken)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first, got)

	listed, total, err := repo.List(ctx, domain.OrderFilter{BuyerID: "buyer-1"}, domain.Page{Number: 1, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, second.ID, listed[0].ID)

	require.NoError(t, got.TransitionTo(domain.OrderStatusConfirmed, at))
	require.NoError(t, repo.Save(ctx, got))
	require.ErrorIs(t, repo.Save(ctx, got), domain.ErrOrderVersionConflict)

	saved, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, saved.Status)
	require.Equal(t, int64(1), saved.Version)

	require.ErrorIs(t, repo.Save(ctx, sampleOrder("missing", "x", "b", "s", at)), domain.ErrOrderNotFound)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUserRepository_MongoLifecycle(t *testing.T) {
	store := openMongoStoreForIntegrationTest(t)
	repo := NewUserRepository(store)
	ctx := testContext(t)

	at := now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        "ann@example.com",
		PasswordHash: "hash",
		Name:         "Ann",
		Type:         domain.UserTypeVendor,
		IsActive:     true,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	require.NoError(t, repo.Create(ctx, user))

	dup := user
	dup.ID = uuid.NewString()
	require.ErrorIs(t, repo.Create(ctx, dup), domain.ErrEmailTaken)

	user.PhoneNumber = "+15551234567"
	user.PhoneCode = domain.VerificationCode{Code: "654321", ExpiresAt: at.Add(10 * time.Minute)}
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.Equal(t, user, got)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.Get(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCatalogRepositories_Mongo(t *testing.T) {
	store := openMongoStoreForIntegrationTest(t)
	categories := NewCategoryRepository(store)
	products := NewProductRepository(store)
	ctx := testContext(t)

	at := now()
	category := domain.Category{ID: uuid.NewString(), Name: "Home", Slug: "home", IsActive: true, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, categories.Create(ctx, category))
	dup := category
	dup.ID = uuid.NewString()
	require.ErrorIs(t, categories.Create(ctx, dup), domain.ErrCategorySlugTaken)

	listed, err := categories.List(ctx, true)
	require.NoError(t, err)
	require.Equal(t, []domain.Category{category}, listed)

	product := domain.Product{
		ID:          uuid.NewString(),
		SellerID:    "seller-1",
		Name:        "Lamp (brass)",
		Description: "Warm light",
		CategoryID:  category.ID,
		Price:       domain.Price{AmountMinor: 2599, Currency: "USD"},
		Inventory:   domain.Inventory{Quantity: 3, LowStockThreshold: 10},
		Images:      []string{},
		Tags:        []string{"lighting"},
		Status:      domain.ProductStatusActive,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, products.Create(ctx, product))

	got, err := products.Get(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, product, got)

	for _, search := range []string{"LIGHT", "(brass)"} {
		_, total, err := products.List(ctx, domain.ProductFilter{CategoryID: category.ID, Search: search}, domain.Page{})
		require.NoError(t, err)
		require.Equal(t, 1, total, "search %q", search)
	}

	ratings := domain.Ratings{}.ApplyRating(5)
	require.NoError(t, products.UpdateRatings(ctx, product.ID, ratings))
	require.ErrorIs(t, products.UpdateRatings(ctx, "missing", ratings), domain.ErrProductNotFound)
}

func TestCartAndReviewRepositories_Mongo(t *testing.T) {
	store := openMongoStoreForIntegrationTest(t)
	carts := NewCartRepository(store)
	reviews := NewReviewRepository(store)
	ctx := testContext(t)

	_, err := carts.Get(ctx, "buyer-1")
	require.ErrorIs(t, err, domain.ErrCartNotFound)

	at := now()
	cart := domain.NewCart("buyer-1", at)
	require.NoError(t, cart.Add(domain.CartLine{ProductID: "p-1", Name: "Mug", Quantity: 1, PriceMinor: 1250, Currency: "USD", AddedAt: at}))
	require.NoError(t, carts.Save(ctx, cart))
	got, err := carts.Get(ctx, "buyer-1")
	require.NoError(t, err)
	require.Equal(t, cart, got)

	got.Clear()
	require.NoError(t, carts.Save(ctx, got))
	got, err = carts.Get(ctx, "buyer-1")
	require.NoError(t, err)
	require.True(t, got.IsEmpty())

	for i := 1; i <= 3; i++ {
		require.NoError(t, reviews.Create(ctx, domain.Review{
			ID:        uuid.NewString(),
			ProductID: "p-1",
			UserID:    "buyer-1",
			Rating:    i,
			CreatedAt: at.Add(time.Duration(i) * time.Second),
			UpdatedAt: at,
		}))
	}
	page, total, err := reviews.ListByProduct(ctx, "p-1", domain.Page{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 2)
	require.Equal(t, 3, page[0].Rating)
}

func TestOutboxAndIdempotencyRepositories_Mongo(t *testing.T) {
	store := openMongoStoreForIntegrationTest(t)
	outbox := NewOutboxRepository(store)
	idem := NewIdempotencyRepository(store)
	ctx := testContext(t)

	msg, err := outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "order-1",
		EventType:     domain.EventOrderPlaced,
		Payload:       []byte(`{"id":"order-1"}`),
	})
	require.NoError(t, err)

	stats, err := outbox.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero())

	pending, err := outbox.PullPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, msg.ID, pending[0].ID)
	require.JSONEq(t, `{"id":"order-1"}`, string(pending[0].Payload))

	require.NoError(t, outbox.MarkSent(ctx, msg.ID))
	require.ErrorIs(t, outbox.MarkFailed(ctx, "missing"), domain.ErrOutboxPublish)

	at := time.Now().UTC()
	_, err = idem.CreateProcessing(ctx, "user-1:key", "hash-a", at.Add(time.Hour))
	require.NoError(t, err)
	_, err = idem.CreateProcessing(ctx, "user-1:key", "hash-a", time.Time{})
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	_, err = idem.CreateProcessing(ctx, "user-1:key", "hash-b", time.Time{})
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)

	require.NoError(t, idem.MarkDone(ctx, "user-1:key", []byte(`{"success":true}`), 201))
	record, err := idem.Get(ctx, "user-1:key")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, record.Status)
	require.Equal(t, 201, record.HTTPStatus)

	for _, key := range []string{"old-1", "old-2", "old-3"} {
		_, err := idem.CreateProcessing(ctx, key, "h", at.Add(-time.Minute))
		require.NoError(t, err)
	}
	removed, err := idem.DeleteExpired(ctx, at, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	removed, err = idem.DeleteExpired(ctx, at, 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}

func TestStore_WithinTxPassThroughWithoutTransactions(t *testing.T) {
	store := &Store{}
	errBoom := errors.New("boom")

	called := false
	err := store.WithinTx(context.Background(), func(ctx context.Context) error {
		called = true
		return errBoom
	})
	require.True(t, called)
	require.ErrorIs(t, err, errBoom)
}
