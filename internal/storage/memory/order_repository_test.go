package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func newOrder(id, number, buyer, seller string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:          id,
		OrderNumber: number,
		BuyerID:     buyer,
		SellerID:    seller,
		Currency:    "USD",
		Items:       []domain.OrderItem{{ProductID: "p-1", Name: "Mug", Quantity: 1, PriceMinor: 500}},
		Pricing:     domain.Pricing{SubtotalMinor: 500, TotalMinor: 500},
		Status:      domain.OrderStatusPlaced,
		Payment:     domain.Payment{Method: domain.DefaultPaymentMethod, Status: domain.PaymentStatusPending},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestOrderRepository_CreateGetAndUniqueNumber(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("o-1", "ORD-A-s1", "b-1", "s-1", time.Now())

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, newOrder("o-2", "ORD-A-s1", "b-1", "s-1", time.Now())); !errors.Is(err, domain.ErrOrderNumberTaken) {
		t.Fatalf("expected ErrOrderNumberTaken, got %v", err)
	}

	got, err := repo.Get(ctx, "o-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got.Items[0].Quantity = 99
	again, _ := repo.Get(ctx, "o-1")
	if again.Items[0].Quantity != 1 {
		t.Fatal("repository must return copies")
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	base := time.Now().Add(-time.Hour)

	orders := []domain.Order{
		newOrder("o-1", "N-1", "b-1", "s-1", base),
		newOrder("o-2", "N-2", "b-1", "s-2", base.Add(time.Minute)),
		newOrder("o-3", "N-3", "b-2", "s-1", base.Add(2*time.Minute)),
	}
	for _, o := range orders {
		if err := repo.Create(ctx, o); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	list, total, err := repo.List(ctx, domain.OrderFilter{BuyerID: "b-1"}, domain.Page{Number: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(list) != 1 || list[0].ID != "o-2" {
		t.Fatalf("unexpected page: total=%d list=%+v", total, list)
	}

	list, total, _ = repo.List(ctx, domain.OrderFilter{SellerID: "s-1", Status: domain.OrderStatusPlaced}, domain.Page{})
	if total != 2 || list[0].ID != "o-3" {
		t.Fatalf("unexpected seller listing: total=%d list=%+v", total, list)
	}
}

func TestOrderRepository_SaveOptimisticLock(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	if err := repo.Create(ctx, newOrder("o-1", "N-1", "b-1", "s-1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	order, _ := repo.Get(ctx, "o-1")
	stale := order
	order.Status = domain.OrderStatusConfirmed
	if err := repo.Save(ctx, order); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	stale.Status = domain.OrderStatusCancelled
	if err := repo.Save(ctx, stale); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected ErrOrderVersionConflict, got %v", err)
	}

	got, _ := repo.Get(ctx, "o-1")
	if got.Status != domain.OrderStatusConfirmed || got.Version != 1 {
		t.Fatalf("unexpected stored order: status=%s version=%d", got.Status, got.Version)
	}
}
