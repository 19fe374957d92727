package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func TestProductRepository_ListSearchAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepository()
	now := time.Now()

	products := []domain.Product{
		{ID: "p-1", SellerID: "s-1", Name: "Clay Mug", Description: "Handmade", CategoryID: "c-1", Status: domain.ProductStatusActive, CreatedAt: now.Add(-2 * time.Minute)},
		{ID: "p-2", SellerID: "s-2", Name: "Teapot", Description: "Porcelain", Tags: []string{"kitchen", "MUG-set"}, CategoryID: "c-1", Status: domain.ProductStatusActive, CreatedAt: now.Add(-time.Minute)},
		{ID: "p-3", SellerID: "s-1", Name: "Old mug", Description: "Retired", CategoryID: "c-2", Status: domain.ProductStatusDiscontinued, CreatedAt: now},
	}
	for _, p := range products {
		require.NoError(t, repo.Create(ctx, p))
	}

	list, total, err := repo.List(ctx, domain.ProductFilter{Status: domain.ProductStatusActive, Search: "mug"}, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "p-2", list[0].ID)
	require.Equal(t, "p-1", list[1].ID)

	list, total, err = repo.List(ctx, domain.ProductFilter{CategoryID: "c-2"}, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "p-3", list[0].ID)

	require.NoError(t, repo.UpdateRatings(ctx, "p-1", domain.Ratings{Average: 4, Count: 1}))
	got, err := repo.Get(ctx, "p-1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Ratings.Count)

	_, err = repo.Get(ctx, "nope")
	require.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestCategoryRepository_SortedAndUniqueSlug(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCategoryRepository()

	require.NoError(t, repo.Create(ctx, domain.Category{ID: "c-1", Name: "Kitchen", Slug: "kitchen", IsActive: true, SortOrder: 2}))
	require.NoError(t, repo.Create(ctx, domain.Category{ID: "c-2", Name: "Art", Slug: "art", IsActive: true, SortOrder: 1}))
	require.NoError(t, repo.Create(ctx, domain.Category{ID: "c-3", Name: "Hidden", Slug: "hidden", IsActive: false}))
	require.ErrorIs(t, repo.Create(ctx, domain.Category{ID: "c-4", Name: "Dup", Slug: "art"}), domain.ErrCategorySlugTaken)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "c-2", active[0].ID)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestCartAndUserRepositories(t *testing.T) {
	ctx := context.Background()
	carts := memory.NewCartRepository()

	_, err := carts.Get(ctx, "b-1")
	require.ErrorIs(t, err, domain.ErrCartNotFound)

	cart := domain.NewCart("b-1", time.Now())
	require.NoError(t, cart.Add(domain.CartLine{ProductID: "p-1", Quantity: 1, PriceMinor: 100}))
	require.NoError(t, carts.Save(ctx, cart))

	stored, err := carts.Get(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)

	users := memory.NewUserRepository()
	require.NoError(t, users.Create(ctx, domain.User{ID: "u-1", Email: "a@b.io"}))
	require.ErrorIs(t, users.Create(ctx, domain.User{ID: "u-2", Email: "a@b.io"}), domain.ErrEmailTaken)

	byEmail, err := users.GetByEmail(ctx, "a@b.io")
	require.NoError(t, err)
	require.Equal(t, "u-1", byEmail.ID)

	require.NoError(t, users.Delete(ctx, "u-1"))
	_, err = users.Get(ctx, "u-1")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
