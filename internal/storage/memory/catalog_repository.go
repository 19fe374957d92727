package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type categoryRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[string]domain.Category
	bySlug map[string]string
}

// NewCategoryRepository создаёт in-memory хранилище категорий.
func NewCategoryRepository() domain.CategoryRepository {
	return &categoryRepositoryInMemory{
		items:  make(map[string]domain.Category),
		bySlug: make(map[string]string),
	}
}

func (r *categoryRepositoryInMemory) Create(_ context.Context, category domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySlug[category.Slug]; exists {
		return domain.ErrCategorySlugTaken
	}
	r.items[category.ID] = category
	r.bySlug[category.Slug] = category.ID
	return nil
}

func (r *categoryRepositoryInMemory) Get(_ context.Context, id string) (domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, ok := r.items[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (r *categoryRepositoryInMemory) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Category, 0, len(r.items))
	for _, category := range r.items {
		if activeOnly && !category.IsActive {
			continue
		}
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

var _ domain.CategoryRepository = (*categoryRepositoryInMemory)(nil)

type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository создаёт in-memory хранилище товаров.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{items: make(map[string]domain.Product)}
}

func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[product.ID] = cloneProduct(product)
	return nil
}

func (r *productRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return cloneProduct(product), nil
}

func (r *productRepositoryInMemory) List(_ context.Context, filter domain.ProductFilter, page domain.Page) ([]domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if !filter.Matches(&product) {
			continue
		}
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	pageItems := domain.Paginate(result, page)
	for i := range pageItems {
		pageItems[i] = cloneProduct(pageItems[i])
	}
	return pageItems, len(result), nil
}

func (r *productRepositoryInMemory) UpdateRatings(_ context.Context, id string, ratings domain.Ratings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Ratings = ratings
	r.items[id] = product
	return nil
}

func cloneProduct(src domain.Product) domain.Product {
	dst := src
	dst.Images = append([]string(nil), src.Images...)
	dst.Tags = append([]string(nil), src.Tags...)
	return dst
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
