// Package catalog реализует чтение каталога и добавление товаров продавцами.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/marketplace/internal/cache"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	categoriesKey     = "categories:active"
	productKeyPrefix  = "product:"
	productListPrefix = "products:list:"
)

// Cache — кеш каталога. Get возвращает cache.ErrCacheMiss при промахе.
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// ProductPage содержит страницу товаров и общее количество.
type ProductPage struct {
	Items []domain.Product
	Total int
}

// NewProductInput — данные нового товара.
type NewProductInput struct {
	Name        string
	Description string
	CategoryID  string
	Price       domain.PriceInput
	Quantity    int
	Images      []string
	Tags        []string
	Status      string
}

// NewCategoryInput описывает новую категорию.
type NewCategoryInput struct {
	Name        string
	Slug        string
	Description string
	Image       string
	ParentID    string
	SortOrder   int
}

// Service обслуживает категории и товары.
type Service struct {
	categories domain.CategoryRepository
	products   domain.ProductRepository
	cache      Cache
	group      singleflight.Group
	logger     *log.Entry
	now        func() time.Time
}

// NewService создаёт сервис каталога; cache может быть nil.
func NewService(categories domain.CategoryRepository, products domain.ProductRepository, c Cache, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	return &Service{
		categories: categories,
		products:   products,
		cache:      c,
		logger:     logger,
		now:        time.Now,
	}
}

// ListCategories возвращает активные категории.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	if s.fromCache(ctx, categoriesKey, &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(categoriesKey, func() (any, error) {
		list, err := s.categories.List(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		s.toCache(ctx, categoriesKey, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Category), nil
}

// GetCategory возвращает категорию по идентификатору.
func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	return s.categories.Get(ctx, id)
}

// CreateCategory добавляет категорию; slug строится из имени, если не задан.
func (s *Service) CreateCategory(ctx context.Context, caller domain.User, in NewCategoryInput) (domain.Category, error) {
	if !caller.IsAdmin() {
		return domain.Category{}, domain.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > 50 {
		return domain.Category{}, domain.ErrNameInvalid
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}

	now := s.now().UTC()
	category := domain.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(in.Image),
		ParentID:    strings.TrimSpace(in.ParentID),
		IsActive:    true,
		SortOrder:   in.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return domain.Category{}, err
	}
	s.invalidate(ctx, func(c Cache) error { return c.Delete(ctx, categoriesKey) })
	return category, nil
}

// ListProducts возвращает страницу товаров; статус по умолчанию active.
func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter, page domain.Page) ([]domain.Product, domain.Pagination, error) {
	if filter.Status == "" {
		filter.Status = domain.ProductStatusActive
	}
	page = page.Normalize()
	key := productListKey(filter, page)

	var cached ProductPage
	if s.fromCache(ctx, key, &cached) {
		return cached.Items, domain.NewPagination(page, cached.Total), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		items, total, err := s.products.List(ctx, filter, page)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		result := ProductPage{Items: items, Total: total}
		s.toCache(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	result := v.(ProductPage)
	return result.Items, domain.NewPagination(page, result.Total), nil
}

// ListByCategory возвращает активные товары существующей категории.
func (s *Service) ListByCategory(ctx context.Context, categoryID string, page domain.Page) (domain.Category, []domain.Product, domain.Pagination, error) {
	category, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, nil, domain.Pagination{}, err
	}
	items, pagination, err := s.ListProducts(ctx, domain.ProductFilter{CategoryID: category.ID}, page)
	if err != nil {
		return domain.Category{}, nil, domain.Pagination{}, err
	}
	return category, items, pagination, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	key := productKeyPrefix + id

	var cached domain.Product
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		product, err := s.products.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		s.toCache(ctx, key, product)
		return product, nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return v.(domain.Product), nil
}

// Get реализует чтение товара для корзины и оформления.
func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.GetProduct(ctx, id)
}

// CreateProduct добавляет товар от имени продавца.
func (s *Service) CreateProduct(ctx context.Context, seller domain.User, in NewProductInput) (domain.Product, error) {
	if !seller.IsSeller() {
		return domain.Product{}, domain.ErrSellerRequired
	}
	price, err := domain.NormalizePrice(in.Price)
	if err != nil {
		return domain.Product{}, err
	}
	if in.CategoryID != "" {
		if _, err := s.categories.Get(ctx, in.CategoryID); err != nil {
			return domain.Product{}, err
		}
	}

	now := s.now().UTC()
	product := domain.Product{
		ID:          uuid.NewString(),
		SellerID:    seller.ID,
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Price:       price,
		Inventory:   domain.Inventory{Quantity: in.Quantity},
		Images:      nonEmpty(in.Images),
		Tags:        nonEmpty(in.Tags),
		Status:      domain.ProductStatus(strings.ToLower(strings.TrimSpace(in.Status))),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.invalidate(ctx, func(c Cache) error { return c.DeletePrefix(ctx, productListPrefix) })
	s.logger.WithFields(log.Fields{"product_id": product.ID, "seller_id": seller.ID}).Info("product created")
	return product, nil
}

// UpdateRatings сохраняет агрегат оценок и сбрасывает кеш товара.
func (s *Service) UpdateRatings(ctx context.Context, id string, ratings domain.Ratings) error {
	if err := s.products.UpdateRatings(ctx, id, ratings); err != nil {
		return err
	}
	s.invalidate(ctx, func(c Cache) error {
		if err := c.Delete(ctx, productKeyPrefix+id); err != nil {
			return err
		}
		return c.DeletePrefix(ctx, productListPrefix)
	})
	return nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dst)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.WithError(err).WithField("key", key).Warn("cache read failed")
	}
	return false
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (s *Service) invalidate(ctx context.Context, fn func(Cache) error) {
	if s.cache == nil {
		return
	}
	if err := fn(s.cache); err != nil {
		s.logger.WithError(err).Warn("cache invalidation failed")
	}
}

func productListKey(f domain.ProductFilter, page domain.Page) string {
	return fmt.Sprintf("%sc=%s|s=%s|st=%s|q=%s|p=%d|l=%d", productListPrefix,
		f.CategoryID, f.SellerID, f.Status, strings.ToLower(strings.TrimSpace(f.Search)), page.Number, page.Limit)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Slugify приводит строку к виду "lower-case-slug".
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
