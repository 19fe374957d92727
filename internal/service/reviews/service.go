// Package reviews принимает отзывы и поддерживает агрегат оценок товара.
package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Products — доступ к товарам, нужный отзывам.
type Products interface {
	Get(ctx context.Context, id string) (domain.Product, error)
	UpdateRatings(ctx context.Context, id string, ratings domain.Ratings) error
}

type CreateInput struct {
	ProductID string
	Rating    int
	Comment   string
}

// Service управляет отзывами.
type Service struct {
	reviews  domain.ReviewRepository
	products Products
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт сервис отзывов.
func NewService(reviews domain.ReviewRepository, products Products, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "reviews")
	}
	return &Service{reviews: reviews, products: products, logger: logger, now: time.Now}
}

// ListByProduct возвращает отзывы о товаре, новые первыми.
func (s *Service) ListByProduct(ctx context.Context, productID string, page domain.Page) ([]domain.Review, domain.Pagination, error) {
	page = page.Normalize()
	list, total, err := s.reviews.ListByProduct(ctx, strings.TrimSpace(productID), page)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list reviews: %w", err)
	}
	return list, domain.NewPagination(page, total), nil
}

// Create сохраняет отзыв и пересчитывает среднюю оценку товара.
func (s *Service) Create(ctx context.Context, author domain.User, in CreateInput) (domain.Review, error) {
	now := s.now().UTC()
	review := domain.Review{
		ID:        uuid.NewString(),
		ProductID: strings.TrimSpace(in.ProductID),
		UserID:    author.ID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := review.Validate(); err != nil {
		return domain.Review{}, err
	}

	product, err := s.products.Get(ctx, review.ProductID)
	if err != nil {
		return domain.Review{}, err
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}

	ratings := product.Ratings.ApplyRating(review.Rating)
	if err := s.products.UpdateRatings(ctx, product.ID, ratings); err != nil {
		// отзыв уже сохранён; агрегат догонит следующий отзыв
		s.logger.WithError(err).WithField("product_id", product.ID).Error("update product ratings failed")
	}
	return review, nil
}
