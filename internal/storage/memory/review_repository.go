package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type reviewRepositoryInMemory struct {
	mu    sync.RWMutex
	items []domain.Review
}

// NewReviewRepository создаёт in-memory хранилище отзывов.
func NewReviewRepository() domain.ReviewRepository {
	return &reviewRepositoryInMemory{}
}

func (r *reviewRepositoryInMemory) Create(_ context.Context, review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, review)
	return nil
}

func (r *reviewRepositoryInMemory) ListByProduct(_ context.Context, productID string, page domain.Page) ([]domain.Review, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Review, 0)
	for _, review := range r.items {
		if review.ProductID == productID {
			result = append(result, review)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return domain.Paginate(result, page), len(result), nil
}

var _ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
