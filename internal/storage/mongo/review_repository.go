package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type reviewRepository struct {
	coll *mongo.Collection
}

// NewReviewRepository создаёт MongoDB-реализацию ReviewRepository.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{coll: store.collection(collectionReviews)}
}

func (r *reviewRepository) Create(ctx context.Context, review domain.Review) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, reviewDocument(review)); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID string, p domain.Page) ([]domain.Review, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := bson.M{"product_id": productID}
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	cur, err := r.coll.Find(ctx, query, findPage(p))
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	var docs []reviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode reviews: %w", err)
	}

	result := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		review := domain.Review(d)
		review.CreatedAt = utc(review.CreatedAt)
		review.UpdatedAt = utc(review.UpdatedAt)
		result = append(result, review)
	}
	return result, int(total), nil
}

var _ domain.ReviewRepository = (*reviewRepository)(nil)
