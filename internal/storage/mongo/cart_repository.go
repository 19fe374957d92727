package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type cartRepository struct {
	coll *mongo.Collection
}

// NewCartRepository создаёт MongoDB-реализацию CartRepository: один документ на пользователя.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{coll: store.collection(collectionCarts)}
}

func (r *cartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc cartDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		return domain.Cart{}, notFound(err, domain.ErrCartNotFound, "find cart")
	}
	return doc.toDomain(), nil
}

func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": cart.UserID}, newCartDocument(cart), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
