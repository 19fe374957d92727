package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type orderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository создаёт MongoDB-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{coll: store.collection(collectionOrders)}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, newOrderDocument(order)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrOrderNumberTaken
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc orderDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.Order{}, notFound(err, domain.ErrOrderNotFound, "find order")
	}
	return doc.toDomain(), nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter, p domain.Page) ([]domain.Order, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := bson.M{}
	if filter.BuyerID != "" {
		query["buyer_id"] = filter.BuyerID
	}
	if filter.SellerID != "" {
		query["seller_id"] = filter.SellerID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	cur, err := r.coll.Find(ctx, query, findPage(p))
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}

	result := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, int(total), nil
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": order.ID, "version": order.Version},
		bson.M{
			"$set": bson.M{
				"status":     string(order.Status),
				"payment":    newPaymentDocument(order.Payment),
				"updated_at": order.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	err = r.coll.FindOne(ctx, bson.M{"_id": order.ID}).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrOrderNotFound
	case err != nil:
		return fmt.Errorf("check order exists: %w", err)
	default:
		return domain.ErrOrderVersionConflict
	}
}

var _ domain.OrderRepository = (*orderRepository)(nil)
