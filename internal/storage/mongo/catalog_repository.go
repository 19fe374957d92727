package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type categoryRepository struct {
	coll *mongo.Collection
}

// NewCategoryRepository создаёт MongoDB-реализацию CategoryRepository.
func NewCategoryRepository(store *Store) domain.CategoryRepository {
	return &categoryRepository{coll: store.collection(collectionCategories)}
}

func (r *categoryRepository) Create(ctx context.Context, c domain.Category) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, categoryDocument(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrCategorySlugTaken
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Get(ctx context.Context, id string) (domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc categoryDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.Category{}, notFound(err, domain.ErrCategoryNotFound, "find category")
	}
	return doc.toDomain(), nil
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var docs []categoryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	result := make([]domain.Category, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, nil
}

type productRepository struct {
	coll *mongo.Collection
}

// NewProductRepository создаёт MongoDB-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{coll: store.collection(collectionProducts)}
}

func (r *productRepository) Create(ctx context.Context, p domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, newProductDocument(p)); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.Product{}, notFound(err, domain.ErrProductNotFound, "find product")
	}
	return doc.toDomain(), nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, p domain.Page) ([]domain.Product, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := productQuery(filter)
	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	cur, err := r.coll.Find(ctx, query, findPage(p))
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}

	result := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toDomain())
	}
	return result, int(total), nil
}

func (r *productRepository) UpdateRatings(ctx context.Context, id string, ratings domain.Ratings) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"rating_average": ratings.Average,
		"rating_count":   ratings.Count,
		"updated_at":     time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update product ratings: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func productQuery(f domain.ProductFilter) bson.M {
	query := bson.M{}
	if f.CategoryID != "" {
		query["category_id"] = f.CategoryID
	}
	if f.SellerID != "" {
		query["seller_id"] = f.SellerID
	}
	if f.Status != "" {
		query["status"] = string(f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"description": re},
			bson.M{"tags": re},
		}
	}
	return query
}

var (
	_ domain.CategoryRepository = (*categoryRepository)(nil)
	_ domain.ProductRepository  = (*productRepository)(nil)
)
