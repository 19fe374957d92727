// Package mongo хранит данные маркетплейса в MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultSelectTimeout  = 5 * time.Second
	defaultMaxPoolSize    = 100
	defaultMinPoolSize    = 10
	defaultDatabase       = "marketplace"
	opTimeout             = 5 * time.Second
	collectionUsers       = "users"
	collectionCategories  = "categories"
	collectionProducts    = "products"
	collectionCarts       = "carts"
	collectionOrders      = "orders"
	collectionReviews     = "reviews"
	collectionOutbox      = "outbox_messages"
	collectionIdempotency = "idempotency_keys"
)

// Store держит клиента и базу MongoDB.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// Option настраивает Store.
type Option func(*Store)

// WithTransactions включает многодокументные транзакции (нужен replica set).
func WithTransactions(enabled bool) Option {
	return func(s *Store) {
		s.transactions = enabled
	}
}

// Connect подключается к MongoDB и проверяет доступность сервера.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	if database == "" {
		database = defaultDatabase
	}
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(defaultConnectTimeout).
		SetServerSelectionTimeout(defaultSelectTimeout).
		SetMaxPoolSize(defaultMaxPoolSize).
		SetMinPoolSize(defaultMinPoolSize)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultSelectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Database возвращает базу, с которой работает Store.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Ping проверяет доступность сервера.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return errors.New("mongo store is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultSelectTimeout)
	defer cancel()
	return s.client.Ping(pingCtx, nil)
}

// EnsureIndexes создаёт уникальные и служебные индексы.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collectionCategories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "sort_order", Value: 1}, {Key: "name", Value: 1}}},
		},
		collectionProducts: {
			{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionOrders: {
			{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionReviews: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionOutbox: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		collectionIdempotency: {
			{Keys: bson.D{{Key: "ttl_at", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// WithinTx выполняет fn в сессионной транзакции, если они включены.
// Без транзакций fn вызывается как есть, частичные записи не откатываются.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

// Close отключает клиента.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// notFound подменяет mongo.ErrNoDocuments доменной ошибкой.
func notFound(err, domainErr error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domainErr
	}
	return fmt.Errorf("%s: %w", op, err)
}

func findPage(p domain.Page) *options.FindOptions {
	p = p.Normalize()
	return options.Find().
		SetSkip(int64(p.Offset())).
		SetLimit(int64(p.Limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

var _ domain.Transactor = (*Store)(nil)
