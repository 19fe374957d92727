package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/mongo"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/postgres"
)

const storagePingTimeout = 2 * time.Second

// runtimeDependencies собирает репозитории выбранного драйвера хранения.
type runtimeDependencies struct {
	users           domain.UserRepository
	categories      domain.CategoryRepository
	products        domain.ProductRepository
	carts           domain.CartRepository
	orders          domain.OrderRepository
	reviews         domain.ReviewRepository
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	// transactor nil, если хранилище не поддерживает транзакции.
	transactor     domain.Transactor
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}

	switch driver {
	case StorageDriverMemory:
		logger.Info("storage driver: memory")
		return runtimeDependencies{
			users:           memory.NewUserRepository(),
			categories:      memory.NewCategoryRepository(),
			products:        memory.NewProductRepository(),
			carts:           memory.NewCartRepository(),
			orders:          memory.NewOrderRepository(),
			reviews:         memory.NewReviewRepository(),
			outboxRepo:      memory.NewOutboxRepository(),
			idempotencyRepo: memory.NewIdempotencyRepository(),
			storageChecker:  healthcheck.NewSimpleChecker("storage", func(context.Context) error { return nil }),
		}, nil
	case StorageDriverPostgres:
		return initPostgres(ctx, cfg, logger)
	case StorageDriverMongo:
		return initMongo(ctx, cfg, logger)
	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgres(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		return runtimeDependencies{}, errors.New("postgres dsn is required for postgres storage driver")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return runtimeDependencies{}, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return runtimeDependencies{}, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	logger.Info("storage driver: postgres")
	return runtimeDependencies{
		users:           postgres.NewUserRepository(store),
		categories:      postgres.NewCategoryRepository(store),
		products:        postgres.NewProductRepository(store),
		carts:           postgres.NewCartRepository(store),
		orders:          postgres.NewOrderRepository(store),
		reviews:         postgres.NewReviewRepository(store),
		outboxRepo:      postgres.NewOutboxRepository(store),
		idempotencyRepo: postgres.NewIdempotencyRepository(store),
		transactor:      store,
		storageChecker: healthcheck.NewSimpleChecker("postgres", func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, storagePingTimeout)
			defer cancel()
			return store.Ping(pingCtx)
		}),
		closeFn: store.Close,
	}, nil
}

func initMongo(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	uri := strings.TrimSpace(cfg.MongoURI)
	if uri == "" {
		return runtimeDependencies{}, errors.New("mongo uri is required for mongo storage driver")
	}

	store, err := mongo.Connect(ctx, uri, cfg.MongoDatabase, mongo.WithTransactions(cfg.MongoTransactions))
	if err != nil {
		return runtimeDependencies{}, fmt.Errorf("connect mongo: %w", err)
	}
	closeFn := func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return store.Close(closeCtx)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = closeFn()
		return runtimeDependencies{}, fmt.Errorf("ensure mongo indexes: %w", err)
	}

	deps := runtimeDependencies{
		users:           mongo.NewUserRepository(store),
		categories:      mongo.NewCategoryRepository(store),
		products:        mongo.NewProductRepository(store),
		carts:           mongo.NewCartRepository(store),
		orders:          mongo.NewOrderRepository(store),
		reviews:         mongo.NewReviewRepository(store),
		outboxRepo:      mongo.NewOutboxRepository(store),
		idempotencyRepo: mongo.NewIdempotencyRepository(store),
		storageChecker: healthcheck.NewSimpleChecker("mongo", func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, storagePingTimeout)
			defer cancel()
			return store.Ping(pingCtx)
		}),
		closeFn: closeFn,
	}
	if cfg.MongoTransactions {
		deps.transactor = store
	}

	logger.WithField("transactions", cfg.MongoTransactions).Info("storage driver: mongo")
	return deps, nil
}
