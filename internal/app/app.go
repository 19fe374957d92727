package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/cache"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
	"github.com/vladislavdragonenkov/marketplace/internal/service/auth"
	"github.com/vladislavdragonenkov/marketplace/internal/service/cart"
	"github.com/vladislavdragonenkov/marketplace/internal/service/catalog"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/idempotency"
	"github.com/vladislavdragonenkov/marketplace/internal/service/orders"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
	"github.com/vladislavdragonenkov/marketplace/internal/service/reviews"
	"github.com/vladislavdragonenkov/marketplace/internal/service/verification"
	"github.com/vladislavdragonenkov/marketplace/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Run поднимает REST API, ops-сервер и фоновые воркеры и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDependencies(deps, logger)

	redisCache, closeCache := initCache(ctx, cfg, logger)
	if closeCache != nil {
		defer func() { _ = closeCache() }()
	}

	email, sms := initNotifiers(cfg, logger)
	guard := idempotency.NewGuard(deps.idempotencyRepo, cfg.IdempotencyTTL, logger.WithField("component", "idempotency-guard"))
	services, err := buildServices(cfg, deps, redisCache, email, sms, guard, logger)
	if err != nil {
		return err
	}

	producer, _ := initKafkaProducer(cfg.Brokers(), logger)
	defer closeKafkaProducer(producer, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if redisCache != nil {
		healthHandler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", redisCache.Ping))
	}
	if producer != nil {
		healthHandler.RegisterChecker("kafka", healthcheck.NewStaticChecker("kafka", healthcheck.StatusHealthy, ""))
	} else {
		healthHandler.RegisterChecker("kafka", healthcheck.NewStaticChecker("kafka", healthcheck.StatusDegraded, "order events are not published"))
	}

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var outboxDone chan struct{}
	if producer != nil {
		relay := outbox.NewRelay(
			deps.outboxRepo,
			orderEventRoutes(cfg, producer),
			outbox.WithDLQPublisher(kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic)),
			outbox.WithLogger(logger.WithField("component", "order-events-relay")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		outboxDone = startWorker(workersCtx, relay.Run)
		logger.WithField("topics", cfg.OrderEventTopics()).Info("order events relay started")
	}

	var notifications *kafka.Consumer
	if producer != nil && cfg.OrderNotifications {
		notifications, err = initOrderNotifications(cfg, producer, deps.users, email, logger)
		if err != nil {
			logger.WithError(err).Warn("order notifications disabled")
		} else {
			notifications.Start(workersCtx)
		}
	}

	sweeper := idempotency.NewSweeper(guard, cfg.IdempotencyCleanupInterval, cfg.IdempotencyCleanupBatchSize)
	cleanupDone := startWorker(workersCtx, sweeper.Run)
	logger.WithFields(log.Fields{
		"ttl":      cfg.IdempotencyTTL.String(),
		"interval": sweeper.Interval().String(),
	}).Info("checkout idempotency sweeper started")

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	router := httpapi.NewRouter(httpapi.Config{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.AllowedOrigins(),
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
		Logger:         logger.WithField("component", "http"),
		Metrics:        metrics.NewHTTPMetrics(),
	}, services)

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("REST API слушает %s", lis.Addr())
		errCh <- apiSrv.Serve(lis)
	}()

	stop := func() {
		shutdownHTTP(apiSrv, logger)
		shutdownWorker("order-events-relay", stopWorkers, outboxDone, logger)
		stopOrderNotifications(notifications, logger)
		shutdownWorker("idempotency-sweeper", stopWorkers, cleanupDone, logger)
		shutdownHTTP(metricsSrv, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем REST API")
		stop()
		return ctx.Err()
	case err := <-errCh:
		stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildServices связывает прикладные сервисы с репозиториями и провайдерами.
func buildServices(cfg Config, deps runtimeDependencies, redisCache *cache.RedisCache, email domain.EmailSender, sms domain.SMSSender, guard *idempotency.Guard, logger *log.Entry) (httpapi.Services, error) {
	tokens, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return httpapi.Services{}, fmt.Errorf("init jwt issuer: %w", err)
	}
	authSvc := auth.NewService(deps.users, auth.NewBcryptHasher(cfg.BcryptCost), tokens, logger.WithField("component", "auth"))

	verificationSvc := verification.NewService(deps.users, email, sms, authSvc, logger.WithField("component", "verification"))

	var catalogCache catalog.Cache
	if redisCache != nil {
		catalogCache = redisCache
	}
	catalogSvc := catalog.NewService(deps.categories, deps.products, catalogCache, logger.WithField("component", "catalog"))

	checkoutOpts := []checkout.Option{
		checkout.WithLogger(logger.WithField("component", "checkout")),
		checkout.WithMetrics(metrics.NewCheckoutMetrics()),
		checkout.WithOutbox(deps.outboxRepo),
	}
	if deps.transactor != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithTransactor(deps.transactor))
	}

	return httpapi.Services{
		Auth:         authSvc,
		Verification: verificationSvc,
		Catalog:      catalogSvc,
		Cart:         cart.NewService(deps.carts, catalogSvc, logger.WithField("component", "cart")),
		Checkout:     checkout.NewService(deps.carts, deps.products, deps.orders, checkoutOpts...),
		Orders: orders.NewService(deps.orders,
			orders.WithLogger(logger.WithField("component", "orders")),
			orders.WithOutbox(deps.outboxRepo),
			orders.WithTransactor(deps.transactor),
		),
		Reviews:     reviews.NewService(deps.reviews, catalogSvc, logger.WithField("component", "reviews")),
		Idempotency: guard,
	}, nil
}

// startWorker запускает run в отдельной горутине; канал закрывается по её завершении.
func startWorker(ctx context.Context, run func(context.Context)) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	return done
}

// shutdownWorker отменяет контекст воркера и ждёт его завершения.
func shutdownWorker(name string, cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.WithField("worker", name).Info("worker stopped")
	case <-time.After(shutdownTimeout):
		logger.WithField("worker", name).Warn("worker did not stop in time")
	}
}

func closeDependencies(deps runtimeDependencies, logger *log.Entry) {
	if deps.closeFn == nil {
		return
	}
	if err := deps.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

// startMetricsServer запускает ops-сервер: /metrics, /healthz, /readyz, /livez.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http server shutdown with error")
	}
}
