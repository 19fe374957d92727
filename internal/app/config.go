package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres хранит данные в PostgreSQL.
	StorageDriverPostgres = "postgres"
	// StorageDriverMongo хранит данные в MongoDB.
	StorageDriverMongo = "mongo"

	environmentProduction = "production"
	defaultJWTSecret      = "marketplace-dev-secret"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	Environment string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	MongoURI            string
	MongoDatabase       string
	MongoTransactions   bool

	RedisAddr string
	CacheTTL  time.Duration

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins string

	SendGridAPIKey   string
	MailFrom         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	KafkaBrokers       string
	KafkaTopic         string
	KafkaStatusTopic   string
	KafkaDLQTopic      string
	KafkaConsumerGroup string

	OrderNotifications bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		Environment:                 "development",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		MongoDatabase:               "marketplace",
		CacheTTL:                    5 * time.Minute,
		JWTSecret:                   defaultJWTSecret,
		JWTTTL:                      7 * 24 * time.Hour,
		BcryptCost:                  12,
		RateLimit:                   100,
		RateWindow:                  15 * time.Minute,
		CORSOrigins:                 "*",
		KafkaTopic:                  "marketplace.order.events",
		KafkaDLQTopic:               "marketplace.dlq",
		KafkaConsumerGroup:          "marketplace-notifications",
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            50 * time.Millisecond,
		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// LoadConfig читает настройки из переменных окружения поверх DefaultConfig.
func LoadConfig() (Config, error) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	env := envReader{lookup: lookup}

	env.str("MARKETPLACE_HTTP_ADDR", &cfg.HTTPAddr)
	env.str("MARKETPLACE_METRICS_ADDR", &cfg.MetricsAddr)
	env.str("MARKETPLACE_ENV", &cfg.Environment)

	env.str("MARKETPLACE_STORAGE_DRIVER", &cfg.StorageDriver)
	env.str("MARKETPLACE_POSTGRES_DSN", &cfg.PostgresDSN)
	env.boolean("MARKETPLACE_POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)
	env.str("MARKETPLACE_MONGO_URI", &cfg.MongoURI)
	env.str("MARKETPLACE_MONGO_DATABASE", &cfg.MongoDatabase)
	env.boolean("MARKETPLACE_MONGO_TRANSACTIONS", &cfg.MongoTransactions)

	env.str("MARKETPLACE_REDIS_ADDR", &cfg.RedisAddr)
	env.duration("MARKETPLACE_CACHE_TTL", &cfg.CacheTTL)

	env.str("MARKETPLACE_JWT_SECRET", &cfg.JWTSecret)
	env.duration("MARKETPLACE_JWT_TTL", &cfg.JWTTTL)
	env.integer("MARKETPLACE_BCRYPT_COST", &cfg.BcryptCost)

	env.integer("MARKETPLACE_RATE_LIMIT", &cfg.RateLimit)
	env.duration("MARKETPLACE_RATE_WINDOW", &cfg.RateWindow)
	env.str("MARKETPLACE_CORS_ORIGINS", &cfg.CORSOrigins)

	env.str("SENDGRID_API_KEY", &cfg.SendGridAPIKey)
	env.str("MARKETPLACE_MAIL_FROM", &cfg.MailFrom)
	env.str("TWILIO_ACCOUNT_SID", &cfg.TwilioAccountSID)
	env.str("TWILIO_AUTH_TOKEN", &cfg.TwilioAuthToken)
	env.str("TWILIO_FROM_NUMBER", &cfg.TwilioFromNumber)

	env.str("KAFKA_BROKERS", &cfg.KafkaBrokers)
	env.str("MARKETPLACE_KAFKA_TOPIC", &cfg.KafkaTopic)
	env.str("MARKETPLACE_KAFKA_STATUS_TOPIC", &cfg.KafkaStatusTopic)
	env.str("MARKETPLACE_KAFKA_DLQ_TOPIC", &cfg.KafkaDLQTopic)
	env.str("MARKETPLACE_KAFKA_CONSUMER_GROUP", &cfg.KafkaConsumerGroup)
	env.boolean("MARKETPLACE_ORDER_NOTIFICATIONS", &cfg.OrderNotifications)
	env.duration("MARKETPLACE_OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)

	env.duration("MARKETPLACE_IDEMPOTENCY_TTL", &cfg.IdempotencyTTL)
	env.duration("MARKETPLACE_IDEMPOTENCY_CLEANUP_INTERVAL", &cfg.IdempotencyCleanupInterval)
	env.integer("MARKETPLACE_IDEMPOTENCY_CLEANUP_BATCH", &cfg.IdempotencyCleanupBatchSize)

	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("MARKETPLACE_POSTGRES_DSN is required for postgres storage")
		}
	case StorageDriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return errors.New("MARKETPLACE_MONGO_URI is required for mongo storage")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.IdempotencyTTL <= 0 {
		return errors.New("MARKETPLACE_IDEMPOTENCY_TTL must be positive")
	}
	if c.OrderNotifications && strings.TrimSpace(c.KafkaConsumerGroup) == "" {
		return errors.New("MARKETPLACE_KAFKA_CONSUMER_GROUP is required for order notifications")
	}
	if c.Production() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return errors.New("MARKETPLACE_JWT_SECRET must be set in production")
	}
	return nil
}

// Production сообщает, запущено ли приложение в боевом окружении.
func (c Config) Production() bool {
	return c.Environment == environmentProduction
}

// AllowedOrigins разбирает список CORS origins.
func (c Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

// StatusTopic возвращает topic событий смены статуса; по умолчанию KafkaTopic.
func (c Config) StatusTopic() string {
	if topic := strings.TrimSpace(c.KafkaStatusTopic); topic != "" {
		return topic
	}
	return c.KafkaTopic
}

// OrderEventTopics перечисляет topics событий заказов без повторов.
func (c Config) OrderEventTopics() []string {
	if c.StatusTopic() == c.KafkaTopic {
		return []string{c.KafkaTopic}
	}
	return []string{c.KafkaTopic, c.StatusTopic()}
}

// Brokers разбирает список Kafka брокеров.
func (c Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envReader запоминает первую ошибку разбора.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) value(key string) (string, bool) {
	raw, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.value(key); ok {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.value(key)
	if !ok || r.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("parse %s: %w", key, err)
		return
	}
	*dst = n
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.value(key)
	if !ok || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("parse %s: %w", key, err)
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.value(key)
	if !ok || r.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = fmt.Errorf("parse %s: %w", key, err)
		return
	}
	*dst = d
}
