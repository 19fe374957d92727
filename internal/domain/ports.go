package domain

import (
	"context"
	"time"
)

// Transactor выполняет fn в рамках одной транзакции хранилища.
// Репозитории, вызванные с переданным ctx, работают внутри неё.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactorFunc позволяет использовать функцию как Transactor.
type TransactorFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// WithinTx вызывает f(ctx, fn).
func (f TransactorFunc) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoopTransactor вызывает fn без транзакции: уже выполненные шаги не откатываются.
var NoopTransactor Transactor = TransactorFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})

// EmailSender доставляет письма.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender доставляет SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// PasswordHasher хеширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare возвращает ErrInvalidCredentials при несовпадении.
	Compare(hash, password string) error
}

// TokenIssuer выпускает и проверяет токены доступа.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	// Parse возвращает идентификатор пользователя или ErrTokenInvalid.
	Parse(token string) (string, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
