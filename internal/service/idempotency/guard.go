package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Guard хранит ответы на запросы с Idempotency-Key и отдаёт их при повторе.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
	now    func() time.Time
}

// NewGuard создаёт Guard; ttl <= 0 заменяется на DefaultIdempotencyTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = domain.DefaultIdempotencyTTL
	}
	if logger == nil {
		logger = log.WithField("component", "idempotency-guard")
	}
	return &Guard{repo: repo, ttl: ttl, logger: logger, now: time.Now}
}

// ScopedKey привязывает ключ клиента к пользователю.
func ScopedKey(userID, key string) string {
	return userID + ":" + strings.TrimSpace(key)
}

// RequestHash считает sha256 от метода, пути и тела запроса.
func RequestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin регистрирует запрос. Если по ключу уже сохранён ответ, он
// возвращается с replay=true. Запрос в обработке или ключ с другим
// телом дают ошибку класса ErrConflict.
func (g *Guard) Begin(ctx context.Context, key, requestHash string) (domain.IdempotencyRecord, bool, error) {
	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().UTC().Add(g.ttl))
	if err == nil {
		return record, false, nil
	}

	switch {
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return domain.IdempotencyRecord{}, false, domain.ErrIdempotencyHashMismatch
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		if record.Replayable() && record.HTTPStatus != 0 {
			return record, true, nil
		}
		return domain.IdempotencyRecord{}, false, domain.ErrIdempotencyKeyAlreadyExists
	case errors.Is(err, domain.ErrValidation):
		return domain.IdempotencyRecord{}, false, err
	default:
		g.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to create idempotency record")
		return domain.IdempotencyRecord{}, false, fmt.Errorf("create idempotency record: %w", err)
	}
}

// Complete сохраняет ответ: 2xx/3xx как done, остальные как failed.
func (g *Guard) Complete(ctx context.Context, key string, httpStatus int, body []byte) {
	mark := g.repo.MarkDone
	if httpStatus >= http.StatusBadRequest {
		mark = g.repo.MarkFailed
	}
	if err := mark(ctx, key, body, httpStatus); err != nil {
		g.logger.WithError(err).WithFields(log.Fields{
			"idempotency_key": key,
			"http_status":     httpStatus,
		}).Warn("failed to store idempotent response")
	}
}
