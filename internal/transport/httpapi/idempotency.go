package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/idempotency"
)

const (
	idempotencyKeyHeader   = "Idempotency-Key"
	idempotentReplayHeader = "Idempotent-Replayed"
)

// IdempotencyGuard хранит ответы на повторяемые запросы.
type IdempotencyGuard interface {
	Begin(ctx context.Context, key, requestHash string) (domain.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, key string, httpStatus int, body []byte)
}

var _ IdempotencyGuard = (*idempotency.Guard)(nil)

// capturingWriter дублирует тело ответа в буфер.
type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// idempotent обрабатывает заголовок Idempotency-Key; без заголовка запрос проходит как есть.
func idempotent(guard IdempotencyGuard, errs errorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyKeyHeader)
			if guard == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				var maxBytes *http.MaxBytesError
				if errors.As(err, &maxBytes) {
					errs.write(w, r, &requestError{status: http.StatusRequestEntityTooLarge, msg: "Request body too large"})
					return
				}
				errs.write(w, r, badRequest("Invalid request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := context.WithoutCancel(r.Context())
			scoped := idempotency.ScopedKey(currentUser(r).ID, key)
			record, replay, err := guard.Begin(ctx, scoped, idempotency.RequestHash(r.Method, r.URL.Path, body))
			if err != nil {
				errs.write(w, r, err)
				return
			}
			if replay {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(idempotentReplayHeader, "true")
				w.WriteHeader(record.HTTPStatus)
				_, _ = w.Write(record.ResponseBody)
				return
			}

			rec := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			guard.Complete(ctx, scoped, status, rec.body.Bytes())
		})
	}
}
