package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSweepInterval = 10 * time.Minute
	defaultSweepBatch    = 500
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_checkout_idempotency_sweeps_total",
		Help: "Sweeps of expired checkout idempotency keys, by result.",
	}, []string{"result"})
	sweptKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_checkout_idempotency_keys_expired_total",
		Help: "Checkout idempotency keys removed after their TTL.",
	})
)

// Sweep удаляет ключи POST /orders, чей TTL истёк к текущему моменту,
// порциями по batch записей. Возвращает число удалённых ключей.
func (g *Guard) Sweep(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	cutoff := g.now().UTC()

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		deleted, err := g.repo.DeleteExpired(ctx, cutoff, batch)
		if err != nil {
			return total, err
		}
		total += deleted
		sweptKeys.Add(float64(deleted))
		if deleted < batch {
			return total, nil
		}
	}
}

// Sweeper периодически вызывает Guard.Sweep.
type Sweeper struct {
	guard    *Guard
	interval time.Duration
	batch    int
	logger   *log.Entry
}

// NewSweeper создаёт фоновую очистку ключей guard; интервал не превышает TTL ключей.
func NewSweeper(guard *Guard, interval time.Duration, batch int) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if guard != nil && interval > guard.ttl {
		interval = guard.ttl
	}
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	var logger *log.Entry
	if guard != nil {
		logger = guard.logger.WithField("ttl", guard.ttl.String())
	}
	return &Sweeper{guard: guard, interval: interval, batch: batch, logger: logger}
}

// Interval возвращает фактический период очистки.
func (s *Sweeper) Interval() time.Duration { return s.interval }

// Run очищает ключи сразу и затем каждые Interval до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.guard == nil || s.guard.repo == nil {
		log.WithField("component", "idempotency-guard").Warn("checkout key sweeper disabled: no repository")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	deleted, err := s.guard.Sweep(ctx, s.batch)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		sweepRuns.WithLabelValues("error").Inc()
		s.logger.WithError(err).WithField("deleted", deleted).Warn("checkout idempotency sweep failed")
		return
	}

	sweepRuns.WithLabelValues("ok").Inc()
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("expired checkout idempotency keys removed")
	}
}
