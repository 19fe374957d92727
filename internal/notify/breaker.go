// Package notify доставляет письма и SMS через внешних провайдеров.
package notify

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// BreakerSettings — пороги circuit breaker провайдера.
type BreakerSettings struct {
	// ConsecutiveFailures подряд идущих ошибок размыкают цепь.
	ConsecutiveFailures uint32
	// OpenTimeout: сколько цепь остаётся разомкнутой.
	OpenTimeout time.Duration
	// HalfOpenRequests ограничивает пробные запросы в полуоткрытом состоянии.
	HalfOpenRequests uint32
}

// DefaultBreakerSettings возвращает значения по умолчанию.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

type breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

func newBreaker(name string, settings BreakerSettings, logger *log.Entry) *breaker {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}
	threshold := settings.ConsecutiveFailures

	return &breaker{cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("notification circuit breaker state changed")
		},
	})}
}

func (b *breaker) run(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.ErrNotificationSuspended
	}
	return err
}
