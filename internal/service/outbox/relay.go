// Package outbox переносит события заказов из transactional outbox в брокер.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
	defaultMaxAttempts  = 3
	defaultRetryDelay   = 50 * time.Millisecond
)

// ErrNoRoute — для типа события не настроен publisher.
var ErrNoRoute = errors.New("no route for order event type")

var (
	relayedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_order_events_relayed_total",
		Help: "Order events taken from the outbox, by event type and outcome.",
	}, []string{"event_type", "result"})
	pendingEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_order_events_pending",
		Help: "Order events waiting in the outbox.",
	})
	oldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_order_events_oldest_pending_age_seconds",
		Help: "Age of the oldest order event waiting in the outbox.",
	})
)

// Routes сопоставляет тип события заказа с publisher'ом его topic.
type Routes map[string]domain.OutboxPublisher

// SingleTopic направляет все события заказа в один publisher.
func SingleTopic(publisher domain.OutboxPublisher) Routes {
	return Routes{
		domain.EventOrderPlaced:        publisher,
		domain.EventOrderStatusChanged: publisher,
	}
}

// Report — итог одного прохода по outbox.
type Report struct {
	Sent       int
	Failed     int
	Unroutable int
	// Held — события заказов, у которых более раннее событие не ушло в этом проходе.
	Held int
}

type config struct {
	logger     *log.Entry
	dlq        domain.OutboxPublisher
	interval   time.Duration
	batchSize  int
	attempts   int
	retryDelay time.Duration
	now        func() time.Time
}

// Option настраивает Relay.
type Option func(*config)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(c *config) { c.logger = logger }
}

// WithDLQPublisher задаёт publisher для событий, которые не удалось доставить.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(c *config) { c.dlq = publisher }
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(c *config) { c.interval = interval }
}

// WithBatchSize ограничивает число событий за один проход.
func WithBatchSize(size int) Option {
	return func(c *config) { c.batchSize = size }
}

// WithMaxAttempts задаёт число попыток публикации одного события.
func WithMaxAttempts(attempts int) Option {
	return func(c *config) { c.attempts = attempts }
}

// WithRetryBaseDelay задаёт начальную паузу между попытками; пауза удваивается.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(c *config) { c.retryDelay = delay }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Relay публикует pending-события заказов, сохранённые при оформлении
// и смене статуса, каждое в topic своего типа.
type Relay struct {
	repo   domain.OutboxRepository
	routes Routes
	config
}

// NewRelay создаёт relay с маршрутами по типам событий.
func NewRelay(repo domain.OutboxRepository, routes Routes, options ...Option) *Relay {
	cfg := config{
		interval:   defaultPollInterval,
		batchSize:  defaultBatchSize,
		attempts:   defaultMaxAttempts,
		retryDelay: defaultRetryDelay,
	}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.WithField("component", "order-events-relay")
	}
	if cfg.interval <= 0 {
		cfg.interval = defaultPollInterval
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = defaultBatchSize
	}
	if cfg.attempts <= 0 {
		cfg.attempts = defaultMaxAttempts
	}
	if cfg.retryDelay < 0 {
		cfg.retryDelay = 0
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	active := make(Routes, len(routes))
	for eventType, publisher := range routes {
		if publisher != nil {
			active[eventType] = publisher
		}
	}
	return &Relay{repo: repo, routes: active, config: cfg}
}

// Run опрашивает outbox до отмены ctx.
func (r *Relay) Run(ctx context.Context) {
	if r.repo == nil || len(r.routes) == 0 {
		r.logger.Warn("order events relay disabled: no outbox or routes")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if report := r.ProcessOnce(ctx); report.Failed+report.Unroutable > 0 {
			r.logger.WithFields(log.Fields{
				"sent":       report.Sent,
				"failed":     report.Failed,
				"unroutable": report.Unroutable,
				"held":       report.Held,
			}).Warn("order events relayed with failures")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce публикует одну пачку pending-событий.
// События одного заказа уходят в порядке постановки: после неудачи
// остальные события этого заказа остаются pending до следующего прохода.
func (r *Relay) ProcessOnce(ctx context.Context) Report {
	var report Report
	if ctx.Err() != nil {
		return report
	}
	defer r.refreshBacklog(ctx)

	events, err := r.repo.PullPending(ctx, r.batchSize)
	if err != nil {
		r.logger.WithError(err).Warn("failed to pull pending order events")
		return report
	}

	blocked := make(map[string]struct{})
	for _, event := range events {
		if ctx.Err() != nil {
			return report
		}
		if _, ok := blocked[event.AggregateID]; ok {
			report.Held++
			continue
		}

		entry := r.eventLogger(event)
		publisher, ok := r.routes[event.EventType]
		if !ok {
			report.Unroutable++
			relayedEvents.WithLabelValues(event.EventType, "unroutable").Inc()
			entry.Error("order event has no route")
			r.fail(ctx, entry, event, fmt.Errorf("%w %q", ErrNoRoute, event.EventType))
			continue
		}

		if err := r.publish(ctx, publisher, event); err != nil {
			if ctx.Err() != nil {
				return report
			}
			report.Failed++
			blocked[event.AggregateID] = struct{}{}
			relayedEvents.WithLabelValues(event.EventType, "failed").Inc()
			entry.WithError(err).Error("order event not delivered")
			r.fail(ctx, entry, event, err)
			continue
		}

		report.Sent++
		relayedEvents.WithLabelValues(event.EventType, "sent").Inc()
		if err := r.repo.MarkSent(ctx, event.ID); err != nil {
			entry.WithError(err).Warn("failed to mark order event as sent")
		}
		entry.Debug("order event published")
	}
	return report
}

func (r *Relay) publish(ctx context.Context, publisher domain.OutboxPublisher, event domain.OutboxMessage) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err = publisher.Publish(event); err == nil {
			return nil
		}
		if attempt == r.attempts {
			break
		}
		relayedEvents.WithLabelValues(event.EventType, "retry").Inc()

		if delay := r.backoff(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("publish %s after %d attempts: %w", event.EventType, r.attempts, err)
}

// fail отправляет событие в DLQ и снимает его с очереди.
func (r *Relay) fail(ctx context.Context, entry *log.Entry, event domain.OutboxMessage, cause error) {
	if err := r.deadLetter(event, cause); err != nil {
		relayedEvents.WithLabelValues(event.EventType, "dlq_failed").Inc()
		entry.WithError(err).Warn("failed to dead-letter order event")
	}
	if err := r.repo.MarkFailed(ctx, event.ID); err != nil {
		entry.WithError(err).Warn("failed to mark order event as failed")
	}
}

func (r *Relay) backoff(attempt int) time.Duration {
	if r.retryDelay <= 0 {
		return 0
	}
	const ceiling = time.Minute
	delay := r.retryDelay
	for i := 1; i < attempt; i++ {
		if delay >= ceiling/2 {
			return ceiling
		}
		delay *= 2
	}
	return delay
}

func (r *Relay) refreshBacklog(ctx context.Context) {
	stats, err := r.repo.Stats(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("failed to read outbox backlog")
		return
	}
	pendingEvents.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		oldestPendingAge.Set(0)
		return
	}
	oldestPendingAge.Set(max(r.now().Sub(stats.OldestPendingAt).Seconds(), 0))
}

// orderRef — поля payload, по которым события заказа ищут в логах.
type orderRef struct {
	OrderNumber string `json:"order_number"`
	BatchID     string `json:"batch_id"`
	BuyerID     string `json:"buyer_id"`
}

func (r *Relay) eventLogger(event domain.OutboxMessage) *log.Entry {
	fields := log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
		"order_id":   event.AggregateID,
	}
	var ref orderRef
	if json.Unmarshal(event.Payload, &ref) == nil {
		if ref.OrderNumber != "" {
			fields["order_number"] = ref.OrderNumber
		}
		if ref.BatchID != "" {
			fields["batch_id"] = ref.BatchID
		}
		if ref.BuyerID != "" {
			fields["buyer_id"] = ref.BuyerID
		}
	}
	return r.logger.WithFields(fields)
}

// deadLetter — запись DLQ; формат читает kafka.DecodeDeadLetter.
type deadLetter struct {
	OutboxID       string          `json:"outbox_id"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    string          `json:"aggregate_id"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload"`
	PublishError   string          `json:"publish_error"`
	DLQPublishedAt time.Time       `json:"dlq_published_at"`
}

func (r *Relay) deadLetter(event domain.OutboxMessage, cause error) error {
	if r.dlq == nil {
		return nil
	}

	payload := json.RawMessage("null")
	if json.Valid(event.Payload) {
		payload = event.Payload
	}
	body, err := json.Marshal(deadLetter{
		OutboxID:       event.ID,
		AggregateType:  event.AggregateType,
		AggregateID:    event.AggregateID,
		EventType:      event.EventType,
		Payload:        payload,
		PublishError:   cause.Error(),
		DLQPublishedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	letter := event
	letter.Payload = body
	if err := r.dlq.Publish(letter); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
