package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func enqueue(t *testing.T, repo domain.OutboxRepository, orderID, eventType string) domain.OutboxMessage {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"order_id":     orderID,
		"order_number": "ORD-ABC123-" + orderID,
		"batch_id":     "ORD-ABC123",
		"buyer_id":     "buyer-1",
	})
	require.NoError(t, err)
	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderID,
		EventType:     eventType,
		Payload:       payload,
	})
	require.NoError(t, err)
	return msg
}

func TestRelay_RoutesByEventType(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	placed := enqueue(t, repo, "order-1", domain.EventOrderPlaced)
	changed := enqueue(t, repo, "order-1", domain.EventOrderStatusChanged)
	other := enqueue(t, repo, "order-2", domain.EventOrderPlaced)
	placedTopic := &stubPublisher{}
	statusTopic := &stubPublisher{}

	relay := NewRelay(repo, Routes{
		domain.EventOrderPlaced:        placedTopic,
		domain.EventOrderStatusChanged: statusTopic,
	}, WithRetryBaseDelay(0))
	report := relay.ProcessOnce(context.Background())

	require.Equal(t, Report{Sent: 3}, report)
	require.Empty(t, repo.AllPending())
	require.Equal(t, []string{placed.ID, other.ID}, placedTopic.publishedIDs())
	require.Equal(t, []string{changed.ID}, statusTopic.publishedIDs())
}

func TestRelay_SingleTopic(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	first := enqueue(t, repo, "order-1", domain.EventOrderPlaced)
	second := enqueue(t, repo, "order-1", domain.EventOrderStatusChanged)
	publisher := &stubPublisher{}

	report := NewRelay(repo, SingleTopic(publisher)).ProcessOnce(context.Background())

	require.Equal(t, 2, report.Sent)
	require.Equal(t, []string{first.ID, second.ID}, publisher.publishedIDs())
}

func TestRelay_RespectsBatchSize(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	for _, id := range []string{"o-1", "o-2", "o-3", "o-4", "o-5"} {
		enqueue(t, repo, id, domain.EventOrderPlaced)
	}
	publisher := &stubPublisher{}

	NewRelay(repo, SingleTopic(publisher), WithBatchSize(2)).ProcessOnce(context.Background())

	require.Equal(t, 2, publisher.calls())
	require.Len(t, repo.AllPending(), 3)
}

func TestRelay_DeadLettersAfterRetries(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	msg := enqueue(t, repo, "order-2", domain.EventOrderStatusChanged)
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	dlq := &stubPublisher{}
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	relay := NewRelay(repo, SingleTopic(publisher),
		WithDLQPublisher(dlq),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
		WithClock(func() time.Time { return now }),
	)
	report := relay.ProcessOnce(context.Background())

	require.Equal(t, Report{Failed: 1}, report)
	require.Equal(t, 3, publisher.calls())
	require.Empty(t, repo.AllPending(), "failed event must leave pending state")
	require.Equal(t, 1, dlq.calls())

	var letter deadLetter
	require.NoError(t, json.Unmarshal(dlq.last().Payload, &letter))
	require.Equal(t, msg.ID, letter.OutboxID)
	require.Equal(t, domain.EventOrderStatusChanged, letter.EventType)
	require.Contains(t, letter.PublishError, "broker unavailable")
	require.Contains(t, string(letter.Payload), `"batch_id":"ORD-ABC123"`)
	require.True(t, letter.DLQPublishedAt.Equal(now))
}

func TestRelay_UnroutableEventSkipsRetries(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order-3", domain.EventOrderStatusChanged)
	placedTopic := &stubPublisher{}
	dlq := &stubPublisher{}

	relay := NewRelay(repo, Routes{domain.EventOrderPlaced: placedTopic}, WithDLQPublisher(dlq))
	report := relay.ProcessOnce(context.Background())

	require.Equal(t, Report{Unroutable: 1}, report)
	require.Zero(t, placedTopic.calls())
	require.Empty(t, repo.AllPending())

	var letter deadLetter
	require.NoError(t, json.Unmarshal(dlq.last().Payload, &letter))
	require.Contains(t, letter.PublishError, ErrNoRoute.Error())
}

func TestRelay_HoldsLaterEventsOfFailedOrder(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order-4", domain.EventOrderPlaced)
	held := enqueue(t, repo, "order-4", domain.EventOrderStatusChanged)
	other := enqueue(t, repo, "order-5", domain.EventOrderStatusChanged)
	placedTopic := &stubPublisher{err: errors.New("topic offline")}
	statusTopic := &stubPublisher{}

	relay := NewRelay(repo, Routes{
		domain.EventOrderPlaced:        placedTopic,
		domain.EventOrderStatusChanged: statusTopic,
	}, WithMaxAttempts(1))
	report := relay.ProcessOnce(context.Background())

	require.Equal(t, Report{Sent: 1, Failed: 1, Held: 1}, report)
	require.Equal(t, []string{other.ID}, statusTopic.publishedIDs())
	require.Equal(t, []domain.OutboxMessage{held}, repo.AllPending())

	// следующий проход доставляет отложенное событие
	report = relay.ProcessOnce(context.Background())
	require.Equal(t, Report{Sent: 1}, report)
	require.Equal(t, []string{other.ID, held.ID}, statusTopic.publishedIDs())
}

func TestRelay_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order-6", domain.EventOrderPlaced)
	publisher := &stubPublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}

	report := NewRelay(repo, SingleTopic(publisher), WithRetryBaseDelay(0), WithMaxAttempts(3)).ProcessOnce(context.Background())

	require.Equal(t, Report{Sent: 1}, report)
	require.Equal(t, 3, publisher.calls())
	require.Empty(t, repo.AllPending())
}

func TestRelay_CancelledContext(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "order-7", domain.EventOrderPlaced)
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewRelay(repo, SingleTopic(publisher)).ProcessOnce(ctx)

	require.Zero(t, publisher.calls())
	require.Len(t, repo.AllPending(), 1)
}

func TestRelay_Backoff(t *testing.T) {
	t.Parallel()

	relay := NewRelay(nil, nil, WithRetryBaseDelay(10*time.Millisecond))
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 10 * time.Millisecond},
		{attempt: 2, want: 20 * time.Millisecond},
		{attempt: 4, want: 80 * time.Millisecond},
		{attempt: 40, want: time.Minute},
	}
	for _, tc := range tests {
		if got := relay.backoff(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: backoff %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRelay_EventLoggerFields(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	msg := enqueue(t, repo, "order-8", domain.EventOrderPlaced)
	entry := NewRelay(repo, nil).eventLogger(msg)

	require.Equal(t, "ORD-ABC123", entry.Data["batch_id"])
	require.Equal(t, "buyer-1", entry.Data["buyer_id"])
	require.Equal(t, "ORD-ABC123-order-8", entry.Data["order_number"])
	require.Equal(t, "order-8", entry.Data["order_id"])

	msg.Payload = []byte("not json")
	entry = NewRelay(repo, nil).eventLogger(msg)
	require.NotContains(t, entry.Data, "batch_id")
}

func TestRelay_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	relay := NewRelay(memory.NewOutboxRepository(), SingleTopic(&stubPublisher{}), WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop on context cancel")
	}
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
	callCount      int
}

func (s *stubPublisher) Publish(event domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.published = append(s.published, event)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) publishedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.published))
	for _, msg := range s.published {
		ids = append(ids, msg.ID)
	}
	return ids
}

func (s *stubPublisher) last() domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[len(s.published)-1]
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)
