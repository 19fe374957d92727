package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func TestDecodeDeadLetter(t *testing.T) {
	letter := map[string]any{
		"outbox_id":      "outbox-1",
		"aggregate_type": "order",
		"aggregate_id":   "order-1",
		"event_type":     "order.placed",
		"payload":        map[string]any{"orderNumber": "ORD-ABC-seller-1"},
		"publish_error":  "kafka: broker not available",
	}
	rawLetter, err := json.Marshal(letter)
	require.NoError(t, err)

	value, err := json.Marshal(NewEnvelope(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.placed",
		Payload:       rawLetter,
	}, time.Now()))
	require.NoError(t, err)

	msg, err := DecodeDeadLetter(value)
	require.NoError(t, err)
	require.Equal(t, "outbox-1", msg.ID)
	require.Equal(t, "order-1", msg.AggregateID)
	require.Equal(t, "order.placed", msg.EventType)
	require.JSONEq(t, `{"orderNumber":"ORD-ABC-seller-1"}`, string(msg.Payload))
}

func TestDecodeDeadLetter_FallsBackToEnvelopeFields(t *testing.T) {
	value := []byte(`{"id":"outbox-2","aggregate_type":"order","aggregate_id":"order-2","event_type":"order.status_changed","payload":{"payload":{"status":"shipped"}}}`)

	msg, err := DecodeDeadLetter(value)
	require.NoError(t, err)
	require.Equal(t, "outbox-2", msg.ID)
	require.Equal(t, "order-2", msg.AggregateID)
	require.Equal(t, "order.status_changed", msg.EventType)
}

func TestDecodeDeadLetter_Rejects(t *testing.T) {
	tests := []struct {
		name          string
		value         string
		notDeadLetter bool
	}{
		{name: "not json", value: `plain text`, notDeadLetter: true},
		{name: "no payload", value: `{"id":"x"}`, notDeadLetter: true},
		{name: "null payload", value: `{"id":"x","payload":null}`, notDeadLetter: true},
		{name: "payload is not an object", value: `{"id":"x","payload":"oops"}`},
		{name: "original payload missing", value: `{"id":"x","payload":{"outbox_id":"x"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDeadLetter([]byte(tc.value))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrNotDeadLetter); got != tc.notDeadLetter {
				t.Fatalf("errors.Is(err, ErrNotDeadLetter) = %v, want %v (err: %v)", got, tc.notDeadLetter, err)
			}
		})
	}
}
