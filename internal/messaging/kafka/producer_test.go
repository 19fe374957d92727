package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func newMockProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	t.Helper()
	mockProducer := mocks.NewSyncProducer(t, nil)
	return NewProducerFromSync(mockProducer, log.WithField("component", "kafka-producer-test")), mockProducer
}

func TestProducer_PublishJSON(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicOrderEvents {
			t.Errorf("unexpected topic %q", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "order-1" {
			t.Errorf("unexpected key %q", key)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != HeaderEventType {
			t.Errorf("unexpected headers %+v", msg.Headers)
		}
		return nil
	})

	err := producer.PublishJSON(TopicOrderEvents, "order-1", map[string]string{"status": "placed"}, map[string]string{HeaderEventType: "order.placed"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishJSON_Error(t *testing.T) {
	producer, mockProducer := newMockProducer(t)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	if err := producer.PublishJSON(TopicOrderEvents, "order-1", struct{}{}, nil); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := producer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishJSON_MarshalError(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	if err := producer.PublishJSON(TopicOrderEvents, "k", make(chan int), nil); err == nil {
		t.Fatal("expected marshal error")
	}
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
