package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/service/notifications"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
)

// initKafkaProducer подключается к брокерам, если они заданы.
// Возвращает nil, nil при пустом списке брокеров.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, order events stay in outbox")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafkaProducer закрывает producer, если он был создан.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// orderEventRoutes направляет события заказов в их topics.
func orderEventRoutes(cfg Config, producer *kafka.Producer) outbox.Routes {
	return outbox.Routes{
		domain.EventOrderPlaced:        kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		domain.EventOrderStatusChanged: kafka.NewOutboxPublisher(producer, cfg.StatusTopic()),
	}
}

// initOrderNotifications подписывает рассылку писем на topics событий заказов.
// Сообщения, не обработанные за все попытки, уходят в DLQ через producer.
func initOrderNotifications(cfg Config, producer *kafka.Producer, users domain.UserRepository, email domain.EmailSender, logger *log.Entry) (*kafka.Consumer, error) {
	group, err := kafka.NewConsumerGroup(cfg.Brokers(), cfg.KafkaConsumerGroup)
	if err != nil {
		return nil, fmt.Errorf("init order notifications: %w", err)
	}

	svc := notifications.NewService(users, email, logger.WithField("component", "notifications"))
	return kafka.NewConsumer(group, cfg.OrderEventTopics(), svc.HandleMessage,
		kafka.WithConsumerLogger(logger.WithField("component", "kafka-consumer")),
		kafka.WithConsumerDLQ(producer, cfg.KafkaDLQTopic),
	), nil
}

func stopOrderNotifications(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop order notifications")
	}
}
