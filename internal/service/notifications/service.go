// Package notifications уведомляет покупателей по событиям заказов из Kafka.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
)

// ErrMalformedEvent возвращается для сообщений, которые не удалось разобрать.
var ErrMalformedEvent = errors.New("malformed order event")

type orderPlaced struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     string    `json:"buyer_id"`
	TotalMinor  int64     `json:"total_minor"`
	Currency    string    `json:"currency"`
	ItemCount   int       `json:"item_count"`
	PlacedAt    time.Time `json:"placed_at"`
}

type statusChanged struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	BuyerID     string `json:"buyer_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// Service рассылает письма о заказах.
type Service struct {
	users  domain.UserRepository
	email  domain.EmailSender
	logger *log.Entry
}

// NewService создаёт сервис уведомлений.
func NewService(users domain.UserRepository, email domain.EmailSender, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "notifications")
	}
	return &Service{users: users, email: email, logger: logger}
}

// HandleMessage разбирает конверт из topic событий заказов.
func (s *Service) HandleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var envelope kafka.Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return s.Handle(ctx, envelope)
}

// Handle отправляет письмо по событию; неизвестные события пропускаются.
func (s *Service) Handle(ctx context.Context, envelope kafka.Envelope) error {
	switch envelope.EventType {
	case domain.EventOrderPlaced:
		var event orderPlaced
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		subject := fmt.Sprintf("Order %s placed", event.OrderNumber)
		body := fmt.Sprintf("Your order %s with %d item(s) was placed. Total: %s.",
			event.OrderNumber, event.ItemCount, formatAmount(event.TotalMinor, event.Currency))
		return s.notifyBuyer(ctx, event.BuyerID, event.OrderID, subject, body)
	case domain.EventOrderStatusChanged:
		var event statusChanged
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		subject := fmt.Sprintf("Order %s is %s", event.OrderNumber, event.To)
		body := fmt.Sprintf("The status of your order %s changed from %s to %s.",
			event.OrderNumber, event.From, event.To)
		return s.notifyBuyer(ctx, event.BuyerID, event.OrderID, subject, body)
	default:
		s.logger.WithField("event_type", envelope.EventType).Debug("event skipped")
		return nil
	}
}

func (s *Service) notifyBuyer(ctx context.Context, buyerID, orderID, subject, body string) error {
	entry := s.logger.WithFields(log.Fields{"buyer_id": buyerID, "order_id": orderID})
	if buyerID == "" {
		return fmt.Errorf("%w: buyer_id is empty", ErrMalformedEvent)
	}

	user, err := s.users.Get(ctx, buyerID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// аккаунт удалён после оформления заказа
		entry.Warn("buyer not found, notification skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load buyer: %w", err)
	}

	if err := s.email.SendEmail(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send order notification: %w", err)
	}
	entry.WithField("subject", subject).Info("order notification sent")
	return nil
}

// formatAmount печатает сумму в минорных единицах: 12345, "USD" -> "123.45 USD".
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return strings.TrimSpace(fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency))
}
