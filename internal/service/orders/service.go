// Package orders реализует чтение заказов и смену статуса продавцом.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// ListQuery — параметры выборки заказов из запроса.
type ListQuery struct {
	BuyerID  string
	SellerID string
	Status   string
	Page     domain.Page
}

// Service обслуживает заказы после оформления.
type Service struct {
	orders domain.OrderRepository
	outbox domain.OutboxRepository
	tx     domain.Transactor
	logger *log.Entry
	now    func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOutbox включает событие order.status_changed.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(s *Service) { s.outbox = repo }
}

// WithTransactor объединяет сохранение статуса и запись события.
func WithTransactor(tx domain.Transactor) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewService создаёт сервис заказов.
func NewService(orders domain.OrderRepository, opts ...Option) *Service {
	s := &Service{
		orders: orders,
		tx:     domain.NoopTransactor,
		logger: log.WithField("component", "orders"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List возвращает заказы, видимые вызывающему.
// Без фильтров по участникам возвращаются покупки самого вызывающего;
// чужие buyerId и sellerId доступны только администратору.
func (s *Service) List(ctx context.Context, caller domain.User, q ListQuery) ([]domain.Order, domain.Pagination, error) {
	filter := domain.OrderFilter{
		BuyerID:  strings.TrimSpace(q.BuyerID),
		SellerID: strings.TrimSpace(q.SellerID),
	}
	if raw := strings.TrimSpace(q.Status); raw != "" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			return nil, domain.Pagination{}, err
		}
		filter.Status = status
	}

	if filter.BuyerID == "" && filter.SellerID == "" {
		filter.BuyerID = caller.ID
	}
	if !caller.IsAdmin() {
		if filter.BuyerID != "" && filter.BuyerID != caller.ID {
			return nil, domain.Pagination{}, domain.ErrOrderListDenied
		}
		if filter.SellerID != "" && filter.SellerID != caller.ID {
			return nil, domain.Pagination{}, domain.ErrOrderListDenied
		}
	}

	page := q.Page.Normalize()
	list, total, err := s.orders.List(ctx, filter, page)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list orders: %w", err)
	}
	return list, domain.NewPagination(page, total), nil
}

// Get возвращает заказ покупателю или продавцу.
func (s *Service) Get(ctx context.Context, caller domain.User, id string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.HasParty(caller.ID) {
		return domain.Order{}, domain.ErrOrderAccessDenied
	}
	return order, nil
}

// UpdateStatus переводит заказ в новый статус; доступно только продавцу заказа.
func (s *Service) UpdateStatus(ctx context.Context, caller domain.User, id, rawStatus string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if caller.ID == "" || order.SellerID != caller.ID {
		return domain.Order{}, domain.ErrOrderUpdateDenied
	}

	next, err := domain.ParseOrderStatus(rawStatus)
	if err != nil {
		return domain.Order{}, err
	}
	previous := order.Status
	if err := order.TransitionTo(next, s.now().UTC()); err != nil {
		return domain.Order{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Save(ctx, order); err != nil {
			return err
		}
		return s.enqueueStatusChanged(ctx, order, previous)
	})
	if err != nil {
		if domain.IsVersionConflict(err) {
			s.logger.WithField("order_id", order.ID).Warn("order status update lost a concurrent race")
		}
		return domain.Order{}, err
	}
	order.Version++

	s.logger.WithFields(log.Fields{
		"order_id":  order.ID,
		"seller_id": order.SellerID,
		"from":      previous,
		"to":        order.Status,
	}).Info("order status updated")

	return order, nil
}

type statusChangedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BatchID     string    `json:"batch_id"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ChangedAt   time.Time `json:"changed_at"`
}

func (s *Service) enqueueStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) error {
	if s.outbox == nil {
		return nil
	}
	payload, err := json.Marshal(statusChangedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BatchID:     order.BatchID,
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		From:        string(previous),
		To:          string(order.Status),
		ChangedAt:   order.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal status changed event: %w", err)
	}
	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     domain.EventOrderStatusChanged,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue status changed event: %w", err)
	}
	return nil
}
