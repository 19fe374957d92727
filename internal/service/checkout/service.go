package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// PlaceOrderInput — данные покупателя для оформления корзины.
type PlaceOrderInput struct {
	Address       domain.Address
	PaymentMethod string
}

// Placement содержит по заказу на каждого продавца и общую сумму.
type Placement struct {
	BatchID          string
	Orders           []domain.Order
	TotalAmountMinor int64
	Currency         string
}

// Options задаёт необязательные зависимости Service.
type Options struct {
	Logger     *log.Entry
	Metrics    *metrics.CheckoutMetrics
	Transactor domain.Transactor
	Outbox     domain.OutboxRepository
	Charges    ChargesPolicy
	Clock      func() time.Time
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithMetrics задаёт метрики оформления.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// WithTransactor делает сохранение заказов и очистку корзины атомарными.
func WithTransactor(tx domain.Transactor) Option {
	return func(o *Options) { o.Transactor = tx }
}

// WithOutbox включает запись событий order.placed.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(o *Options) { o.Outbox = repo }
}

// WithCharges задаёт расчёт налога и доставки.
func WithCharges(policy ChargesPolicy) Option {
	return func(o *Options) { o.Charges = policy }
}

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) { o.Clock = clock }
}

// Service оформляет корзину покупателя в заказы продавцов.
type Service struct {
	carts     domain.CartRepository
	products  ProductReader
	orders    domain.OrderRepository
	outbox    domain.OutboxRepository
	tx        domain.Transactor
	atomic    bool
	assembler *Assembler
	metrics   *metrics.CheckoutMetrics
	logger    *log.Entry
	now       func() time.Time
}

// NewService создаёт сервис оформления заказов.
func NewService(carts domain.CartRepository, products ProductReader, orders domain.OrderRepository, options ...Option) *Service {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	tx := opts.Transactor
	atomic := tx != nil
	if tx == nil {
		tx = domain.NoopTransactor
	}

	return &Service{
		carts:     carts,
		products:  products,
		orders:    orders,
		outbox:    opts.Outbox,
		tx:        tx,
		atomic:    atomic,
		assembler: NewAssembler(opts.Charges),
		metrics:   opts.Metrics,
		logger:    logger,
		now:       clock,
	}
}

// Place оформляет корзину покупателя.
//
// Заказы и очистка корзины выполняются внутри Transactor. Без транзакции
// уже сохранённые заказы остаются при ошибке, а корзина не очищается.
func (s *Service) Place(ctx context.Context, buyerID string, in PlaceOrderInput) (Placement, error) {
	done := s.metrics.Started()

	placement, err := s.place(ctx, buyerID, in)
	switch {
	case err == nil:
		done(metrics.CheckoutResultPlaced)
		s.metrics.RecordSubOrders(len(placement.Orders))
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		done(metrics.CheckoutResultRejected)
	default:
		done(metrics.CheckoutResultFailed)
	}
	return placement, err
}

func (s *Service) place(ctx context.Context, buyerID string, in PlaceOrderInput) (Placement, error) {
	cart, err := s.carts.Get(ctx, buyerID)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return Placement{}, domain.ErrCartEmpty
		}
		return Placement{}, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return Placement{}, domain.ErrCartEmpty
	}
	if !in.Address.Complete() {
		return Placement{}, domain.ErrDeliveryAddressIncomplete
	}

	partitions, err := Split(ctx, cart.Items, s.products)
	if err != nil {
		return Placement{}, err
	}

	now := s.now().UTC()
	assembleIn := AssembleInput{
		BatchID:       NewBatchID(),
		BuyerID:       buyerID,
		Address:       in.Address,
		PaymentMethod: in.PaymentMethod,
		Now:           now,
	}

	placement := Placement{BatchID: assembleIn.BatchID, Orders: make([]domain.Order, 0, len(partitions))}
	for _, p := range partitions {
		order := s.assembler.Assemble(assembleIn, p)
		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return Placement{}, errors.Join(errs...)
		}
		placement.Orders = append(placement.Orders, order)
		if placement.TotalAmountMinor, err = domain.AddMinor(placement.TotalAmountMinor, order.Pricing.TotalMinor); err != nil {
			return Placement{}, err
		}
	}
	placement.Currency = placement.Orders[0].Currency

	var persisted []string
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		persisted = persisted[:0]
		for _, order := range placement.Orders {
			if err := s.orders.Create(ctx, order); err != nil {
				return fmt.Errorf("create order %s: %w", order.OrderNumber, err)
			}
			persisted = append(persisted, order.OrderNumber)
			if err := s.enqueuePlaced(ctx, order); err != nil {
				return err
			}
		}

		cart.Clear()
		cart.UpdatedAt = now
		if err := s.carts.Save(ctx, cart); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		if !s.atomic && len(persisted) > 0 {
			s.metrics.RecordPartialFailure()
			s.logger.WithError(err).WithFields(log.Fields{
				"buyer_id":         buyerID,
				"batch_id":         placement.BatchID,
				"persisted_orders": persisted,
			}).Error("checkout failed after persisting orders")
		}
		return Placement{}, err
	}

	for _, order := range placement.Orders {
		s.logger.WithFields(log.Fields{
			"order_number": order.OrderNumber,
			"buyer_id":     order.BuyerID,
			"seller_id":    order.SellerID,
			"total_minor":  order.Pricing.TotalMinor,
		}).Info("order placed")
	}

	return placement, nil
}

type orderPlacedPayload struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BatchID     string    `json:"batch_id"`
	BuyerID     string    `json:"buyer_id"`
	SellerID    string    `json:"seller_id"`
	Status      string    `json:"status"`
	TotalMinor  int64     `json:"total_minor"`
	Currency    string    `json:"currency"`
	ItemCount   int       `json:"item_count"`
	PlacedAt    time.Time `json:"placed_at"`
}

func (s *Service) enqueuePlaced(ctx context.Context, order domain.Order) error {
	if s.outbox == nil {
		return nil
	}

	payload, err := json.Marshal(orderPlacedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BatchID:     order.BatchID,
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		Status:      string(order.Status),
		TotalMinor:  order.Pricing.TotalMinor,
		Currency:    order.Currency,
		ItemCount:   len(order.Items),
		PlacedAt:    order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}

	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     domain.EventOrderPlaced,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue order placed event: %w", err)
	}
	return nil
}
