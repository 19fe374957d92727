package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/auth"
	"github.com/vladislavdragonenkov/marketplace/internal/service/cart"
	"github.com/vladislavdragonenkov/marketplace/internal/service/catalog"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
	"github.com/vladislavdragonenkov/marketplace/internal/service/orders"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) byType(eventType string) []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.OutboxMessage
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// OrderLifecycleTestSuite проверяет путь заказа от корзины до публикации событий.
type OrderLifecycleTestSuite struct {
	suite.Suite

	auth      *auth.Service
	catalog   *catalog.Service
	cart      *cart.Service
	checkout  *checkout.Service
	orders    *orders.Service
	relay     *outbox.Relay
	publisher *recordingPublisher
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	users := memory.NewUserRepository()
	products := memory.NewProductRepository()
	carts := memory.NewCartRepository()
	orderRepo := memory.NewOrderRepository()
	outboxRepo := memory.NewOutboxRepository()

	tokens, err := auth.NewJWTIssuer("integration-secret", 0)
	s.Require().NoError(err)

	s.auth = auth.NewService(users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, logger)
	s.catalog = catalog.NewService(memory.NewCategoryRepository(), products, nil, logger)
	s.cart = cart.NewService(carts, s.catalog, logger)
	s.checkout = checkout.NewService(carts, s.catalog, orderRepo,
		checkout.WithLogger(logger),
		checkout.WithOutbox(outboxRepo),
	)
	s.orders = orders.NewService(orderRepo, orders.WithLogger(logger), orders.WithOutbox(outboxRepo))
	s.publisher = &recordingPublisher{}
	s.relay = outbox.NewRelay(outboxRepo, outbox.SingleTopic(s.publisher), outbox.WithLogger(logger))
}

func (s *OrderLifecycleTestSuite) register(email, userType string) domain.User {
	session, err := s.auth.Register(context.Background(), auth.RegisterInput{
		Email:    email,
		Password: "secret-password",
		Name:     "Integration User",
		UserType: userType,
	})
	s.Require().NoError(err)
	return session.User
}

func (s *OrderLifecycleTestSuite) product(seller domain.User, name string, price float64) domain.Product {
	product, err := s.catalog.CreateProduct(context.Background(), seller, catalog.NewProductInput{
		Name:        name,
		Description: name + " description",
		Price:       domain.PriceInput{Selling: &price},
		Quantity:    50,
	})
	s.Require().NoError(err)
	return product
}

func (s *OrderLifecycleTestSuite) address() domain.Address {
	return domain.Address{Street: "221B Baker St", City: "London", State: "LDN", Pincode: "NW16XE"}
}

func (s *OrderLifecycleTestSuite) TestMultiSellerCheckoutLifecycle() {
	ctx := context.Background()

	books := s.register("books@example.com", "vendor")
	games := s.register("games@example.com", "seller")
	buyer := s.register("buyer@example.com", "consumer")

	novel := s.product(books, "Novel", 12.5)
	atlas := s.product(books, "Atlas", 30)
	chess := s.product(games, "Chess set", 45)

	// 1. Корзина с товарами двух продавцов
	for productID, qty := range map[string]int{novel.ID: 2, atlas.ID: 1, chess.ID: 1} {
		_, err := s.cart.Add(ctx, buyer.ID, productID, qty)
		s.Require().NoError(err)
	}
	// повторное добавление увеличивает количество
	_, err := s.cart.Add(ctx, buyer.ID, novel.ID, 1)
	s.Require().NoError(err)

	// 2. Оформление: по заказу на продавца в одном батче
	placement, err := s.checkout.Place(ctx, buyer.ID, checkout.PlaceOrderInput{Address: s.address()})
	s.Require().NoError(err)
	s.Require().Len(placement.Orders, 2)
	s.Equal(int64(3*1250+3000+4500), placement.TotalAmountMinor)

	bySeller := make(map[string]domain.Order, len(placement.Orders))
	for _, order := range placement.Orders {
		s.Equal(placement.BatchID, order.BatchID)
		s.Equal(buyer.ID, order.BuyerID)
		s.Equal(domain.OrderStatusPlaced, order.Status)
		s.Empty(order.ValidateInvariants())
		bySeller[order.SellerID] = order
	}
	s.Len(bySeller[books.ID].Items, 2)
	s.Equal(int64(3*1250+3000), bySeller[books.ID].Pricing.SubtotalMinor)
	s.Len(bySeller[games.ID].Items, 1)

	// 3. Корзина очищена, повторное оформление отклоняется
	c, err := s.cart.Get(ctx, buyer.ID)
	s.Require().NoError(err)
	s.Empty(c.Items)
	_, err = s.checkout.Place(ctx, buyer.ID, checkout.PlaceOrderInput{Address: s.address()})
	s.ErrorIs(err, domain.ErrCartEmpty)

	// 4. Первый продавец доводит заказ до доставки
	booksOrder := bySeller[books.ID]
	for _, status := range []string{"confirmed", "shipped", "delivered"} {
		booksOrder, err = s.orders.UpdateStatus(ctx, books, booksOrder.ID, status)
		s.Require().NoError(err, status)
	}
	s.Equal(domain.OrderStatusDelivered, booksOrder.Status)

	_, err = s.orders.UpdateStatus(ctx, books, booksOrder.ID, "cancelled")
	s.ErrorIs(err, domain.ErrInvalidStatusTransition)

	// 5. Второй продавец отменяет; покупатель менять статус не может
	_, err = s.orders.UpdateStatus(ctx, buyer, bySeller[games.ID].ID, "cancelled")
	s.ErrorIs(err, domain.ErrOrderUpdateDenied)
	_, err = s.orders.UpdateStatus(ctx, games, bySeller[books.ID].ID, "cancelled")
	s.ErrorIs(err, domain.ErrOrderUpdateDenied)

	gamesOrder, err := s.orders.UpdateStatus(ctx, games, bySeller[games.ID].ID, "cancelled")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, gamesOrder.Status)

	// 6. Доступ к заказам
	_, err = s.orders.Get(ctx, games, booksOrder.ID)
	s.ErrorIs(err, domain.ErrOrderAccessDenied)
	got, err := s.orders.Get(ctx, buyer, booksOrder.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusDelivered, got.Status)

	// 7. Outbox публикует все события
	report := s.relay.ProcessOnce(ctx)
	s.Equal(outbox.Report{Sent: 6}, report)

	placed := s.publisher.byType(domain.EventOrderPlaced)
	s.Require().Len(placed, 2)
	for _, event := range placed {
		var payload struct {
			BatchID string `json:"batch_id"`
			Status  string `json:"status"`
		}
		s.Require().NoError(json.Unmarshal(event.Payload, &payload))
		s.Equal(placement.BatchID, payload.BatchID)
		s.Equal("placed", payload.Status)
	}
	changed := s.publisher.byType(domain.EventOrderStatusChanged)
	s.Require().Len(changed, 4)
	for _, event := range changed {
		var payload struct {
			BatchID string `json:"batch_id"`
		}
		s.Require().NoError(json.Unmarshal(event.Payload, &payload))
		s.Equal(placement.BatchID, payload.BatchID)
	}

	// повторный проход ничего не публикует
	total := len(s.publisher.events)
	s.Zero(s.relay.ProcessOnce(ctx).Sent)
	s.Len(s.publisher.events, total)
}

func (s *OrderLifecycleTestSuite) TestCheckoutRejectsUnknownProduct() {
	ctx := context.Background()
	buyer := s.register("lonely@example.com", "consumer")

	_, err := s.cart.Add(ctx, buyer.ID, "missing-product", 1)
	s.True(errors.Is(err, domain.ErrProductNotFound), "unexpected error: %v", err)

	_, err = s.checkout.Place(ctx, buyer.ID, checkout.PlaceOrderInput{Address: s.address()})
	s.Require().Error(err)
	s.Empty(s.publisher.events)
}

func (s *OrderLifecycleTestSuite) TestIncompleteAddressKeepsCart() {
	ctx := context.Background()
	seller := s.register("tea@example.com", "vendor")
	buyer := s.register("sipper@example.com", "consumer")
	tea := s.product(seller, "Green tea", 4.2)

	_, err := s.cart.Add(ctx, buyer.ID, tea.ID, 3)
	s.Require().NoError(err)

	_, err = s.checkout.Place(ctx, buyer.ID, checkout.PlaceOrderInput{Address: domain.Address{City: "Kyoto"}})
	s.ErrorIs(err, domain.ErrDeliveryAddressIncomplete)

	c, err := s.cart.Get(ctx, buyer.ID)
	s.Require().NoError(err)
	s.Require().Len(c.Items, 1)
	s.Equal(3, c.Items[0].Quantity)
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}

func TestConcurrentCheckoutsProduceDistinctBatches(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	products := memory.NewProductRepository()
	carts := memory.NewCartRepository()
	orderRepo := memory.NewOrderRepository()

	tokens, err := auth.NewJWTIssuer("integration-secret", 0)
	require.NoError(t, err)
	authSvc := auth.NewService(users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, nil)
	catalogSvc := catalog.NewService(memory.NewCategoryRepository(), products, nil, nil)
	cartSvc := cart.NewService(carts, catalogSvc, nil)
	checkoutSvc := checkout.NewService(carts, catalogSvc, orderRepo)

	seller, err := authSvc.Register(ctx, auth.RegisterInput{Email: "s@example.com", Password: "secret-password", Name: "Seller", UserType: "vendor"})
	require.NoError(t, err)
	price := 1.0
	product, err := catalogSvc.CreateProduct(ctx, seller.User, catalog.NewProductInput{
		Name: "Pen", Description: "Blue pen", Price: domain.PriceInput{Selling: &price}, Quantity: 100,
	})
	require.NoError(t, err)

	const buyers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		batches = make(map[string]struct{})
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(buyerID string) {
			defer wg.Done()
			if _, err := cartSvc.Add(ctx, buyerID, product.ID, 1); err != nil {
				t.Errorf("add to cart: %v", err)
				return
			}
			placement, err := checkoutSvc.Place(ctx, buyerID, checkout.PlaceOrderInput{
				Address: domain.Address{Street: "1 Main", City: "Town", State: "ST", Pincode: "12345"},
			})
			if err != nil {
				t.Errorf("place order: %v", err)
				return
			}
			mu.Lock()
			batches[placement.BatchID] = struct{}{}
			mu.Unlock()
		}("buyer-" + string(rune('a'+i)))
	}
	wg.Wait()

	require.Len(t, batches, buyers)
}
