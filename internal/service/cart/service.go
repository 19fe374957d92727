// Package cart управляет корзиной покупателя.
package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// ProductReader читает товар для снимка цены.
type ProductReader interface {
	Get(ctx context.Context, id string) (domain.Product, error)
}

// Service реализует операции над корзиной.
type Service struct {
	carts    domain.CartRepository
	products ProductReader
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, products ProductReader, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	return &Service{carts: carts, products: products, logger: logger, now: time.Now}
}

// Get возвращает корзину; отсутствующая корзина отдаётся пустой.
func (s *Service) Get(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.NewCart(userID, s.now().UTC()), nil
	}
	return cart, err
}

// Add кладёт товар в корзину, фиксируя текущую цену, название и первое изображение.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, domain.ErrProductIDRequired
	}
	if !domain.ValidQuantity(quantity) {
		return domain.Cart{}, domain.ErrQuantityInvalid
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}

	now := s.now().UTC()
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	err = cart.Add(domain.CartLine{
		ProductID:  product.ID,
		Name:       product.Name,
		Image:      product.FirstImage(),
		Quantity:   quantity,
		PriceMinor: product.Price.AmountMinor,
		Currency:   product.Price.Currency,
		AddedAt:    now,
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return s.save(ctx, cart, now)
}

// UpdateQuantity задаёт количество позиции.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (domain.Cart, error) {
	if !domain.ValidQuantity(quantity) {
		return domain.Cart{}, domain.ErrQuantityInvalid
	}
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := cart.SetQuantity(productID, quantity); err != nil {
		return domain.Cart{}, err
	}
	return s.save(ctx, cart, s.now().UTC())
}

// Remove удаляет позицию из корзины.
func (s *Service) Remove(ctx context.Context, userID, productID string) (domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Remove(productID)
	return s.save(ctx, cart, s.now().UTC())
}

// Clear очищает корзину.
func (s *Service) Clear(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Clear()
	return s.save(ctx, cart, s.now().UTC())
}

func (s *Service) save(ctx context.Context, cart domain.Cart, now time.Time) (domain.Cart, error) {
	cart.UpdatedAt = now
	if err := s.carts.Save(ctx, cart); err != nil {
		s.logger.WithError(err).WithField("user_id", cart.UserID).Error("save cart failed")
		return domain.Cart{}, err
	}
	return cart, nil
}
