package domain

import (
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа продавца.
type OrderStatus string

const (
	// создан при оформлении корзины
	OrderStatusPlaced OrderStatus = "placed"
	// продавец принял заказ
	OrderStatusConfirmed OrderStatus = "confirmed"
	// передан в доставку
	OrderStatusShipped OrderStatus = "shipped"
	// вручён покупателю
	OrderStatusDelivered OrderStatus = "delivered"
	// отменён до вручения
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: nil,
	OrderStatusCancelled: nil,
}

// ParseOrderStatus разбирает строковый статус.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", ErrInvalidOrderStatus
	}
	return status, nil
}

// Valid сообщает, известен ли статус.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal возвращает true для delivered и cancelled.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// CanTransitionTo проверяет допустимость перехода.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus — статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// DefaultPaymentMethod используется, если покупатель не выбрал способ оплаты.
const DefaultPaymentMethod = "online"

// DeliveryLeadTime — ожидаемый срок доставки от момента оформления.
const DeliveryLeadTime = 7 * 24 * time.Hour

// OrderItem — снимок позиции корзины на момент оформления.
type OrderItem struct {
	ProductID  string
	Name       string
	Image      string
	Quantity   int
	PriceMinor int64
}

// LineTotal возвращает стоимость позиции.
func (i OrderItem) LineTotal() (int64, error) {
	return MulMinor(i.PriceMinor, i.Quantity)
}

// Pricing хранит суммы заказа в минимальных единицах.
type Pricing struct {
	SubtotalMinor int64
	TaxMinor      int64
	DeliveryMinor int64
	TotalMinor    int64
}

type Address struct {
	Street  string
	City    string
	State   string
	Pincode string
}

// Normalize обрезает пробелы во всех полях.
func (a Address) Normalize() Address {
	return Address{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		Pincode: strings.TrimSpace(a.Pincode),
	}
}

// Complete проверяет, что все поля адреса заполнены.
func (a Address) Complete() bool {
	n := a.Normalize()
	return n.Street != "" && n.City != "" && n.State != "" && n.Pincode != ""
}

// Delivery — сведения о доставке.
type Delivery struct {
	Address      Address
	ExpectedDate time.Time
}

type Payment struct {
	Method        string
	Status        PaymentStatus
	TransactionID string
}

// Order — заказ одного продавца, созданный из корзины покупателя.
// BatchID общий для всех заказов одного оформления.
type Order struct {
	ID          string
	OrderNumber string
	BatchID     string
	BuyerID     string
	SellerID    string
	Items       []OrderItem
	Currency    string
	Pricing     Pricing
	Delivery    Delivery
	Payment     Payment
	Status      OrderStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет инварианты заказа на момент создания.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	var subtotal int64
	overflow := false
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrQuantityInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrPriceNegative)
		}
		if item.Quantity <= 0 || item.PriceMinor < 0 || overflow {
			continue
		}
		lineTotal, err := item.LineTotal()
		if err == nil {
			subtotal, err = AddMinor(subtotal, lineTotal)
		}
		overflow = err != nil
	}

	p := o.Pricing
	if overflow {
		errs = append(errs, ErrAmountOverflow)
	} else if total, err := pricingTotal(p); err != nil {
		errs = append(errs, err)
	} else if p.SubtotalMinor != subtotal || p.TotalMinor != total {
		errs = append(errs, ErrPricingMismatch)
	}
	if !o.Delivery.Address.Complete() {
		errs = append(errs, ErrDeliveryAddressIncomplete)
	}

	return errs
}

func pricingTotal(p Pricing) (int64, error) {
	if p.TaxMinor < 0 || p.DeliveryMinor < 0 {
		return 0, ErrPricingMismatch
	}
	total, err := AddMinor(p.SubtotalMinor, p.TaxMinor)
	if err != nil {
		return 0, err
	}
	return AddMinor(total, p.DeliveryMinor)
}

// HasParty сообщает, является ли пользователь покупателем или продавцом заказа.
func (o *Order) HasParty(userID string) bool {
	return userID != "" && (o.BuyerID == userID || o.SellerID == userID)
}

// TransitionTo переводит заказ в новый статус, проверяя машину состояний.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !next.Valid() {
		return ErrInvalidOrderStatus
	}
	if !o.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// OrderFilter задаёт условия выборки заказов.
type OrderFilter struct {
	BuyerID  string
	SellerID string
	Status   OrderStatus
}
