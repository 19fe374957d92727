package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// NewBatchID генерирует общий префикс номеров заказов одного оформления.
func NewBatchID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:12])
}

// OrderNumber склеивает идентификатор оформления и продавца.
func OrderNumber(batchID, sellerID string) string {
	return batchID + "-" + sellerID
}

// Assembler строит заказ продавца из его части корзины.
type Assembler struct {
	charges ChargesPolicy
	newID   func() string
}

// NewAssembler создаёт сборщик заказов; nil policy означает ZeroCharges.
func NewAssembler(charges ChargesPolicy) *Assembler {
	if charges == nil {
		charges = ZeroCharges{}
	}
	return &Assembler{charges: charges, newID: uuid.NewString}
}

// AssembleInput содержит данные, общие для всех заказов одного оформления.
type AssembleInput struct {
	BatchID       string
	BuyerID       string
	Address       domain.Address
	PaymentMethod string
	Now           time.Time
}

// Assemble возвращает заказ в статусе placed с ожидающей оплатой.
func (a *Assembler) Assemble(in AssembleInput, p Partition) domain.Order {
	tax, delivery := a.charges.Charges(p)
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = domain.DefaultPaymentMethod
	}
	currency := p.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	return domain.Order{
		ID:          a.newID(),
		OrderNumber: OrderNumber(in.BatchID, p.SellerID),
		BatchID:     in.BatchID,
		BuyerID:     in.BuyerID,
		SellerID:    p.SellerID,
		Items:       append([]domain.OrderItem(nil), p.Items...),
		Currency:    currency,
		Pricing: domain.Pricing{
			SubtotalMinor: p.SubtotalMinor,
			TaxMinor:      tax,
			DeliveryMinor: delivery,
			TotalMinor:    p.SubtotalMinor + tax + delivery,
		},
		Delivery: domain.Delivery{
			Address:      in.Address.Normalize(),
			ExpectedDate: in.Now.Add(domain.DeliveryLeadTime),
		},
		Payment: domain.Payment{
			Method: method,
			Status: domain.PaymentStatusPending,
		},
		Status:    domain.OrderStatusPlaced,
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}
}
