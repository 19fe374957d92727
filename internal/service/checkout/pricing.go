package checkout

import "github.com/vladislavdragonenkov/marketplace/internal/domain"

// LineTotal считает стоимость позиции корзины по снимку цены.
// Валюты не конвертируются: суммы складываются как есть.
func LineTotal(line domain.CartLine) (int64, error) {
	return domain.MulMinor(line.PriceMinor, line.Quantity)
}

// ChargesPolicy вычисляет налог и доставку для заказа одного продавца.
type ChargesPolicy interface {
	Charges(p Partition) (taxMinor, deliveryMinor int64)
}

// ZeroCharges не начисляет ни налога, ни доставки.
type ZeroCharges struct{}

// Charges всегда возвращает нули.
func (ZeroCharges) Charges(Partition) (int64, int64) { return 0, 0 }
