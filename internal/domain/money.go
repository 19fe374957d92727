package domain

import "math"

const (
	// MaxLineQuantity ограничивает количество товара в одной позиции корзины.
	MaxLineQuantity = 10_000
	// MaxPriceMinor ограничивает цену товара: 10 000 000.00 в основных единицах.
	MaxPriceMinor int64 = 1_000_000_000
)

// ValidQuantity проверяет, что количество лежит в пределах [1, MaxLineQuantity].
func ValidQuantity(quantity int) bool {
	return quantity > 0 && quantity <= MaxLineQuantity
}

// MulMinor умножает цену на количество; ErrAmountOverflow при выходе за int64.
func MulMinor(priceMinor int64, quantity int) (int64, error) {
	if priceMinor < 0 {
		return 0, ErrPriceNegative
	}
	if quantity < 0 {
		return 0, ErrQuantityInvalid
	}
	q := int64(quantity)
	if priceMinor != 0 && q > math.MaxInt64/priceMinor {
		return 0, ErrAmountOverflow
	}
	return priceMinor * q, nil
}

// AddMinor складывает неотрицательные суммы с проверкой переполнения.
func AddMinor(a, b int64) (int64, error) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
