package domain

import (
	"math"
	"strings"
)

// DefaultCurrency используется, когда валюта не указана.
const DefaultCurrency = "USD"

var supportedCurrencies = map[string]struct{}{
	"USD": {},
	"EUR": {},
	"GBP": {},
	"INR": {},
}

// Price — каноническое представление цены товара в минимальных единицах.
type Price struct {
	// AmountMinor — фактическая цена продажи.
	AmountMinor int64
	// MRPMinor — рекомендованная цена (0, если не задана).
	MRPMinor int64
	Currency string
}

// PriceInput описывает цену в том виде, в котором её присылает клиент:
// либо {amount}, либо {mrp, selling}. Значения в основных единицах валюты.
type PriceInput struct {
	Amount   *float64
	MRP      *float64
	Selling  *float64
	Currency string
}

// NormalizePrice приводит входную цену к Price.
// Приоритет фактической цены: selling, затем amount, затем mrp.
func NormalizePrice(in PriceInput) (Price, error) {
	currency, err := NormalizeCurrency(in.Currency)
	if err != nil {
		return Price{}, err
	}

	var effective *float64
	switch {
	case in.Selling != nil:
		effective = in.Selling
	case in.Amount != nil:
		effective = in.Amount
	case in.MRP != nil:
		effective = in.MRP
	default:
		return Price{}, ErrPriceRequired
	}

	for _, v := range []*float64{in.Amount, in.MRP, in.Selling} {
		if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return Price{}, ErrPriceNegative
		}
		if v != nil && ToMinor(*v) > MaxPriceMinor {
			return Price{}, ErrPriceTooLarge
		}
	}

	price := Price{
		AmountMinor: ToMinor(*effective),
		Currency:    currency,
	}
	if in.MRP != nil {
		price.MRPMinor = ToMinor(*in.MRP)
	}
	return price, nil
}

// NormalizeCurrency проверяет код валюты; пустой код означает DefaultCurrency.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	if _, ok := supportedCurrencies[code]; !ok {
		return "", ErrCurrencyInvalid
	}
	return code, nil
}

// ToMinor переводит сумму в основных единицах в минимальные с округлением.
// Значения вне диапазона int64 насыщаются до его границ.
func ToMinor(major float64) int64 {
	minor := math.Round(major * 100)
	switch {
	case math.IsNaN(minor):
		return 0
	case minor >= math.MaxInt64:
		return math.MaxInt64
	case minor <= math.MinInt64:
		return math.MinInt64
	}
	return int64(minor)
}

// ToMajor переводит минимальные единицы в основные.
func ToMajor(minor int64) float64 {
	return float64(minor) / 100
}
