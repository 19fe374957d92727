package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// ProductReader — минимальный доступ к товарам, нужный для разбиения корзины.
type ProductReader interface {
	Get(ctx context.Context, id string) (domain.Product, error)
}

// Partition — позиции корзины одного продавца.
type Partition struct {
	SellerID      string
	Items         []domain.OrderItem
	SubtotalMinor int64
	Currency      string
}

// Split группирует позиции корзины по продавцам в порядке первого появления.
// Любой отсутствующий товар или товар без продавца прерывает всю операцию.
func Split(ctx context.Context, lines []domain.CartLine, products ProductReader) ([]Partition, error) {
	index := make(map[string]int)
	partitions := make([]Partition, 0)

	for _, line := range lines {
		product, err := products.Get(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", line.ProductID, err)
		}
		sellerID := strings.TrimSpace(product.SellerID)
		if sellerID == "" {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, domain.ErrProductSellerMissing)
		}

		i, ok := index[sellerID]
		if !ok {
			currency := line.Currency
			if currency == "" {
				currency = product.Price.Currency
			}
			partitions = append(partitions, Partition{SellerID: sellerID, Currency: currency})
			i = len(partitions) - 1
			index[sellerID] = i
		}

		partitions[i].Items = append(partitions[i].Items, domain.OrderItem{
			ProductID:  line.ProductID,
			Name:       line.Name,
			Image:      line.Image,
			Quantity:   line.Quantity,
			PriceMinor: line.PriceMinor,
		})
		lineTotal, err := LineTotal(line)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, err)
		}
		if partitions[i].SubtotalMinor, err = domain.AddMinor(partitions[i].SubtotalMinor, lineTotal); err != nil {
			return nil, fmt.Errorf("seller %s subtotal: %w", sellerID, err)
		}
	}

	return partitions, nil
}
