package domain

import (
	"math"
	"time"
)

// CartLine — позиция корзины со снимком цены на момент добавления.
type CartLine struct {
	ProductID  string
	Name       string
	Image      string
	Quantity   int
	PriceMinor int64
	Currency   string
	AddedAt    time.Time
}

// Cart — корзина покупателя, одна на пользователя.
type Cart struct {
	UserID    string
	Items     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCart создаёт пустую корзину.
func NewCart(userID string, now time.Time) Cart {
	return Cart{
		UserID:    userID,
		Items:     []CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add добавляет товар или увеличивает количество существующей позиции.
// Снимок цены и названия обновляется при каждом добавлении. Суммарное
// количество позиции не может превысить MaxLineQuantity.
func (c *Cart) Add(line CartLine) error {
	if !ValidQuantity(line.Quantity) {
		return ErrQuantityInvalid
	}
	if i := c.indexOf(line.ProductID); i >= 0 {
		existing := c.Items[i]
		if line.Quantity > MaxLineQuantity-existing.Quantity {
			return ErrQuantityInvalid
		}
		line.Quantity += existing.Quantity
		line.AddedAt = existing.AddedAt
		c.Items[i] = line
		return nil
	}
	c.Items = append(c.Items, line)
	return nil
}

// SetQuantity задаёт количество для позиции.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if !ValidQuantity(quantity) {
		return ErrQuantityInvalid
	}
	i := c.indexOf(productID)
	if i < 0 {
		return ErrCartItemNotFound
	}
	c.Items[i].Quantity = quantity
	return nil
}

// Remove удаляет позицию; отсутствие позиции не считается ошибкой.
func (c *Cart) Remove(productID string) {
	if i := c.indexOf(productID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

// Clear удаляет все позиции.
func (c *Cart) Clear() {
	c.Items = []CartLine{}
}

// TotalMinor возвращает сумму корзины по снимкам цен.
// При переполнении сумма ограничивается math.MaxInt64.
func (c *Cart) TotalMinor() int64 {
	var total int64
	for _, line := range c.Items {
		lineTotal, err := MulMinor(line.PriceMinor, line.Quantity)
		if err == nil {
			total, err = AddMinor(total, lineTotal)
		}
		if err != nil {
			return math.MaxInt64
		}
	}
	return total
}
