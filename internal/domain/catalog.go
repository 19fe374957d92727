package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ProductStatus — статус товара в каталоге.
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusOutOfStock   ProductStatus = "out_of_stock"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

const (
	defaultLowStockThreshold   = 10
	maxProductNameLength       = 100
	maxProductDescriptionChars = 1000
)

// Valid проверяет статус товара.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusOutOfStock, ProductStatusDiscontinued:
		return true
	default:
		return false
	}
}

// Category — категория каталога.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Image       string
	ParentID    string
	IsActive    bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Inventory struct {
	Quantity          int
	LowStockThreshold int
}

// Ratings агрегирует оценки товара.
type Ratings struct {
	Average float64
	Count   int
}

// Product — товар продавца.
type Product struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	CategoryID  string
	Price       Price
	Inventory   Inventory
	Images      []string
	Tags        []string
	Ratings     Ratings
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FirstImage возвращает первое изображение или пустую строку.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Validate проверяет поля товара перед сохранением и подставляет значения по умолчанию.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Name == "" || utf8.RuneCountInString(p.Name) > maxProductNameLength {
		return ErrProductNameInvalid
	}
	if p.Description == "" || utf8.RuneCountInString(p.Description) > maxProductDescriptionChars {
		return ErrProductDescInvalid
	}
	if p.SellerID == "" {
		return ErrProductSellerMissing
	}
	if p.Price.AmountMinor < 0 || p.Price.MRPMinor < 0 {
		return ErrPriceNegative
	}
	if p.Price.AmountMinor > MaxPriceMinor || p.Price.MRPMinor > MaxPriceMinor {
		return ErrPriceTooLarge
	}
	if p.Price.Currency == "" {
		p.Price.Currency = DefaultCurrency
	}
	if p.Inventory.Quantity < 0 {
		return ErrInventoryNegative
	}
	if p.Inventory.LowStockThreshold <= 0 {
		p.Inventory.LowStockThreshold = defaultLowStockThreshold
	}
	if p.Status == "" {
		p.Status = ProductStatusActive
	}
	if !p.Status.Valid() {
		return ErrProductStatus
	}
	return nil
}

// MatchesSearch сравнивает строку поиска с названием, описанием и тегами без учёта регистра.
func (p *Product) MatchesSearch(search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Name), search) ||
		strings.Contains(strings.ToLower(p.Description), search) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

// ApplyRating пересчитывает среднюю оценку с учётом нового отзыва.
func (r Ratings) ApplyRating(rating int) Ratings {
	total := r.Average*float64(r.Count) + float64(rating)
	count := r.Count + 1
	return Ratings{Average: total / float64(count), Count: count}
}

// ProductFilter задаёт условия выборки товаров.
type ProductFilter struct {
	CategoryID string
	SellerID   string
	Status     ProductStatus
	Search     string
}

// Matches проверяет товар по фильтру.
func (f ProductFilter) Matches(p *Product) bool {
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.SellerID != "" && p.SellerID != f.SellerID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return p.MatchesSearch(f.Search)
}
