package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
)

// Суммы в ответах выражены в основных единицах валюты.

type userDTO struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	UserType        string     `json:"userType"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsPhoneVerified bool       `json:"isPhoneVerified"`
	PhoneNumber     string     `json:"phoneNumber,omitempty"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toUserDTO(u domain.User) userDTO {
	dto := userDTO{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		UserType:        string(u.Type),
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		IsPhoneVerified: u.IsPhoneVerified,
		PhoneNumber:     u.PhoneNumber,
		CreatedAt:       u.CreatedAt,
	}
	if !u.LastLogin.IsZero() {
		last := u.LastLogin
		dto.LastLogin = &last
	}
	return dto
}

type categoryDTO struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    string    `json:"description,omitempty"`
	Image          string    `json:"image,omitempty"`
	ParentCategory string    `json:"parentCategory,omitempty"`
	IsActive       bool      `json:"isActive"`
	SortOrder      int       `json:"sortOrder"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toCategoryDTO(c domain.Category) categoryDTO {
	return categoryDTO{
		ID:             c.ID,
		Name:           c.Name,
		Slug:           c.Slug,
		Description:    c.Description,
		Image:          c.Image,
		ParentCategory: c.ParentID,
		IsActive:       c.IsActive,
		SortOrder:      c.SortOrder,
		CreatedAt:      c.CreatedAt,
	}
}

type priceDTO struct {
	Amount   float64  `json:"amount"`
	MRP      *float64 `json:"mrp,omitempty"`
	Currency string   `json:"currency"`
}

type productDTO struct {
	ID          string   `json:"id"`
	SellerID    string   `json:"sellerId"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       priceDTO `json:"price"`
	Inventory   struct {
		Quantity          int `json:"quantity"`
		LowStockThreshold int `json:"lowStockThreshold"`
	} `json:"inventory"`
	Images  []string `json:"images"`
	Tags    []string `json:"tags"`
	Ratings struct {
		Average float64 `json:"average"`
		Count   int     `json:"count"`
	} `json:"ratings"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toProductDTO(p domain.Product) productDTO {
	dto := productDTO{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.CategoryID,
		Price: priceDTO{
			Amount:   domain.ToMajor(p.Price.AmountMinor),
			Currency: p.Price.Currency,
		},
		Images:    nonNil(p.Images),
		Tags:      nonNil(p.Tags),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Price.MRPMinor > 0 {
		mrp := domain.ToMajor(p.Price.MRPMinor)
		dto.Price.MRP = &mrp
	}
	dto.Inventory.Quantity = p.Inventory.Quantity
	dto.Inventory.LowStockThreshold = p.Inventory.LowStockThreshold
	dto.Ratings.Average = p.Ratings.Average
	dto.Ratings.Count = p.Ratings.Count
	return dto
}

func toProductDTOs(items []domain.Product) []productDTO {
	out := make([]productDTO, 0, len(items))
	for _, p := range items {
		out = append(out, toProductDTO(p))
	}
	return out
}

// priceInputDTO принимает обе формы цены: {amount} и {mrp, selling}.
type priceInputDTO struct {
	Amount   *float64 `json:"amount"`
	MRP      *float64 `json:"mrp"`
	Selling  *float64 `json:"selling"`
	Currency string   `json:"currency"`
}

func (p priceInputDTO) toDomain() domain.PriceInput {
	return domain.PriceInput{
		Amount:   p.Amount,
		MRP:      p.MRP,
		Selling:  p.Selling,
		Currency: p.Currency,
	}
}

type cartLineDTO struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	AddedAt   time.Time `json:"addedAt"`
}

type cartDTO struct {
	User      string        `json:"user"`
	Items     []cartLineDTO `json:"items"`
	Total     float64       `json:"total"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

func toCartDTO(c domain.Cart) cartDTO {
	dto := cartDTO{
		User:  c.UserID,
		Items: make([]cartLineDTO, 0, len(c.Items)),
		Total: domain.ToMajor(c.TotalMinor()),
	}
	for _, line := range c.Items {
		dto.Items = append(dto.Items, cartLineDTO{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			Price:     domain.ToMajor(line.PriceMinor),
			Currency:  line.Currency,
			AddedAt:   line.AddedAt,
		})
	}
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

type addressDTO struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func (a addressDTO) toDomain() domain.Address {
	return domain.Address{Street: a.Street, City: a.City, State: a.State, Pincode: a.Pincode}
}

type orderItemDTO struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderDTO struct {
	ID          string         `json:"id"`
	OrderNumber string         `json:"orderNumber"`
	BatchID     string         `json:"batchId"`
	BuyerID     string         `json:"buyerId"`
	SellerID    string         `json:"sellerId"`
	Items       []orderItemDTO `json:"items"`
	Currency    string         `json:"currency"`
	Pricing     struct {
		Subtotal float64 `json:"subtotal"`
		Tax      float64 `json:"tax"`
		Delivery float64 `json:"delivery"`
		Total    float64 `json:"total"`
	} `json:"pricing"`
	Delivery struct {
		Address      addressDTO `json:"address"`
		ExpectedDate time.Time  `json:"expectedDate"`
	} `json:"delivery"`
	Payment struct {
		Method        string `json:"method"`
		Status        string `json:"status"`
		TransactionID string `json:"transactionId,omitempty"`
	} `json:"payment"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toOrderDTO(o domain.Order) orderDTO {
	dto := orderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		BatchID:     o.BatchID,
		BuyerID:     o.BuyerID,
		SellerID:    o.SellerID,
		Items:       make([]orderItemDTO, 0, len(o.Items)),
		Currency:    o.Currency,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     domain.ToMajor(item.PriceMinor),
		})
	}
	dto.Pricing.Subtotal = domain.ToMajor(o.Pricing.SubtotalMinor)
	dto.Pricing.Tax = domain.ToMajor(o.Pricing.TaxMinor)
	dto.Pricing.Delivery = domain.ToMajor(o.Pricing.DeliveryMinor)
	dto.Pricing.Total = domain.ToMajor(o.Pricing.TotalMinor)
	addr := o.Delivery.Address
	dto.Delivery.Address = addressDTO{Street: addr.Street, City: addr.City, State: addr.State, Pincode: addr.Pincode}
	dto.Delivery.ExpectedDate = o.Delivery.ExpectedDate
	dto.Payment.Method = o.Payment.Method
	dto.Payment.Status = string(o.Payment.Status)
	dto.Payment.TransactionID = o.Payment.TransactionID
	return dto
}

func toOrderDTOs(items []domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(items))
	for _, o := range items {
		out = append(out, toOrderDTO(o))
	}
	return out
}

type placementDTO struct {
	BatchID     string     `json:"batchId"`
	Orders      []orderDTO `json:"orders"`
	TotalAmount float64    `json:"totalAmount"`
	Currency    string     `json:"currency"`
}

func toPlacementDTO(p checkout.Placement) placementDTO {
	return placementDTO{
		BatchID:     p.BatchID,
		Orders:      toOrderDTOs(p.Orders),
		TotalAmount: domain.ToMajor(p.TotalAmountMinor),
		Currency:    p.Currency,
	}
}

type reviewDTO struct {
	ID        string    `json:"id"`
	Product   string    `json:"product"`
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func toReviewDTO(r domain.Review) reviewDTO {
	return reviewDTO{
		ID:        r.ID,
		Product:   r.ProductID,
		User:      r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
