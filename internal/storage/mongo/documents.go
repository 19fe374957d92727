package mongo

import (
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type userDocument struct {
	ID                 string    `bson:"_id"`
	Email              string    `bson:"email"`
	PasswordHash       string    `bson:"password_hash"`
	Name               string    `bson:"name"`
	Phone              string    `bson:"phone,omitempty"`
	Type               string    `bson:"user_type"`
	IsActive           bool      `bson:"is_active"`
	IsEmailVerified    bool      `bson:"is_email_verified"`
	EmailCode          string    `bson:"email_code,omitempty"`
	EmailCodeExpiresAt time.Time `bson:"email_code_expires_at,omitempty"`
	IsPhoneVerified    bool      `bson:"is_phone_verified"`
	PhoneNumber        string    `bson:"phone_number,omitempty"`
	PhoneCode          string    `bson:"phone_code,omitempty"`
	PhoneCodeExpiresAt time.Time `bson:"phone_code_expires_at,omitempty"`
	LastLogin          time.Time `bson:"last_login,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

func newUserDocument(u domain.User) userDocument {
	return userDocument{
		ID:                 u.ID,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Name:               u.Name,
		Phone:              u.Phone,
		Type:               string(u.Type),
		IsActive:           u.IsActive,
		IsEmailVerified:    u.IsEmailVerified,
		EmailCode:          u.EmailCode.Code,
		EmailCodeExpiresAt: u.EmailCode.ExpiresAt,
		IsPhoneVerified:    u.IsPhoneVerified,
		PhoneNumber:        u.PhoneNumber,
		PhoneCode:          u.PhoneCode.Code,
		PhoneCodeExpiresAt: u.PhoneCode.ExpiresAt,
		LastLogin:          u.LastLogin,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (d userDocument) toDomain() domain.User {
	return domain.User{
		ID:              d.ID,
		Email:           d.Email,
		PasswordHash:    d.PasswordHash,
		Name:            d.Name,
		Phone:           d.Phone,
		Type:            domain.UserType(d.Type),
		IsActive:        d.IsActive,
		IsEmailVerified: d.IsEmailVerified,
		EmailCode:       domain.VerificationCode{Code: d.EmailCode, ExpiresAt: utc(d.EmailCodeExpiresAt)},
		IsPhoneVerified: d.IsPhoneVerified,
		PhoneNumber:     d.PhoneNumber,
		PhoneCode:       domain.VerificationCode{Code: d.PhoneCode, ExpiresAt: utc(d.PhoneCodeExpiresAt)},
		LastLogin:       utc(d.LastLogin),
		CreatedAt:       utc(d.CreatedAt),
		UpdatedAt:       utc(d.UpdatedAt),
	}
}

type categoryDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Slug        string    `bson:"slug"`
	Description string    `bson:"description,omitempty"`
	Image       string    `bson:"image,omitempty"`
	ParentID    string    `bson:"parent_id,omitempty"`
	IsActive    bool      `bson:"is_active"`
	SortOrder   int       `bson:"sort_order"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d categoryDocument) toDomain() domain.Category {
	return domain.Category{
		ID:          d.ID,
		Name:        d.Name,
		Slug:        d.Slug,
		Description: d.Description,
		Image:       d.Image,
		ParentID:    d.ParentID,
		IsActive:    d.IsActive,
		SortOrder:   d.SortOrder,
		CreatedAt:   utc(d.CreatedAt),
		UpdatedAt:   utc(d.UpdatedAt),
	}
}

type priceDocument struct {
	AmountMinor int64  `bson:"amount_minor"`
	MRPMinor    int64  `bson:"mrp_minor,omitempty"`
	Currency    string `bson:"currency"`
}

type productDocument struct {
	ID                string        `bson:"_id"`
	SellerID          string        `bson:"seller_id"`
	Name              string        `bson:"name"`
	Description       string        `bson:"description"`
	CategoryID        string        `bson:"category_id,omitempty"`
	Price             priceDocument `bson:"price"`
	Quantity          int           `bson:"quantity"`
	LowStockThreshold int           `bson:"low_stock_threshold"`
	Images            []string      `bson:"images"`
	Tags              []string      `bson:"tags"`
	RatingAverage     float64       `bson:"rating_average"`
	RatingCount       int           `bson:"rating_count"`
	Status            string        `bson:"status"`
	CreatedAt         time.Time     `bson:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at"`
}

func newProductDocument(p domain.Product) productDocument {
	return productDocument{
		ID:                p.ID,
		SellerID:          p.SellerID,
		Name:              p.Name,
		Description:       p.Description,
		CategoryID:        p.CategoryID,
		Price:             priceDocument{AmountMinor: p.Price.AmountMinor, MRPMinor: p.Price.MRPMinor, Currency: p.Price.Currency},
		Quantity:          p.Inventory.Quantity,
		LowStockThreshold: p.Inventory.LowStockThreshold,
		Images:            nonNil(p.Images),
		Tags:              nonNil(p.Tags),
		RatingAverage:     p.Ratings.Average,
		RatingCount:       p.Ratings.Count,
		Status:            string(p.Status),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID,
		SellerID:    d.SellerID,
		Name:        d.Name,
		Description: d.Description,
		CategoryID:  d.CategoryID,
		Price:       domain.Price{AmountMinor: d.Price.AmountMinor, MRPMinor: d.Price.MRPMinor, Currency: d.Price.Currency},
		Inventory:   domain.Inventory{Quantity: d.Quantity, LowStockThreshold: d.LowStockThreshold},
		Images:      nonNil(d.Images),
		Tags:        nonNil(d.Tags),
		Ratings:     domain.Ratings{Average: d.RatingAverage, Count: d.RatingCount},
		Status:      domain.ProductStatus(d.Status),
		CreatedAt:   utc(d.CreatedAt),
		UpdatedAt:   utc(d.UpdatedAt),
	}
}

type cartLineDocument struct {
	ProductID  string    `bson:"product_id"`
	Name       string    `bson:"name"`
	Image      string    `bson:"image,omitempty"`
	Quantity   int       `bson:"quantity"`
	PriceMinor int64     `bson:"price_minor"`
	Currency   string    `bson:"currency"`
	AddedAt    time.Time `bson:"added_at"`
}

type cartDocument struct {
	UserID    string             `bson:"_id"`
	Items     []cartLineDocument `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func newCartDocument(c domain.Cart) cartDocument {
	items := make([]cartLineDocument, 0, len(c.Items))
	for _, l := range c.Items {
		items = append(items, cartLineDocument(l))
	}
	return cartDocument{UserID: c.UserID, Items: items, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (d cartDocument) toDomain() domain.Cart {
	items := make([]domain.CartLine, 0, len(d.Items))
	for _, l := range d.Items {
		line := domain.CartLine(l)
		line.AddedAt = utc(line.AddedAt)
		items = append(items, line)
	}
	return domain.Cart{UserID: d.UserID, Items: items, CreatedAt: utc(d.CreatedAt), UpdatedAt: utc(d.UpdatedAt)}
}

type orderItemDocument struct {
	ProductID  string `bson:"product_id"`
	Name       string `bson:"name"`
	Image      string `bson:"image,omitempty"`
	Quantity   int    `bson:"quantity"`
	PriceMinor int64  `bson:"price_minor"`
}

type orderDocument struct {
	ID          string              `bson:"_id"`
	OrderNumber string              `bson:"order_number"`
	BatchID     string              `bson:"batch_id"`
	BuyerID     string              `bson:"buyer_id"`
	SellerID    string              `bson:"seller_id"`
	Items       []orderItemDocument `bson:"items"`
	Currency    string              `bson:"currency"`
	Pricing     pricingDocument     `bson:"pricing"`
	Delivery    deliveryDocument    `bson:"delivery"`
	Payment     paymentDocument     `bson:"payment"`
	Status      string              `bson:"status"`
	Version     int64               `bson:"version"`
	CreatedAt   time.Time           `bson:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at"`
}

type pricingDocument struct {
	SubtotalMinor int64 `bson:"subtotal_minor"`
	TaxMinor      int64 `bson:"tax_minor"`
	DeliveryMinor int64 `bson:"delivery_minor"`
	TotalMinor    int64 `bson:"total_minor"`
}

type deliveryDocument struct {
	Street       string    `bson:"street"`
	City         string    `bson:"city"`
	State        string    `bson:"state"`
	Pincode      string    `bson:"pincode"`
	ExpectedDate time.Time `bson:"expected_date"`
}

type paymentDocument struct {
	Method        string `bson:"method"`
	Status        string `bson:"status"`
	TransactionID string `bson:"transaction_id,omitempty"`
}

func newOrderDocument(o domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDocument(it))
	}
	addr := o.Delivery.Address
	return orderDocument{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		BatchID:     o.BatchID,
		BuyerID:     o.BuyerID,
		SellerID:    o.SellerID,
		Items:       items,
		Currency:    o.Currency,
		Pricing:     pricingDocument(o.Pricing),
		Delivery: deliveryDocument{
			Street:       addr.Street,
			City:         addr.City,
			State:        addr.State,
			Pincode:      addr.Pincode,
			ExpectedDate: o.Delivery.ExpectedDate,
		},
		Payment:   newPaymentDocument(o.Payment),
		Status:    string(o.Status),
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func newPaymentDocument(p domain.Payment) paymentDocument {
	return paymentDocument{Method: p.Method, Status: string(p.Status), TransactionID: p.TransactionID}
}

func (d orderDocument) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.OrderItem(it))
	}
	return domain.Order{
		ID:          d.ID,
		OrderNumber: d.OrderNumber,
		BatchID:     d.BatchID,
		BuyerID:     d.BuyerID,
		SellerID:    d.SellerID,
		Items:       items,
		Currency:    d.Currency,
		Pricing:     domain.Pricing(d.Pricing),
		Delivery: domain.Delivery{
			Address: domain.Address{
				Street:  d.Delivery.Street,
				City:    d.Delivery.City,
				State:   d.Delivery.State,
				Pincode: d.Delivery.Pincode,
			},
			ExpectedDate: utc(d.Delivery.ExpectedDate),
		},
		Payment: domain.Payment{
			Method:        d.Payment.Method,
			Status:        domain.PaymentStatus(d.Payment.Status),
			TransactionID: d.Payment.TransactionID,
		},
		Status:    domain.OrderStatus(d.Status),
		Version:   d.Version,
		CreatedAt: utc(d.CreatedAt),
		UpdatedAt: utc(d.UpdatedAt),
	}
}

type reviewDocument struct {
	ID        string    `bson:"_id"`
	ProductID string    `bson:"product_id"`
	UserID    string    `bson:"user_id"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type outboxDocument struct {
	ID            string    `bson:"_id"`
	AggregateType string    `bson:"aggregate_type"`
	AggregateID   string    `bson:"aggregate_id"`
	EventType     string    `bson:"event_type"`
	Payload       []byte    `bson:"payload"`
	Status        string    `bson:"status"`
	AttemptCount  int       `bson:"attempt_count"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

type idempotencyDocument struct {
	Key          string    `bson:"_id"`
	RequestHash  string    `bson:"request_hash"`
	ResponseBody []byte    `bson:"response_body,omitempty"`
	HTTPStatus   int       `bson:"http_status,omitempty"`
	Status       string    `bson:"status"`
	TTLAt        time.Time `bson:"ttl_at"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d idempotencyDocument) toDomain() domain.IdempotencyRecord {
	return domain.IdempotencyRecord{
		Key:          d.Key,
		RequestHash:  d.RequestHash,
		ResponseBody: append([]byte(nil), d.ResponseBody...),
		HTTPStatus:   d.HTTPStatus,
		Status:       domain.IdempotencyStatus(d.Status),
		TTLAt:        utc(d.TTLAt),
		CreatedAt:    utc(d.CreatedAt),
		UpdatedAt:    utc(d.UpdatedAt),
	}
}

// utc сохраняет нулевое время нулевым: драйвер возвращает даты в локальной зоне.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
