package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Статусы заказа. Продавец может выставить любое непустое значение,
// перечисленные здесь - общепринятые.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderFulfilled  = "fulfilled"
	OrderCancelled  = "cancelled"
)

// Статусы оплаты. Единственный источник изменений - вебхук платежной системы.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCanceled  = "canceled"
)

const MaxOrderQuantity = 100

// Product - товар маркетплейса. Цена хранится в минимальных единицах валюты.
type Product struct {
	ID          string                      `json:"id" gorm:"type:varchar(36);primaryKey"`
	SellerID    string                      `json:"seller_id" gorm:"type:varchar(36);not null;index"`
	Title       string                      `json:"title" gorm:"type:varchar(200);not null"`
	Description string                      `json:"description" gorm:"type:text"`
	PriceCents  int64                       `json:"price_cents" gorm:"not null"`
	Currency    string                      `json:"currency" gorm:"type:varchar(3);not null"`
	Stock       int                         `json:"stock" gorm:"not null;default:0"`
	ImageURLs   datatypes.JSONSlice[string] `json:"image_urls"`
	IsActive    bool                        `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time                   `json:"updated_at" gorm:"not null"`
}

func (p *Product) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	p.Currency = strings.ToLower(strings.TrimSpace(p.Currency))
	if p.Title == "" {
		return Invalidf("product title is required")
	}
	if p.PriceCents <= 0 {
		return Invalidf("product price must be positive")
	}
	if len(p.Currency) != 3 {
		return Invalidf("currency must be a 3-letter code")
	}
	if p.Stock < 0 {
		return Invalidf("stock cannot be negative")
	}
	return nil
}

// Order - заказ покупателя у продавца.
type Order struct {
	ID              string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	BuyerID         string    `json:"buyer_id" gorm:"type:varchar(36);not null;index"`
	SellerID        string    `json:"seller_id" gorm:"type:varchar(36);not null;index"`
	ProductID       string    `json:"product_id" gorm:"type:varchar(36);not null;index"`
	Quantity        int       `json:"quantity" gorm:"not null"`
	UnitPriceCents  int64     `json:"unit_price_cents" gorm:"not null"`
	TotalCents      int64     `json:"total_cents" gorm:"not null"`
	Currency        string    `json:"currency" gorm:"type:varchar(3);not null"`
	OrderStatus     string    `json:"order_status" gorm:"type:varchar(32);not null;index"`
	PaymentStatus   string    `json:"payment_status" gorm:"type:varchar(16);not null"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty" gorm:"type:varchar(255);index"`
	ClientSecret    string    `json:"client_secret,omitempty" gorm:"-"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null"`
}

// WebhookEvent - обработанное событие платежной системы, ключ - id события.
type WebhookEvent struct {
	ID          string    `gorm:"type:varchar(255);primaryKey"`
	Type        string    `gorm:"type:varchar(100);not null"`
	ProcessedAt time.Time `gorm:"not null"`
}

// WishlistItem - товар в списке желаний пользователя.
type WishlistItem struct {
	UserID    string    `json:"user_id" gorm:"type:varchar(36);primaryKey"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// CheckStatusChange проверяет право actorID перевести заказ в next и
// возвращает статус, от которого должно выполняться условное обновление.
func CheckStatusChange(o *Order, actorID, next string) (expected string, err error) {
	next = strings.TrimSpace(next)
	if next == "" {
		return "", Invalidf("order_status is required")
	}
	switch actorID {
	case o.SellerID:
		return o.OrderStatus, nil
	case o.BuyerID:
		if next != OrderCancelled || o.OrderStatus != OrderPending {
			return "", ErrInvalidTransition
		}
		return OrderPending, nil
	default:
		return "", Forbidden("only the buyer or seller can update this order")
	}
}

// Типы событий платежной системы, меняющие статус оплаты.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// PaymentStatusForEvent отображает тип события в статус оплаты.
func PaymentStatusForEvent(eventType string) (string, bool) {
	switch eventType {
	case EventPaymentSucceeded:
		return PaymentCompleted, true
	case EventPaymentFailed:
		return PaymentFailed, true
	case EventPaymentCanceled:
		return PaymentCanceled, true
	}
	return "", false
}
