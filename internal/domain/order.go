package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Settled reports whether the status can no longer be changed by reconciliation.
func (s PaymentStatus) Settled() bool {
	return s != PaymentPending
}

type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
	StatusRefunded       OrderStatus = "REFUNDED"
)

// OrderStatusFor returns the order status that follows a settled payment status.
func OrderStatusFor(p PaymentStatus) (OrderStatus, bool) {
	switch p {
	case PaymentCompleted:
		return StatusConfirmed, true
	case PaymentFailed:
		return StatusCancelled, true
	}
	return "", false
}

// OrderItem is a snapshot of one cart line taken at checkout. Prices are minor units.
type OrderItem struct {
	ProductID    uint64 `json:"product"`
	VariantID    uint64 `json:"variant"`
	Quantity     int64  `json:"quantity"`
	Price        int64  `json:"price"`
	Discount     int64  `json:"discount"`
	ProductName  string `json:"product_name"`
	VariantLabel string `json:"variant_label"`
}

// Subtotal is (price - discount) * quantity.
func (i OrderItem) Subtotal() int64 {
	return (i.Price - i.Discount) * i.Quantity
}

type OrderItems []OrderItem

// Total sums the line subtotals.
func (items OrderItems) Total() int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *OrderItems) Scan(src any) error {
	return scanJSON(src, items)
}

// JSONMap is an open key/value column used for gateway bookkeeping.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src any) error {
	return scanJSON(src, m)
}

// Clone returns a shallow copy that is safe to mutate.
func (m JSONMap) Clone() JSONMap {
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

var (
	ErrEmptyOrder  = errors.New("order has no items")
	ErrInvalidItem = errors.New("invalid order item")
)

// Validate rejects lines that would make the order amount meaningless.
func (i OrderItem) Validate() error {
	switch {
	case i.Quantity <= 0:
		return fmt.Errorf("%w: product %d: quantity %d", ErrInvalidItem, i.ProductID, i.Quantity)
	case i.Price < 0 || i.Discount < 0:
		return fmt.Errorf("%w: product %d: negative price or discount", ErrInvalidItem, i.ProductID)
	case i.Discount > i.Price:
		return fmt.Errorf("%w: product %d: discount %d exceeds price %d", ErrInvalidItem, i.ProductID, i.Discount, i.Price)
	}
	return nil
}

type Order struct {
	ID              string        `json:"id" gorm:"primaryKey;type:char(36)"`
	UserID          string        `json:"-" gorm:"type:varchar(64);not null;index"`
	Items           OrderItems    `json:"items" gorm:"type:json;not null"`
	OrderAmount     int64         `json:"order_amount" gorm:"not null"`
	PaymentStatus   PaymentStatus `json:"payment_status" gorm:"type:enum('PENDING','COMPLETED','FAILED','REFUNDED');default:'PENDING';not null"`
	OrderStatus     OrderStatus   `json:"order_status" gorm:"type:enum('PENDING','CONFIRMED','PREPARING','OUT_FOR_DELIVERY','DELIVERED','CANCELLED','REFUNDED');default:'PENDING';not null"`
	DeliveryAddress string        `json:"delivery_address" gorm:"type:text;not null"`
	AdditionalInfo  JSONMap       `json:"additional_info" gorm:"type:json"`
	CreatedAt       time.Time     `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewOrder builds a pending order whose amount is fixed from the item snapshot.
func NewOrder(id, userID string, items OrderItems, deliveryAddress string, info JSONMap) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
	}
	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		OrderAmount:     items.Total(),
		PaymentStatus:   PaymentPending,
		OrderStatus:     StatusPending,
		DeliveryAddress: deliveryAddress,
		AdditionalInfo:  info,
	}, nil
}
