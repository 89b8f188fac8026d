package domain

import "time"

type OrderCreatedEvent struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	OrderAmount int64     `json:"orderAmount"`
	ItemCount   int       `json:"itemCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PaymentUpdatedEvent struct {
	OrderID       string        `json:"orderId"`
	PaymentID     string        `json:"paymentId"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
	TransactionID string        `json:"transactionId,omitempty"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
