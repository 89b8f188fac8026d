package repository

import (
	"context"

	"checkout-service/internal/domain"
)

// PlaceOrder is everything checkout writes in one transaction.
type PlaceOrder struct {
	Order       *domain.Order
	Payment     *domain.Payment
	CartItemIDs []uint64
}

// PaymentCheck is the outcome of one live gateway query for a payment.
// Status is PENDING when the gateway reported nothing new; Info is merged into
// the payment's additional info either way.
type PaymentCheck struct {
	OrderID       string
	PaymentID     string
	Status        domain.PaymentStatus
	TransactionID string
	Method        domain.PaymentMethod
	Info          domain.JSONMap
}

// OrderRepository finders return (nil, nil) when nothing matches.
type OrderRepository interface {
	PlaceOrder(ctx context.Context, p PlaceOrder) error
	FindByIDForUser(ctx context.Context, id, userID string) (*domain.Order, error)
	FindByUser(ctx context.Context, userID string) ([]domain.Order, error)
	FindPayments(ctx context.Context, orderID string) ([]domain.Payment, error)
	ApplyPaymentCheck(ctx context.Context, c PaymentCheck) (applied bool, err error)
}
