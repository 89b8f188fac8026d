package gateway

import (
	"context"
	"time"
)

type InitiateRequest struct {
	MerchantOrderID string
	Amount          int64
	CallbackURL     string
	MetaInfo        map[string]string
}

type InitiateResponse struct {
	GatewayOrderID string
	State          string
	RedirectURL    string
	ExpireAt       time.Time
}

// Client is the payment gateway as seen by checkout and reconciliation.
// OrderStatus returns the payload untouched; Normalize turns it into a Result.
type Client interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	OrderStatus(ctx context.Context, merchantOrderID string) (StatusPayload, error)
}

var _ Client = (*PhonePe)(nil)
