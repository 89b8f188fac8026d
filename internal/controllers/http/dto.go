package http

import (
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/services"
)

type CheckoutRequest struct {
	AddressID *uint64 `json:"address_id"`
}

type CheckoutResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
	Message     string `json:"message"`
}

type OrderResponse struct {
	ID              string               `json:"id"`
	Items           domain.OrderItems    `json:"items"`
	OrderAmount     int64                `json:"order_amount"`
	PaymentStatus   domain.PaymentStatus `json:"payment_status"`
	OrderStatus     domain.OrderStatus   `json:"order_status"`
	DeliveryAddress string               `json:"delivery_address"`
	AdditionalInfo  domain.JSONMap       `json:"additional_info"`
	TransactionID   *string              `json:"transaction_id,omitempty"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type PaymentResponse struct {
	ID             string               `json:"id"`
	OrderID        string               `json:"order"`
	Amount         int64                `json:"amount"`
	TransactionID  *string              `json:"transaction_id"`
	GatewayOrderID string               `json:"gateway_order_id"`
	PaymentStatus  domain.PaymentStatus `json:"payment_status"`
	PaymentMethod  domain.PaymentMethod `json:"payment_method"`
	AdditionalInfo domain.JSONMap       `json:"additional_info"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type OrderDetailResponse struct {
	Order         OrderResponse     `json:"order"`
	Payments      []PaymentResponse `json:"payments"`
	StatusUpdated bool              `json:"status_updated"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// NewOrderResponse renders an order. latest, if given, supplies the
// transaction id and payment method shown on the order itself.
func NewOrderResponse(o *domain.Order, latest *domain.Payment) OrderResponse {
	items := o.Items
	if items == nil {
		items = domain.OrderItems{}
	}
	resp := OrderResponse{
		ID:              o.ID,
		Items:           items,
		OrderAmount:     o.OrderAmount,
		PaymentStatus:   o.PaymentStatus,
		OrderStatus:     o.OrderStatus,
		DeliveryAddress: o.DeliveryAddress,
		AdditionalInfo:  o.AdditionalInfo,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if latest != nil {
		resp.TransactionID = latest.TransactionID
		resp.PaymentMethod = latest.PaymentMethod
	}
	return resp
}

func NewPaymentResponse(p domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		TransactionID:  p.TransactionID,
		GatewayOrderID: p.GatewayOrderID,
		PaymentStatus:  p.PaymentStatus,
		PaymentMethod:  p.PaymentMethod,
		AdditionalInfo: p.AdditionalInfo,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func NewOrderDetailResponse(v *services.OrderView) OrderDetailResponse {
	var latest *domain.Payment
	if len(v.Payments) > 0 {
		latest = &v.Payments[0]
	}
	payments := make([]PaymentResponse, 0, len(v.Payments))
	for _, p := range v.Payments {
		payments = append(payments, NewPaymentResponse(p))
	}
	return OrderDetailResponse{
		Order:         NewOrderResponse(v.Order, latest),
		Payments:      payments,
		StatusUpdated: v.StatusUpdated,
	}
}
