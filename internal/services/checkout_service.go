package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra/gateway"
	rabbit "checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/repository"
	"checkout-service/pkg/logkey"

	"github.com/google/uuid"
)

type CheckoutResult struct {
	OrderID     string
	RedirectURL string
	OrderAmount int64
}

type CheckoutService struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	addresses repository.AddressRepository
	gateway   gateway.Client
	publisher rabbit.PublisherInterface

	callbackBaseURL string
	gatewayTimeout  time.Duration
	newID           func() string
}

func NewCheckoutService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	addresses repository.AddressRepository,
	gw gateway.Client,
	pub rabbit.PublisherInterface,
	callbackBaseURL string,
	gatewayTimeout time.Duration,
) *CheckoutService {
	return &CheckoutService{
		orders:          orders,
		carts:           carts,
		addresses:       addresses,
		gateway:         gw,
		publisher:       pub,
		callbackBaseURL: callbackBaseURL,
		gatewayTimeout:  gatewayTimeout,
		newID:           uuid.NewString,
	}
}

// Checkout turns the user's cart into a pending order with one pending payment
// and returns where to send the user to pay.
//
// The gateway is called before any row is written so no database lock is held
// across it. If the gateway fails nothing is written; if the write fails after
// the gateway accepted, the gateway order is abandoned and expires on its side.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, addressID *uint64) (*CheckoutResult, error) {
	if addressID == nil || *addressID == 0 {
		return nil, ErrMissingParameter
	}

	addr, err := s.addresses.FindOwned(ctx, *addressID, userID)
	if err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}
	if addr == nil {
		return nil, ErrAddressNotFound
	}

	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make(domain.OrderItems, 0, len(lines))
	lineIDs := make([]uint64, 0, len(lines))
	for _, l := range lines {
		items = append(items, l.Snapshot())
		lineIDs = append(lineIDs, l.ID)
	}

	orderID := s.newID()
	order, err := domain.NewOrder(orderID, userID, items, addr.Format(), domain.JSONMap{
		"address_id":  *addressID,
		"total_items": len(items),
	})
	if err != nil {
		return nil, err
	}

	log := slog.With(slog.String(logkey.OrderID, orderID), slog.String(logkey.UserID, userID))
	callbackURL := fmt.Sprintf("%s/order/status/%s", s.callbackBaseURL, orderID)

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	initiated, err := s.gateway.Initiate(gctx, gateway.InitiateRequest{
		MerchantOrderID: orderID,
		Amount:          order.OrderAmount,
		CallbackURL:     callbackURL,
		MetaInfo: map[string]string{
			"udf1": userID,
			"udf2": strconv.FormatUint(*addressID, 10),
		},
	})
	cancel()
	if err == nil && initiated == nil {
		err = errNoInitiateResponse
	}
	if err != nil {
		log.Error("payment initiation failed", slog.Int64("order_amount", order.OrderAmount), slog.String(logkey.Error, err.Error()))
		return nil, &PaymentInitiationError{Err: err}
	}

	gatewayOrderID := initiated.GatewayOrderID
	if gatewayOrderID == "" {
		gatewayOrderID = orderID
	}
	expireAt := ""
	if !initiated.ExpireAt.IsZero() {
		expireAt = initiated.ExpireAt.Format(time.RFC3339)
	}

	payment := &domain.Payment{
		ID:             s.newID(),
		OrderID:        orderID,
		Amount:         order.OrderAmount,
		GatewayOrderID: gatewayOrderID,
		PaymentStatus:  domain.PaymentPending,
		PaymentMethod:  domain.MethodUnknown,
		AdditionalInfo: domain.JSONMap{
			domain.InfoRedirectURL:     initiated.RedirectURL,
			domain.InfoExpireAt:        expireAt,
			domain.InfoCallbackURL:     callbackURL,
			domain.InfoMerchantOrderID: orderID,
		},
	}

	err = s.orders.PlaceOrder(ctx, repository.PlaceOrder{
		Order:       order,
		Payment:     payment,
		CartItemIDs: lineIDs,
	})
	if err != nil {
		log.Error("order rolled back after payment was initiated",
			slog.String("gateway_order_id", gatewayOrderID),
			slog.String(logkey.Error, err.Error()))
		return nil, fmt.Errorf("place order: %w", err)
	}

	go s.publishOrderCreated(context.Background(), order)

	return &CheckoutResult{
		OrderID:     orderID,
		RedirectURL: initiated.RedirectURL,
		OrderAmount: order.OrderAmount,
	}, nil
}

func (s *CheckoutService) publishOrderCreated(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	evt := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		OrderAmount: order.OrderAmount,
		ItemCount:   len(order.Items),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, rabbit.RoutingOrderCreated, evt); err != nil {
		slog.Warn("failed to publish event",
			slog.String("routing_key", rabbit.RoutingOrderCreated),
			slog.String(logkey.OrderID, order.ID),
			slog.String(logkey.Error, err.Error()))
	}
}
