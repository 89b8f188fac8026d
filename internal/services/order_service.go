package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra/gateway"
	rabbit "checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/infra/redislock"
	"checkout-service/internal/repository"
	"checkout-service/pkg/logkey"

	"golang.org/x/sync/singleflight"
)

// OrderView is an order as returned to its owner. Payments are newest first.
type OrderView struct {
	Order         *domain.Order
	Payments      []domain.Payment
	StatusUpdated bool
	// GatewayCheck is the soft failure of the live check, if one was made and failed.
	GatewayCheck gateway.SoftFailure
}

type OrderService struct {
	repo      repository.OrderRepository
	gateway   gateway.Client
	publisher rabbit.PublisherInterface

	locker  redislock.LockerInterface
	lockTTL time.Duration

	gatewayTimeout time.Duration
	group          singleflight.Group
	now            func() time.Time
}

func NewOrderService(r repository.OrderRepository, gw gateway.Client, pub rabbit.PublisherInterface, gatewayTimeout time.Duration) *OrderService {
	return &OrderService{
		repo:           r,
		gateway:        gw,
		publisher:      pub,
		gatewayTimeout: gatewayTimeout,
		now:            time.Now,
	}
}

// SetLocker makes status checks take a shared lock per order, so only one
// instance queries the gateway for a given order at a time.
func (s *OrderService) SetLocker(l redislock.LockerInterface, ttl time.Duration) {
	s.locker = l
	s.lockTTL = ttl
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetOrderView loads the user's order and, while its payment is pending, asks
// the gateway for the current state first. A gateway that is down or answers
// garbage never fails the read; the last known state is returned instead.
func (s *OrderService) GetOrderView(ctx context.Context, userID, orderID string) (*OrderView, error) {
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	view := &OrderView{Order: order}

	if !order.PaymentStatus.Settled() {
		out, err := s.reconcileOnce(ctx, order)
		if err != nil {
			return nil, err
		}
		view.StatusUpdated = out.updated
		view.GatewayCheck = out.soft

		// re-read even when nothing was applied here: another instance may have
		// settled the payment while this check ran or held the lock
		reloaded, err := s.repo.FindByIDForUser(ctx, orderID, userID)
		if err != nil {
			return nil, err
		}
		if reloaded != nil {
			view.Order = reloaded
		}
	}

	payments, err := s.repo.FindPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	view.Payments = payments
	return view, nil
}

type reconcileOutcome struct {
	updated bool
	soft    gateway.SoftFailure
}

// reconcileOnce collapses concurrent checks of the same order in this process.
func (s *OrderService) reconcileOnce(ctx context.Context, order *domain.Order) (reconcileOutcome, error) {
	v, err, _ := s.group.Do(order.ID, func() (any, error) {
		return s.reconcile(context.WithoutCancel(ctx), order)
	})
	if err != nil {
		return reconcileOutcome{}, err
	}
	return v.(reconcileOutcome), nil
}

func (s *OrderService) reconcile(ctx context.Context, order *domain.Order) (reconcileOutcome, error) {
	log := slog.With(slog.String(logkey.OrderID, order.ID))

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, order.ID, s.lockTTL)
		switch {
		case err != nil:
			log.Warn("reconcile lock unavailable, checking without it", slog.String(logkey.Error, err.Error()))
		case !ok:
			log.Debug("order is being checked elsewhere")
			return reconcileOutcome{}, nil
		default:
			defer release()
		}
	}

	payments, err := s.repo.FindPayments(ctx, order.ID)
	if err != nil {
		return reconcileOutcome{}, fmt.Errorf("load payments: %w", err)
	}
	if len(payments) == 0 {
		log.Warn("pending order has no payment")
		return reconcileOutcome{}, nil
	}
	payment := payments[0]

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	payload, err := s.gateway.OrderStatus(gctx, order.ID)
	cancel()

	var res gateway.Result
	if err != nil {
		res = gateway.Unreachable(err)
	} else {
		res = gateway.Normalize(payload)
	}

	check := repository.PaymentCheck{
		OrderID:   order.ID,
		PaymentID: payment.ID,
		Status:    domain.PaymentPending,
		Info:      checkInfo(res, s.now()),
	}
	if res.OK() {
		check.Status = res.Status.State
		check.TransactionID = res.Status.TransactionID
		check.Method = res.Status.Method
	} else {
		log.Warn("payment status check failed, keeping last known state",
			slog.String("soft_failure", string(res.Soft)),
			slog.String("reason", res.Reason))
	}

	applied, err := s.repo.ApplyPaymentCheck(ctx, check)
	if err != nil {
		return reconcileOutcome{}, err
	}

	if applied {
		orderStatus, _ := domain.OrderStatusFor(check.Status)
		log.Info("payment status reconciled",
			slog.String(logkey.PaymentID, payment.ID),
			slog.String("payment_status", string(check.Status)),
			slog.String("order_status", string(orderStatus)))
		go s.publishPaymentUpdated(context.Background(), domain.PaymentUpdatedEvent{
			OrderID:       order.ID,
			PaymentID:     payment.ID,
			PaymentStatus: check.Status,
			OrderStatus:   orderStatus,
			TransactionID: check.TransactionID,
			UpdatedAt:     s.now().UTC(),
		})
	}

	return reconcileOutcome{updated: applied, soft: res.Soft}, nil
}

// checkInfo is what every live check leaves on the payment for audit.
func checkInfo(res gateway.Result, at time.Time) domain.JSONMap {
	info := domain.JSONMap{
		domain.InfoLastChecked:     at.UTC().Format(time.RFC3339),
		domain.InfoGatewayResponse: res.Raw,
	}
	if !res.OK() {
		info[domain.InfoGatewayError] = fmt.Sprintf("%s: %s", res.Soft, res.Reason)
		return info
	}
	if d := res.Status.Detail; d != nil {
		if d.Timestamp != 0 {
			info[domain.InfoTimestamp] = d.Timestamp
		}
		if d.ErrorCode != "" {
			info[domain.InfoErrorCode] = d.ErrorCode
		}
		if d.DetailedErrorCode != "" {
			info[domain.InfoErrorDetail] = d.DetailedErrorCode
		}
		if d.UPITransactionID != "" {
			info[domain.InfoUPITransactionID] = d.UPITransactionID
		}
	}
	return info
}

func (s *OrderService) publishPaymentUpdated(ctx context.Context, evt domain.PaymentUpdatedEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, rabbit.RoutingOrderPaymentUpdated, evt); err != nil {
		slog.Warn("failed to publish event",
			slog.String("routing_key", rabbit.RoutingOrderPaymentUpdated),
			slog.String(logkey.OrderID, evt.OrderID),
			slog.String(logkey.Error, err.Error()))
	}
}
