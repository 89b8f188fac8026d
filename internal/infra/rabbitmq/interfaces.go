package rabbitmq

import "context"

const (
	RoutingOrderCreated        = "order.created"
	RoutingOrderPaymentUpdated = "order.payment_updated"
)

type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var _ PublisherInterface = (*Publisher)(nil)
