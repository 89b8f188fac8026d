// Package logkey holds the attribute names shared by every structured log line.
package logkey

const (
	TraceID   = "trace_id"
	UserID    = "user_id"
	OrderID   = "order_id"
	PaymentID = "payment_id"
	Error     = "error"
	Component = "component"
)
