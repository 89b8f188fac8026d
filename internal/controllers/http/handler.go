package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"checkout-service/internal/auth"
	"checkout-service/internal/domain"
	"checkout-service/internal/services"
	"checkout-service/pkg/ctxmanage"
	"checkout-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID string, addressID *uint64) (*services.CheckoutResult, error)
}

type OrderService interface {
	GetOrderView(ctx context.Context, userID, orderID string) (*services.OrderView, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

type Handler struct {
	checkout CheckoutService
	orders   OrderService
}

func NewHandler(checkout CheckoutService, orders OrderService) *Handler {
	return &Handler{checkout: checkout, orders: orders}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, authenticate gin.HandlerFunc) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	orders := r.Group("/api/orders", authenticate)
	orders.POST("/checkout", h.Checkout)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
}

func (h *Handler) Checkout(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.checkout.Checkout(c.Request.Context(), userID, req.AddressID)
	if err != nil {
		var initErr *services.PaymentInitiationError
		switch {
		case errors.Is(err, services.ErrMissingParameter):
			c.JSON(http.StatusBadRequest, gin.H{"error": "address_id is required"})
		case errors.Is(err, services.ErrAddressNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Address not found or does not belong to user"})
		case errors.Is(err, services.ErrEmptyCart):
			c.JSON(http.StatusNotFound, gin.H{"error": "Cart is empty"})
		case errors.As(err, &initErr):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment initiation failed", "details": initErr.Err.Error()})
		default:
			slog.Error("checkout failed", slog.String(logkey.TraceID, traceID), slog.String(logkey.UserID, userID), slog.String(logkey.Error, err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Checkout failed", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, CheckoutResponse{
		Success:     true,
		OrderID:     res.OrderID,
		RedirectURL: res.RedirectURL,
		Message:     "Order created successfully",
	})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.orders.GetOrderView(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("failed to load order", slog.String(logkey.TraceID, traceID), slog.String(logkey.OrderID, c.Param("id")), slog.String(logkey.Error, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, NewOrderDetailResponse(view))
}

func (h *Handler) ListOrders(c *gin.Context) {
	traceID := ctxmanage.GetTraceIdOfRequest(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to list orders", slog.String(logkey.TraceID, traceID), slog.String(logkey.UserID, userID), slog.String(logkey.Error, err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders", "details": err.Error()})
		return
	}

	resp := OrderListResponse{Orders: make([]OrderResponse, 0, len(orders))}
	for i := range orders {
		resp.Orders = append(resp.Orders, NewOrderResponse(&orders[i], nil))
	}
	c.JSON(http.StatusOK, resp)
}

func currentUser(c *gin.Context) (string, bool) {
	claims, ok := auth.FromContext(c.Request.Context())
	if !ok || claims.Subject == "" {
		slog.Error("claims not found", slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return claims.Subject, true
}
