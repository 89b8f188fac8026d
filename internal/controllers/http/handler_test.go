package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/domain"
	"checkout-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type mockCheckoutService struct {
	mock.Mock
}

func (m *mockCheckoutService) Checkout(ctx context.Context, userID string, addressID *uint64) (*services.CheckoutResult, error) {
	args := m.Called(ctx, userID, addressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutResult), args.Error(1)
}

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) GetOrderView(ctx context.Context, userID, orderID string) (*services.OrderView, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderView), args.Error(1)
}

func (m *mockOrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func newRouter(t *testing.T, cs *mockCheckoutService, orders *mockOrderService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys, err := auth.NewKeys(testSecret)
	require.NoError(t, err)

	r := gin.New()
	r.Use(TraceLogger())
	NewHandler(cs, orders).RegisterRoutes(r, Authenticate(keys))
	return r
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	keys, err := auth.NewKeys(testSecret)
	require.NoError(t, err)
	tok, err := keys.GenerateToken(userID, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_Checkout(t *testing.T) {
	addressMatches := func(want uint64) any {
		return mock.MatchedBy(func(id *uint64) bool { return id != nil && *id == want })
	}

	tests := []struct {
		name         string
		body         string
		setupMocks   func(*mockCheckoutService)
		expectedCode int
		expectedBody map[string]any
	}{
		{
			name: "order created",
			body: `{"address_id": 456}`,
			setupMocks: func(cs *mockCheckoutService) {
				cs.On("Checkout", mock.Anything, "user-1", addressMatches(456)).Return(&services.CheckoutResult{
					OrderID:     "ord-1",
					RedirectURL: "https://pay.example/r",
					OrderAmount: 28000,
				}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: map[string]any{
				"success":      true,
				"order_id":     "ord-1",
				"redirect_url": "https://pay.example/r",
				"message":      "Order created successfully",
			},
		},
		{
			name: "missing address id",
			body: `{}`,
			setupMocks: func(cs *mockCheckoutService) {
				cs.On("Checkout", mock.Anything, "user-1", (*uint64)(nil)).Return(nil, services.ErrMissingParameter)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: map[string]any{"error": "address_id is required"},
		},
		{
			name: "empty body",
			body: "",
			setupMocks: func(cs *mockCheckoutService) {
				cs.On("Checkout", mock.Anything, "user-1", (*uint64)(nil)).Return(nil, services.ErrMissingParameter)
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: map[string]any{"error": "address_id is required"},
		},
		{
			name:         "malformed body",
			body:         `{"address_id": "abc"}`,
			setupMocks:   func(cs *mockCheckoutService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: map[string]any{"error": "Invalid request body"},
		},
		{
			name: "address not owned",
			body: `{"address_id": 999}`,
			setupMocks: func(cs *mockCheckoutService) {
				cs.On("Checkout", mock.Anything, "user-1", addressMatches(999)).Return(nil, services.ErrAddressNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: map[string]any{"error": "Address not found or does not belong to user"},
		},
		{
			name: "empty cart",
			body: `{"address_id": 456}`,
			setupMocks: func(cs *mockCheckoutService) {
				cs.On("Checkout", mock.Anything, "user-1", addressMatches(456)).Return(nil, services.ErrEmptyCart)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: map[string]any{"error": "Cart is empty"},
		},
		{
			name: "gateway failure",
			body: `{"address_id": 456}`,
			setupMocks: func(cs *mockCheckoutService) {
				cs.On("Checkout", mock.Anything, "user-1", addressMatches(456)).
					Return(nil, &services.PaymentInitiationError{Err: errors.New("gateway timeout")})
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: map[string]any{"error": "Payment initiation failed", "details": "gateway timeout"},
		},
		{
			name: "persistence failure",
			body: `{"address_id": 456}`,
			setupMocks: func(cs *mockCheckoutService) {
				cs.On("Checkout", mock.Anything, "user-1", addressMatches(456)).
					Return(nil, errors.New("place order: deadlock"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: map[string]any{"error": "Checkout failed", "details": "place order: deadlock"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := new(mockCheckoutService)
			tt.setupMocks(cs)
			r := newRouter(t, cs, new(mockOrderService))

			w := do(r, http.MethodPost, "/api/orders/checkout", tt.body, tokenFor(t, "user-1"))

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedBody, decode(t, w))
			cs.AssertExpectations(t)
		})
	}
}

func TestHandler_GetOrder(t *testing.T) {
	txn := "T1"
	created := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	view := &services.OrderView{
		Order: &domain.Order{
			ID:              "ord-1",
			Items:           domain.OrderItems{{ProductID: 1, VariantID: 10, Quantity: 2, Price: 15000, Discount: 1000, ProductName: "Paneer Tikka", VariantLabel: "Full (Veg)"}},
			OrderAmount:     28000,
			PaymentStatus:   domain.PaymentCompleted,
			OrderStatus:     domain.StatusConfirmed,
			DeliveryAddress: "12 MG Road, Bengaluru, Karnataka - 560038",
			CreatedAt:       created,
		},
		Payments: []domain.Payment{{
			ID:            "pay-1",
			OrderID:       "ord-1",
			Amount:        28000,
			TransactionID: &txn,
			PaymentStatus: domain.PaymentCompleted,
			PaymentMethod: domain.MethodUPIIntent,
		}},
		StatusUpdated: true,
	}

	t.Run("found", func(t *testing.T) {
		orders := new(mockOrderService)
		orders.On("GetOrderView", mock.Anything, "user-1", "ord-1").Return(view, nil)
		r := newRouter(t, new(mockCheckoutService), orders)

		w := do(r, http.MethodGet, "/api/orders/ord-1", "", tokenFor(t, "user-1"))

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, true, body["status_updated"])

		order := body["order"].(map[string]any)
		assert.Equal(t, "ord-1", order["id"])
		assert.Equal(t, float64(28000), order["order_amount"])
		assert.Equal(t, "COMPLETED", order["payment_status"])
		assert.Equal(t, "CONFIRMED", order["order_status"])
		assert.Equal(t, "T1", order["transaction_id"])
		assert.Equal(t, "UPI_INTENT", order["payment_method"])
		assert.NotContains(t, order, "user_id")
		assert.Len(t, order["items"], 1)

		payments := body["payments"].([]any)
		require.Len(t, payments, 1)
		assert.Equal(t, "pay-1", payments[0].(map[string]any)["id"])
	})

	t.Run("not found", func(t *testing.T) {
		orders := new(mockOrderService)
		orders.On("GetOrderView", mock.Anything, "user-2", "ord-1").Return(nil, services.ErrOrderNotFound)
		r := newRouter(t, new(mockCheckoutService), orders)

		w := do(r, http.MethodGet, "/api/orders/ord-1", "", tokenFor(t, "user-2"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, map[string]any{"error": "Order not found"}, decode(t, w))
	})

	t.Run("repository failure", func(t *testing.T) {
		orders := new(mockOrderService)
		orders.On("GetOrderView", mock.Anything, "user-1", "ord-1").Return(nil, errors.New("connection refused"))
		r := newRouter(t, new(mockCheckoutService), orders)

		w := do(r, http.MethodGet, "/api/orders/ord-1", "", tokenFor(t, "user-1"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_ListOrders(t *testing.T) {
	orders := new(mockOrderService)
	orders.On("ListOrders", mock.Anything, "user-1").Return([]domain.Order{
		{ID: "ord-2", OrderAmount: 9900, PaymentStatus: domain.PaymentPending, OrderStatus: domain.StatusPending},
		{ID: "ord-1", OrderAmount: 28000, PaymentStatus: domain.PaymentCompleted, OrderStatus: domain.StatusConfirmed},
	}, nil)
	r := newRouter(t, new(mockCheckoutService), orders)

	w := do(r, http.MethodGet, "/api/orders", "", tokenFor(t, "user-1"))

	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["orders"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "ord-2", list[0].(map[string]any)["id"])
	assert.Equal(t, []any{}, list[0].(map[string]any)["items"])
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(*http.Request)
		expectedCode int
	}{
		{
			name:         "no credentials",
			setup:        func(*http.Request) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "bad token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer nope")
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "wrong scheme",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic "+tokenFor(t, "user-1"))
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "bearer header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+tokenFor(t, "user-1"))
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "cookie",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "access_token", Value: tokenFor(t, "user-1")})
			},
			expectedCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(mockOrderService)
			orders.On("ListOrders", mock.Anything, "user-1").Return([]domain.Order{}, nil).Maybe()
			r := newRouter(t, new(mockCheckoutService), orders)

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestPingAndTraceID(t *testing.T) {
	r := newRouter(t, new(mockCheckoutService), new(mockOrderService))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"message": "pong"}, decode(t, w))
	assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/ping", "", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestTraceLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := newRouter(t, new(mockCheckoutService), new(mockOrderService))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "trace-456")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "http", line["component"])
	assert.Equal(t, "trace-456", line["trace_id"])
	assert.Equal(t, "/ping", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
}
