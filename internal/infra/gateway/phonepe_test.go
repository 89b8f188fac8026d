package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"checkout-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePhonePe struct {
	tokenCalls atomic.Int32
	payStatus  int
	payBody    string
	statusBody string

	mu      sync.Mutex
	lastPay payRequest
}

func (f *fakePhonePe) pay() payRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPay
}

func (f *fakePhonePe) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok",
			"token_type":   "O-Bearer",
			"expires_at":   time.Now().Add(time.Hour).Unix(),
		})
	})
	mux.HandleFunc("/checkout/v2/pay", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "O-Bearer tok", r.Header.Get("Authorization"))
		f.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&f.lastPay)
		f.mu.Unlock()
		w.WriteHeader(f.payStatus)
		_, _ = w.Write([]byte(f.payBody))
	})
	mux.HandleFunc("/checkout/v2/order/ord-1/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "false", r.URL.Query().Get("details"))
		_, _ = w.Write([]byte(f.statusBody))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakePhonePe) *PhonePe {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewPhonePe(config.Gateway{
		BaseURL:       srv.URL,
		AuthURL:       srv.URL,
		ClientID:      "cid",
		ClientSecret:  "secret",
		ClientVersion: "1",
		Timeout:       2 * time.Second,
		ExpireAfter:   20 * time.Minute,
	})
}

func TestPhonePe_Initiate(t *testing.T) {
	f := &fakePhonePe{
		payStatus: http.StatusOK,
		payBody:   `{"orderId":"OMO123","state":"PENDING","expireAt":1760884967081,"redirectUrl":"https://pay.example/checkout"}`,
	}
	c := newTestClient(t, f)

	resp, err := c.Initiate(context.Background(), InitiateRequest{
		MerchantOrderID: "ord-1",
		Amount:          28000,
		CallbackURL:     "http://localhost:4200/order/status/ord-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "OMO123", resp.GatewayOrderID)
	assert.Equal(t, "https://pay.example/checkout", resp.RedirectURL)
	assert.Equal(t, time.UnixMilli(1760884967081).UTC(), resp.ExpireAt)

	sent := f.pay()
	assert.Equal(t, "ord-1", sent.MerchantOrderID)
	assert.Equal(t, int64(28000), sent.Amount)
	assert.Equal(t, int64(1200), sent.ExpireAfter)
	assert.Equal(t, "PG_CHECKOUT", sent.PaymentFlow.Type)
	assert.Equal(t, "http://localhost:4200/order/status/ord-1", sent.PaymentFlow.MerchantUrls.RedirectURL)

	// token is cached across calls
	_, err = c.Initiate(context.Background(), InitiateRequest{MerchantOrderID: "ord-1", Amount: 100})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenCalls.Load())
}

func TestPhonePe_InitiateAPIError(t *testing.T) {
	f := &fakePhonePe{
		payStatus: http.StatusBadRequest,
		payBody:   `{"code":"BAD_REQUEST","message":"amount is invalid"}`,
	}
	c := newTestClient(t, f)

	_, err := c.Initiate(context.Background(), InitiateRequest{MerchantOrderID: "ord-1", Amount: 50})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	assert.Contains(t, err.Error(), "amount is invalid")
}

func TestPhonePe_InitiateRejectsNonPositiveAmount(t *testing.T) {
	c := newTestClient(t, &fakePhonePe{})

	_, err := c.Initiate(context.Background(), InitiateRequest{MerchantOrderID: "ord-1", Amount: 0})
	assert.Error(t, err)
}

func TestPhonePe_OrderStatusReturnsRawBody(t *testing.T) {
	body := `{"orderId":"OMO123","state":"COMPLETED","paymentDetails":[{"transactionId":"T1","paymentMode":"UPI_QR"}]}`
	c := newTestClient(t, &fakePhonePe{statusBody: body})

	payload, err := c.OrderStatus(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Nil(t, payload.Structured)
	assert.Equal(t, body, payload.Raw)

	res := Normalize(payload)
	require.True(t, res.OK())
	assert.Equal(t, "T1", res.Status.TransactionID)
}

func TestPhonePe_OrderStatusTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_at":` + jsonInt(time.Now().Add(time.Hour).Unix()) + `}`))
			return
		}
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewPhonePe(config.Gateway{BaseURL: srv.URL, AuthURL: srv.URL, Timeout: 100 * time.Millisecond})

	_, err := c.OrderStatus(context.Background(), "ord-1")
	assert.Error(t, err)
}

func TestPhonePe_RejectedTokenIsRefetched(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth/token" {
			n := tokenCalls.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": fmt.Sprintf("tok-%d", n),
				"token_type":   "O-Bearer",
				"expires_at":   time.Now().Add(time.Hour).Unix(),
			})
			return
		}
		if r.Header.Get("Authorization") == "O-Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","message":"token revoked"}`))
			return
		}
		_, _ = w.Write([]byte(`{"state":"PENDING"}`))
	}))
	defer srv.Close()

	c := NewPhonePe(config.Gateway{BaseURL: srv.URL, AuthURL: srv.URL, Timeout: time.Second})

	_, err := c.OrderStatus(context.Background(), "ord-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	payload, err := c.OrderStatus(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, `{"state":"PENDING"}`, payload.Raw)
	assert.Equal(t, int32(2), tokenCalls.Load())

	_, err = c.OrderStatus(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load(), "fresh token stays cached")
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
