package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"checkout-service/internal/config"
)

const maxStatusBody = 1 << 20

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway returned status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
}

// PhonePe talks to the PhonePe standard checkout v2 API.
type PhonePe struct {
	cfg        config.Gateway
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenType   string
	tokenExpiry time.Time
}

func NewPhonePe(cfg config.Gateway) *PhonePe {
	return &PhonePe{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type payRequest struct {
	MerchantOrderID string            `json:"merchantOrderId"`
	Amount          int64             `json:"amount"`
	ExpireAfter     int64             `json:"expireAfter,omitempty"`
	MetaInfo        map[string]string `json:"metaInfo,omitempty"`
	PaymentFlow     payFlow           `json:"paymentFlow"`
}

type payFlow struct {
	Type         string `json:"type"`
	MerchantUrls struct {
		RedirectURL string `json:"redirectUrl"`
	} `json:"merchantUrls"`
}

type payResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	ExpireAt    int64  `json:"expireAt"`
	RedirectURL string `json:"redirectUrl"`
}

func (c *PhonePe) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("initiate: amount must be positive, got %d", req.Amount)
	}

	body := payRequest{
		MerchantOrderID: req.MerchantOrderID,
		Amount:          req.Amount,
		ExpireAfter:     int64(c.cfg.ExpireAfter / time.Second),
		MetaInfo:        req.MetaInfo,
	}
	body.PaymentFlow.Type = "PG_CHECKOUT"
	body.PaymentFlow.MerchantUrls.RedirectURL = req.CallbackURL

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("initiate: encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/checkout/v2/pay", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("initiate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var pr payResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("initiate: decode response: %w", err)
	}
	if pr.RedirectURL == "" {
		return nil, fmt.Errorf("initiate: gateway returned no redirect url")
	}

	out := &InitiateResponse{
		GatewayOrderID: pr.OrderID,
		State:          pr.State,
		RedirectURL:    pr.RedirectURL,
	}
	if pr.ExpireAt > 0 {
		out.ExpireAt = time.UnixMilli(pr.ExpireAt).UTC()
	}
	slog.Info("gateway payment initiated",
		slog.String("merchant_order_id", req.MerchantOrderID),
		slog.String("gateway_order_id", pr.OrderID),
		slog.Int64("amount", req.Amount))
	return out, nil
}

// OrderStatus returns the body verbatim as a raw payload.
func (c *PhonePe) OrderStatus(ctx context.Context, merchantOrderID string) (StatusPayload, error) {
	endpoint := fmt.Sprintf("%s/checkout/v2/order/%s/status?details=false",
		c.cfg.BaseURL, url.PathEscape(merchantOrderID))

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StatusPayload{}, fmt.Errorf("order status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusPayload{}, readAPIError(resp)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return StatusPayload{}, fmt.Errorf("order status: read body: %w", err)
	}
	return RawPayload(string(b)), nil
}

func (c *PhonePe) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	auth, err := c.authorization(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.dropToken(auth)
	}
	return resp, nil
}

// dropToken forgets the cached token if it is still the one that was rejected.
func (c *PhonePe) dropToken(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.tokenType+" "+c.token == rejected {
		c.token = ""
		c.tokenExpiry = time.Time{}
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// authorization returns the header value, fetching a new OAuth token when the
// cached one is missing or within a minute of expiry.
func (c *PhonePe) authorization(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.tokenType + " " + c.token, nil
	}

	form := url.Values{
		"client_id":      {c.cfg.ClientID},
		"client_version": {c.cfg.ClientVersion},
		"client_secret":  {c.cfg.ClientSecret},
		"grant_type":     {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("fetch token: decode: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("fetch token: empty access token")
	}
	if tr.TokenType == "" {
		tr.TokenType = "O-Bearer"
	}

	c.token = tr.AccessToken
	c.tokenType = tr.TokenType
	c.tokenExpiry = time.Unix(tr.ExpiresAt, 0)
	return c.tokenType + " " + c.token, nil
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &body); err == nil && (body.Code != "" || body.Message != "") {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(b))
	}
	return apiErr
}
