package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StatusPayload is what a status query hands back: either the raw body as
// received or a response some adapter already decoded. Exactly one side is set.
type StatusPayload struct {
	Raw        string
	Structured *StatusResponse
}

func RawPayload(body string) StatusPayload {
	return StatusPayload{Raw: body}
}

func StructuredPayload(r StatusResponse) StatusPayload {
	return StatusPayload{Structured: &r}
}

func (p StatusPayload) Empty() bool {
	return p.Structured == nil && strings.TrimSpace(p.Raw) == ""
}

type StatusResponse struct {
	OrderID       string          `json:"orderId,omitempty"`
	State         string          `json:"state"`
	Amount        int64           `json:"amount,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	PaymentMode   Mode            `json:"paymentMode,omitempty"`
	Details       []PaymentDetail `json:"paymentDetails,omitempty"`
}

type PaymentDetail struct {
	TransactionID     string `json:"transactionId,omitempty"`
	PaymentMode       Mode   `json:"paymentMode,omitempty"`
	State             string `json:"state,omitempty"`
	Amount            int64  `json:"amount,omitempty"`
	Timestamp         int64  `json:"timestamp,omitempty"`
	ErrorCode         string `json:"errorCode,omitempty"`
	DetailedErrorCode string `json:"detailedErrorCode,omitempty"`
	UPITransactionID  string `json:"upiTransactionId,omitempty"`
}

// Mode is a payment instrument name. On the wire it is either a bare string or
// an object wrapping it as {"value": "..."}.
type Mode string

func (m *Mode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = Mode(s)
		return nil
	}
	var wrapped struct {
		Value *string `json:"value"`
		Type  *string `json:"type"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return fmt.Errorf("payment mode: %w", err)
	}
	switch {
	case wrapped.Value != nil:
		*m = Mode(*wrapped.Value)
	case wrapped.Type != nil:
		*m = Mode(*wrapped.Type)
	}
	return nil
}

type fields map[string]json.RawMessage

// pick decodes the first key present into dst. Gateways and SDK dumps disagree
// on camelCase vs snake_case, so callers list both.
func (f fields) pick(dst any, keys ...string) error {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("field %s: %w", k, err)
		}
		return nil
	}
	return nil
}

// decodeStatus parses a raw status body. A {"data": {...}} envelope is unwrapped.
func decodeStatus(body string) (*StatusResponse, error) {
	var top fields
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, err
	}
	if top == nil {
		return nil, fmt.Errorf("status body is not an object")
	}
	if raw, ok := top["data"]; ok {
		var inner fields
		if err := json.Unmarshal(raw, &inner); err == nil && inner != nil {
			top = inner
		}
	}

	var r StatusResponse
	for _, step := range []struct {
		dst  any
		keys []string
	}{
		{&r.OrderID, []string{"orderId", "order_id"}},
		{&r.State, []string{"state"}},
		{&r.Amount, []string{"amount"}},
		{&r.TransactionID, []string{"transactionId", "transaction_id"}},
		{&r.PaymentMode, []string{"paymentMode", "payment_mode"}},
	} {
		if err := top.pick(step.dst, step.keys...); err != nil {
			return nil, err
		}
	}

	var details []fields
	if err := top.pick(&details, "paymentDetails", "payment_details"); err != nil {
		return nil, err
	}
	for _, d := range details {
		pd, err := decodeDetail(d)
		if err != nil {
			return nil, err
		}
		r.Details = append(r.Details, pd)
	}
	return &r, nil
}

func decodeDetail(f fields) (PaymentDetail, error) {
	var d PaymentDetail
	for _, step := range []struct {
		dst  any
		keys []string
	}{
		{&d.TransactionID, []string{"transactionId", "transaction_id"}},
		{&d.PaymentMode, []string{"paymentMode", "payment_mode"}},
		{&d.State, []string{"state"}},
		{&d.Amount, []string{"amount"}},
		{&d.Timestamp, []string{"timestamp"}},
		{&d.ErrorCode, []string{"errorCode", "error_code"}},
		{&d.DetailedErrorCode, []string{"detailedErrorCode", "detailed_error_code"}},
	} {
		if err := f.pick(step.dst, step.keys...); err != nil {
			return d, err
		}
	}

	var splits []struct {
		Rail fields `json:"rail"`
	}
	if err := f.pick(&splits, "splitInstruments", "split_instruments"); err != nil {
		return d, err
	}
	for _, s := range splits {
		if err := s.Rail.pick(&d.UPITransactionID, "upiTransactionId", "upi_transaction_id"); err != nil {
			return d, err
		}
		if d.UPITransactionID != "" {
			break
		}
	}
	return d, nil
}
