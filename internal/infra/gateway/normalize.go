package gateway

import (
	"encoding/json"
	"strings"

	"checkout-service/internal/domain"
)

// SoftFailure names why a status query produced nothing usable. The zero value
// means the payload was understood.
type SoftFailure string

const (
	SoftFailureUnreachable SoftFailure = "gateway_unreachable"
	SoftFailureEmpty       SoftFailure = "empty_response"
	SoftFailureMalformed   SoftFailure = "malformed_response"
)

// Status is the strict internal view of a gateway status response.
type Status struct {
	State         domain.PaymentStatus
	ReportedState string
	TransactionID string
	Method        domain.PaymentMethod
	Detail        *PaymentDetail
}

type Result struct {
	Status Status
	Soft   SoftFailure
	Reason string
	// Raw is the payload as received, kept for audit.
	Raw string
}

func (r Result) OK() bool {
	return r.Soft == ""
}

// Unreachable wraps a failed gateway call.
func Unreachable(err error) Result {
	return Result{Soft: SoftFailureUnreachable, Reason: err.Error()}
}

// MapState is the identity mapping onto payment status. Anything the gateway
// reports outside COMPLETED/FAILED stays PENDING.
func MapState(state string) domain.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case string(domain.PaymentCompleted):
		return domain.PaymentCompleted
	case string(domain.PaymentFailed):
		return domain.PaymentFailed
	}
	return domain.PaymentPending
}

// Normalize turns either payload variant into a Result. It never panics or
// returns an error: anything it cannot read becomes a soft failure.
func Normalize(p StatusPayload) Result {
	if p.Empty() {
		return Result{Soft: SoftFailureEmpty, Reason: "gateway returned no status"}
	}

	resp := p.Structured
	raw := p.Raw
	if resp == nil {
		decoded, err := decodeStatus(raw)
		if err != nil {
			return Result{Soft: SoftFailureMalformed, Reason: err.Error(), Raw: raw}
		}
		resp = decoded
	} else if b, err := json.Marshal(resp); err == nil {
		raw = string(b)
	}

	if strings.TrimSpace(resp.State) == "" {
		return Result{Soft: SoftFailureMalformed, Reason: "status response has no state", Raw: raw}
	}

	st := Status{
		State:         MapState(resp.State),
		ReportedState: resp.State,
		TransactionID: resp.TransactionID,
	}
	mode := resp.PaymentMode
	if len(resp.Details) > 0 {
		d := resp.Details[0]
		st.Detail = &d
		if st.TransactionID == "" {
			st.TransactionID = d.TransactionID
		}
		if mode == "" {
			mode = d.PaymentMode
		}
	}
	if mode != "" {
		if m, ok := domain.ParsePaymentMethod(strings.ToUpper(string(mode))); ok {
			st.Method = m
		} else {
			st.Method = domain.MethodUnknown
		}
	}

	return Result{Status: st, Raw: raw}
}
