package domain

import "time"

type PaymentMethod string

const (
	MethodUPIIntent  PaymentMethod = "UPI_INTENT"
	MethodUPICollect PaymentMethod = "UPI_COLLECT"
	MethodUPIQR      PaymentMethod = "UPI_QR"
	MethodCard       PaymentMethod = "CARD"
	MethodToken      PaymentMethod = "TOKEN"
	MethodNetBanking PaymentMethod = "NET_BANKING"
	MethodCash       PaymentMethod = "CASH"
	MethodUnknown    PaymentMethod = "UNKNOWN"
)

var knownMethods = map[PaymentMethod]struct{}{
	MethodUPIIntent:  {},
	MethodUPICollect: {},
	MethodUPIQR:      {},
	MethodCard:       {},
	MethodToken:      {},
	MethodNetBanking: {},
	MethodCash:       {},
}

// ParsePaymentMethod maps a gateway instrument name onto a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m := PaymentMethod(s)
	_, ok := knownMethods[m]
	return m, ok
}

// Additional info keys kept on a Payment.
const (
	InfoRedirectURL      = "redirect_url"
	InfoExpireAt         = "expire_at"
	InfoCallbackURL      = "callback_url"
	InfoMerchantOrderID  = "merchant_order_id"
	InfoLastChecked      = "last_checked"
	InfoGatewayResponse  = "gateway_response"
	InfoGatewayError     = "gateway_error"
	InfoTimestamp        = "timestamp"
	InfoErrorCode        = "error_code"
	InfoErrorDetail      = "error_detail"
	InfoUPITransactionID = "upi_transaction_id"
)

type Payment struct {
	ID             string        `json:"id" gorm:"primaryKey;type:char(36)"`
	OrderID        string        `json:"order" gorm:"type:char(36);not null;index"`
	Amount         int64         `json:"amount" gorm:"not null"`
	TransactionID  *string       `json:"transaction_id" gorm:"size:100"`
	GatewayOrderID string        `json:"gateway_order_id" gorm:"size:100;index"`
	PaymentStatus  PaymentStatus `json:"payment_status" gorm:"type:enum('PENDING','COMPLETED','FAILED');default:'PENDING';not null"`
	PaymentMethod  PaymentMethod `json:"payment_method" gorm:"size:20;default:'UNKNOWN'"`
	AdditionalInfo JSONMap       `json:"additional_info" gorm:"type:json"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}
