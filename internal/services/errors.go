package services

import (
	"errors"
	"fmt"
)

var (
	ErrMissingParameter = errors.New("address_id is required")
	ErrAddressNotFound  = errors.New("address not found or does not belong to user")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrOrderNotFound    = errors.New("order not found")

	errNoInitiateResponse = errors.New("gateway returned no response")
)

// PaymentInitiationError means the gateway refused or never answered the
// initiation call. Nothing was persisted.
type PaymentInitiationError struct {
	Err error
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("payment initiation failed: %v", e.Err)
}

func (e *PaymentInitiationError) Unwrap() error {
	return e.Err
}
