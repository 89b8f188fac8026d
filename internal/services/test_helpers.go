package services

import (
	"fmt"
	"time"

	"checkout-service/internal/domain"
)

func CreateMockAddress(id uint64, userID string) *domain.Address {
	return &domain.Address{
		ID:      id,
		UserID:  userID,
		Name:    "Home",
		Line:    "12 MG Road",
		Area:    "Indiranagar",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560038",
		Country: "India",
	}
}

func CreateMockCartLine(id, productID, variantID uint64, qty, price, discount int64) domain.CartLine {
	return domain.CartLine{
		ID:           id,
		ProductID:    productID,
		VariantID:    variantID,
		Quantity:     qty,
		ProductName:  fmt.Sprintf("Product %d", productID),
		VariantLabel: "Regular (Veg)",
		Price:        price,
		Discount:     discount,
	}
}

func CreateMockOrder(id, userID string, ps domain.PaymentStatus, os domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:     id,
		UserID: userID,
		Items: domain.OrderItems{
			{ProductID: 1, VariantID: 10, Quantity: 2, Price: TestUnitPrice, Discount: TestDiscount, ProductName: "Paneer Tikka", VariantLabel: "Full (Veg)"},
		},
		OrderAmount:     TestOrderAmount,
		PaymentStatus:   ps,
		OrderStatus:     os,
		DeliveryAddress: "12 MG Road, Indiranagar, Bengaluru, Karnataka - 560038",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func CreateMockPayment(id, orderID string, status domain.PaymentStatus) domain.Payment {
	return domain.Payment{
		ID:             id,
		OrderID:        orderID,
		Amount:         TestOrderAmount,
		GatewayOrderID: "OMO" + orderID,
		PaymentStatus:  status,
		PaymentMethod:  domain.MethodUnknown,
		AdditionalInfo: domain.JSONMap{
			domain.InfoRedirectURL: "https://pay.example/checkout",
		},
		CreatedAt: time.Now(),
	}
}

func ptr[T any](v T) *T {
	return &v
}

// sequentialIDs hands out the given ids in order.
func sequentialIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

const (
	TestUserID      = "user-1"
	OtherUserID     = "user-2"
	TestAddressID   = uint64(456)
	TestOrderID     = "ord-1"
	TestPaymentID   = "pay-1"
	TestUnitPrice   = int64(15000)
	TestDiscount    = int64(1000)
	TestOrderAmount = int64(28000)
	TestCallbackURL = "http://localhost:4200"
)
