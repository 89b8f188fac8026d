package repository

import (
	"context"

	"checkout-service/internal/domain"
)

type CartRepository interface {
	Lines(ctx context.Context, userID string) ([]domain.CartLine, error)
}

type AddressRepository interface {
	FindOwned(ctx context.Context, id uint64, userID string) (*domain.Address, error)
}
