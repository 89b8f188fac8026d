package domain

import (
	"fmt"
	"strings"
	"time"
)

type Product struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:200;not null"`
	Discount    int64  `gorm:"not null;default:0"`
	IsAvailable bool   `gorm:"not null;default:true"`
}

type Variant struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	ProductID   uint64 `gorm:"not null;index"`
	Size        string `gorm:"size:100"`
	Type        string `gorm:"size:50"`
	Price       int64  `gorm:"not null"`
	IsAvailable bool   `gorm:"not null;default:true"`
}

// Label is how a variant is named on an order line, e.g. "Large (Veg)".
func (v Variant) Label() string {
	size, typ := strings.TrimSpace(v.Size), strings.TrimSpace(v.Type)
	switch {
	case size == "":
		return typ
	case typ == "":
		return size
	}
	return fmt.Sprintf("%s (%s)", size, typ)
}

type CartItem struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_user_product_variant"`
	ProductID uint64    `gorm:"not null;uniqueIndex:idx_cart_user_product_variant"`
	VariantID uint64    `gorm:"not null;uniqueIndex:idx_cart_user_product_variant"`
	Quantity  int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// CartLine is a cart item joined with the current catalog data it refers to.
type CartLine struct {
	ID           uint64
	ProductID    uint64
	VariantID    uint64
	Quantity     int64
	ProductName  string
	VariantLabel string
	Price        int64
	Discount     int64
}

// Snapshot freezes the line into an order item.
func (l CartLine) Snapshot() OrderItem {
	return OrderItem{
		ProductID:    l.ProductID,
		VariantID:    l.VariantID,
		Quantity:     l.Quantity,
		Price:        l.Price,
		Discount:     l.Discount,
		ProductName:  l.ProductName,
		VariantLabel: l.VariantLabel,
	}
}
