package mysql

import (
	"context"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"

	"gorm.io/gorm"
)

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepo{db: db}
}

type cartLineRow struct {
	ID          uint64
	ProductID   uint64
	VariantID   uint64
	Quantity    int64
	ProductName string
	Discount    int64
	Price       int64
	Size        string
	Type        string
}

func (r *cartRepo) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var rows []cartLineRow
	err := r.db.WithContext(ctx).
		Table("cart_items AS c").
		Select("c.id, c.product_id, c.variant_id, c.quantity, p.name AS product_name, p.discount, v.price, v.size, v.type").
		Joins("JOIN products p ON p.id = c.product_id").
		Joins("JOIN variants v ON v.id = c.variant_id").
		Where("c.user_id = ?", userID).
		Order("c.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	lines := make([]domain.CartLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, domain.CartLine{
			ID:           row.ID,
			ProductID:    row.ProductID,
			VariantID:    row.VariantID,
			Quantity:     row.Quantity,
			ProductName:  row.ProductName,
			VariantLabel: domain.Variant{Size: row.Size, Type: row.Type}.Label(),
			Price:        row.Price,
			Discount:     row.Discount,
		})
	}
	return lines, nil
}

// deleteCartLines removes only the given lines, so items added after the
// snapshot was taken survive checkout.
func deleteCartLines(tx *gorm.DB, userID string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("user_id = ? AND id IN ?", userID, ids).Delete(&domain.CartItem{}).Error
}
