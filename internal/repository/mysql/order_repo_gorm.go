package mysql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"
	"checkout-service/pkg/logkey"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

// PlaceOrder writes the order, its first payment and removes the snapshotted cart
// lines. Nothing is kept if any step fails.
func (r *orderRepo) PlaceOrder(ctx context.Context, p repository.PlaceOrder) (err error) {
	if p.Order == nil || p.Payment == nil {
		return errors.New("place order: order and payment are required")
	}
	if len(p.Order.Items) == 0 {
		return domain.ErrEmptyOrder
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("place order: begin: %w", tx.Error)
	}
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		}
	}()

	if err := tx.Create(p.Order).Error; err != nil {
		tx.Rollback()
		slog.Error("order insert failed", slog.String(logkey.OrderID, p.Order.ID), slog.String(logkey.Error, err.Error()))
		return fmt.Errorf("place order: create order: %w", err)
	}

	p.Payment.OrderID = p.Order.ID
	if err := tx.Create(p.Payment).Error; err != nil {
		tx.Rollback()
		slog.Error("payment insert failed", slog.String(logkey.OrderID, p.Order.ID), slog.String(logkey.Error, err.Error()))
		return fmt.Errorf("place order: create payment: %w", err)
	}

	if err := deleteCartLines(tx, p.Order.UserID, p.CartItemIDs); err != nil {
		tx.Rollback()
		return fmt.Errorf("place order: clear cart: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		slog.Error("order commit failed", slog.String(logkey.OrderID, p.Order.ID), slog.String(logkey.Error, err.Error()))
		return fmt.Errorf("place order: commit: %w", err)
	}

	slog.Info("order placed",
		slog.String(logkey.OrderID, p.Order.ID),
		slog.String(logkey.PaymentID, p.Payment.ID),
		slog.Int64("order_amount", p.Order.OrderAmount),
		slog.Int("cleared_cart_lines", len(p.CartItemIDs)))
	return nil
}

func (r *orderRepo) FindByIDForUser(ctx context.Context, id, userID string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) FindPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyPaymentCheck records a gateway check on the payment and, when the check
// settled it, moves payment and order forward. The payment row is locked for the
// duration so concurrent checks serialize; a payment that is already settled is
// left alone and applied is false.
func (r *orderRepo) ApplyPaymentCheck(ctx context.Context, c repository.PaymentCheck) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND order_id = ?", c.PaymentID, c.OrderID).
			First(&p).Error
		if err != nil {
			return err
		}

		info := p.AdditionalInfo.Clone()
		for k, v := range c.Info {
			info[k] = v
		}
		updates := map[string]any{"additional_info": info}

		orderStatus, transition := domain.OrderStatusFor(c.Status)
		if transition && p.PaymentStatus == domain.PaymentPending {
			updates["payment_status"] = c.Status
			if c.TransactionID != "" {
				updates["transaction_id"] = c.TransactionID
			}
			if c.Method != "" {
				updates["payment_method"] = c.Method
			}
		}

		if err := tx.Model(&domain.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return err
		}

		if _, ok := updates["payment_status"]; !ok {
			return nil
		}

		res := tx.Model(&domain.Order{}).
			Where("id = ? AND payment_status = ?", c.OrderID, domain.PaymentPending).
			Updates(map[string]any{
				"payment_status": c.Status,
				"order_status":   orderStatus,
			})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply payment check: %w", err)
	}
	return applied, nil
}
