package repository

import (
	"context"
	"fmt"

	"rehaulx/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PurchaseRepository records completed minute purchases.
type PurchaseRepository interface {
	Insert(ctx context.Context, p *model.Purchase) error
}

type purchaseRepo struct {
	pool *pgxpool.Pool
}

// NewPurchaseRepo creates a new PurchaseRepository.
func NewPurchaseRepo(pool *pgxpool.Pool) PurchaseRepository {
	return &purchaseRepo{pool: pool}
}

func (r *purchaseRepo) Insert(ctx context.Context, p *model.Purchase) error {
	const q = `
		INSERT INTO purchases (user_id, purchase_type, minutes_purchased, amount_paid, currency, razorpay_payment_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, q,
		p.UserID,
		p.PurchaseType,
		p.MinutesPurchased,
		p.AmountPaid,
		p.Currency,
		p.RazorpayPaymentID,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert purchase for user %s: %w", p.UserID, err)
	}
	return nil
}
