package repository

import (
	"context"
	"fmt"

	"rehaulx/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository mirrors Razorpay payment attempts.
type PaymentRepository interface {
	// InsertPending records a created checkout order before the user pays.
	InsertPending(ctx context.Context, p *model.Payment) error
	// MarkCaptured upserts the captured payment keyed by razorpay_payment_id.
	MarkCaptured(ctx context.Context, p *model.Payment) error
}

type paymentRepo struct {
	pool *pgxpool.Pool
}

// NewPaymentRepo creates a new PaymentRepository.
func NewPaymentRepo(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) InsertPending(ctx context.Context, p *model.Payment) error {
	const q = `
		INSERT INTO payments (user_id, razorpay_order_id, amount, currency, status, payment_method)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, q, p.UserID, p.RazorpayOrderID, p.Amount, p.Currency, p.PaymentMethod).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pending payment for user %s: %w", p.UserID, err)
	}
	p.Status = "pending"
	return nil
}

func (r *paymentRepo) MarkCaptured(ctx context.Context, p *model.Payment) error {
	const q = `
		INSERT INTO payments (user_id, razorpay_order_id, razorpay_payment_id, amount, currency, status, payment_method)
		VALUES ($1, $2, $3, $4, $5, 'captured', $6)
		ON CONFLICT (razorpay_payment_id) DO UPDATE SET
			status = 'captured',
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, q, p.UserID, p.RazorpayOrderID, p.RazorpayPaymentID, p.Amount, p.Currency, p.PaymentMethod).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("mark payment captured for user %s: %w", p.UserID, err)
	}
	p.Status = "captured"
	return nil
}
