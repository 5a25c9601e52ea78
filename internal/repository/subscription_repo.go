package repository

import (
	"context"
	"errors"
	"fmt"

	"rehaulx/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not_found")

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	// CurrentSubscription returns the user's most recent active or trialing
	// subscription, ordered by period end. Returns ErrNotFound if none.
	CurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	// UpsertFromPayment replaces the user's subscription after a captured
	// payment for a plan.
	UpsertFromPayment(ctx context.Context, sub *model.Subscription) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) CurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
		SELECT id, user_id, plan_id, billing_cycle, current_period_start, current_period_end, razorpay_subscription_id, status, created_at
		FROM subscriptions
		WHERE user_id = $1
		  AND status IN ('active', 'trialing')
		ORDER BY current_period_end DESC
		LIMIT 1
	`
	var s model.Subscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.BillingCycle,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.RazorpaySubscriptionID,
		&s.Status,
		&s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return &s, nil
}

func (r *subscriptionRepo) UpsertFromPayment(ctx context.Context, sub *model.Subscription) error {
	const q = `
		INSERT INTO subscriptions (user_id, plan_id, billing_cycle, current_period_start, current_period_end, razorpay_subscription_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			billing_cycle = EXCLUDED.billing_cycle,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			razorpay_subscription_id = EXCLUDED.razorpay_subscription_id,
			status = EXCLUDED.status
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, q,
		sub.UserID,
		sub.PlanID,
		sub.BillingCycle,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.RazorpaySubscriptionID,
		sub.Status,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}
