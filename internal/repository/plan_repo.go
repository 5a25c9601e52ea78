package repository

import (
	"context"
	"fmt"

	"rehaulx/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PlanRepository reads the subscription plan catalog.
type PlanRepository interface {
	GetPlans(ctx context.Context) ([]model.Plan, error)
	GetPlanByID(ctx context.Context, planID int64) (*model.Plan, error)
}

type planRepo struct {
	pool *pgxpool.Pool
}

// NewPlanRepo creates a new PlanRepository.
func NewPlanRepo(pool *pgxpool.Pool) PlanRepository {
	return &planRepo{pool: pool}
}

func (r *planRepo) GetPlans(ctx context.Context) ([]model.Plan, error) {
	const q = `
		SELECT id, name, price_monthly, price_yearly, minutes_monthly, minutes_yearly
		FROM plans
		ORDER BY price_monthly
	`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	plans := []model.Plan{}
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceMonthly, &p.PriceYearly, &p.MinutesMonthly, &p.MinutesYearly); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("plans rows: %w", err)
	}
	return plans, nil
}

func (r *planRepo) GetPlanByID(ctx context.Context, planID int64) (*model.Plan, error) {
	const q = `
		SELECT id, name, price_monthly, price_yearly, minutes_monthly, minutes_yearly
		FROM plans
		WHERE id = $1
	`
	var p model.Plan
	err := r.pool.QueryRow(ctx, q, planID).Scan(&p.ID, &p.Name, &p.PriceMonthly, &p.PriceYearly, &p.MinutesMonthly, &p.MinutesYearly)
	if err != nil {
		return nil, fmt.Errorf("fetch plan %d: %w", planID, err)
	}
	return &p, nil
}
