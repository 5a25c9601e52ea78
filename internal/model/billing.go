package model

import "time"

// Plan is a purchasable subscription tier.
type Plan struct {
	ID             int64   `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	PriceMonthly   float64 `db:"price_monthly" json:"price_monthly"`
	PriceYearly    float64 `db:"price_yearly" json:"price_yearly"`
	MinutesMonthly int     `db:"minutes_monthly" json:"minutes_monthly"`
	MinutesYearly  int     `db:"minutes_yearly" json:"minutes_yearly"`
}

// Subscription ties a user to a plan for a billing period.
type Subscription struct {
	ID                     int64     `db:"id" json:"id"`
	UserID                 string    `db:"user_id" json:"user_id"`
	PlanID                 int64     `db:"plan_id" json:"plan_id"`
	BillingCycle           string    `db:"billing_cycle" json:"billing_cycle"`
	CurrentPeriodStart     time.Time `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd       time.Time `db:"current_period_end" json:"current_period_end"`
	RazorpaySubscriptionID *string   `db:"razorpay_subscription_id" json:"razorpay_subscription_id,omitempty"`
	Status                 string    `db:"status" json:"status"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
}

// Purchase is a one-off ledger-crediting event (add-on minutes or a plan
// upgrade paid through checkout).
type Purchase struct {
	ID                int64     `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	PurchaseType      string    `db:"purchase_type" json:"purchase_type"`
	MinutesPurchased  int       `db:"minutes_purchased" json:"minutes_purchased"`
	AmountPaid        float64   `db:"amount_paid" json:"amount_paid"`
	Currency          string    `db:"currency" json:"currency"`
	RazorpayPaymentID string    `db:"razorpay_payment_id" json:"razorpay_payment_id"`
	Status            string    `db:"status" json:"status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Payment mirrors a Razorpay payment attempt.
type Payment struct {
	ID                int64     `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	RazorpayOrderID   string    `db:"razorpay_order_id" json:"razorpay_order_id"`
	RazorpayPaymentID *string   `db:"razorpay_payment_id" json:"razorpay_payment_id,omitempty"`
	Amount            float64   `db:"amount" json:"amount"`
	Currency          string    `db:"currency" json:"currency"`
	Status            string    `db:"status" json:"status"`
	PaymentMethod     string    `db:"payment_method" json:"payment_method"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
