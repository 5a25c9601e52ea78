package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"rehaulx/internal/config"
	"rehaulx/internal/model"
	"rehaulx/internal/repository"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/rs/zerolog"
)

// Add-on minute bundles, USD cents. Add-ons are USD-only.
var addonBundles = map[int]int64{
	50:  500,
	100: 1000,
}

// usdToINRPaise converts a USD price to INR paise for Razorpay subscription
// orders. Orders must be at least one rupee.
func usdToINRPaise(usd float64) int64 {
	const fx = 83.5
	paise := int64(math.Round(usd * fx * 100))
	if paise < 100 {
		paise = 100
	}
	return paise
}

// CheckoutOrder is the client-facing result of creating a Razorpay order.
type CheckoutOrder struct {
	Order map[string]interface{} `json:"order"`
	KeyID string                 `json:"key_id"`
}

// PaymentService manages Razorpay checkout orders and webhook settlement.
type PaymentService struct {
	cfg       *config.Config
	client    *razorpay.Client
	payments  repository.PaymentRepository
	purchases repository.PurchaseRepository
	subs      repository.SubscriptionRepository
	plans     repository.PlanRepository
	billing   BillingService
	logger    zerolog.Logger
}

// NewPaymentService creates a PaymentService with a scoped logger.
func NewPaymentService(cfg *config.Config, payments repository.PaymentRepository, purchases repository.PurchaseRepository, subs repository.SubscriptionRepository, plans repository.PlanRepository, billing BillingService, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		cfg:       cfg,
		client:    razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		payments:  payments,
		purchases: purchases,
		subs:      subs,
		plans:     plans,
		billing:   billing,
		logger:    logger.With().Str("service", "PaymentService").Logger(),
	}
}

// CreateAddonCheckout creates a Razorpay order for a fixed USD minute bundle.
func (s *PaymentService) CreateAddonCheckout(ctx context.Context, userID string, addonMinutes int) (*CheckoutOrder, error) {
	cents, ok := addonBundles[addonMinutes]
	if !ok {
		return nil, fmt.Errorf("invalid addon bundle: %d minutes", addonMinutes)
	}
	notes := map[string]interface{}{
		"user_id":       userID,
		"kind":          "addon",
		"addon_minutes": strconv.Itoa(addonMinutes),
	}
	return s.createOrder(ctx, userID, cents, "USD", notes)
}

// CreateSubscriptionCheckout creates a Razorpay order for a plan, priced in
// INR converted from the plan's USD price.
func (s *PaymentService) CreateSubscriptionCheckout(ctx context.Context, userID string, planID int64, billingCycle string) (*CheckoutOrder, error) {
	if billingCycle != "monthly" && billingCycle != "yearly" {
		return nil, fmt.Errorf("invalid billing cycle: %s", billingCycle)
	}
	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		s.logger.Error().Err(err).Int64("plan_id", planID).Msg("Failed to fetch plan for checkout")
		return nil, err
	}
	price := plan.PriceMonthly
	if billingCycle == "yearly" {
		price = plan.PriceYearly
	}
	notes := map[string]interface{}{
		"user_id":       userID,
		"kind":          "subscription",
		"plan_id":       strconv.FormatInt(plan.ID, 10),
		"billing_cycle": billingCycle,
	}
	return s.createOrder(ctx, userID, usdToINRPaise(price), "INR", notes)
}

func (s *PaymentService) createOrder(ctx context.Context, userID string, amount int64, currency string, notes map[string]interface{}) (*CheckoutOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  fmt.Sprintf("rcpt_%s_%d", userID, time.Now().Unix()),
		"notes":    notes,
	}
	order, err := s.client.Order.Create(data, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Razorpay order")
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}

	orderID, _ := order["id"].(string)
	payment := &model.Payment{
		UserID:          userID,
		RazorpayOrderID: orderID,
		Amount:          float64(amount) / 100,
		Currency:        currency,
		PaymentMethod:   "razorpay",
	}
	if err := s.payments.InsertPending(ctx, payment); err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to record pending payment")
		return nil, err
	}

	return &CheckoutOrder{Order: order, KeyID: s.cfg.RazorpayKeyID}, nil
}

// webhookEnvelope is the subset of the Razorpay webhook payload we consume.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string            `json:"id"`
				OrderID  string            `json:"order_id"`
				Amount   int64             `json:"amount"`
				Currency string            `json:"currency"`
				Method   string            `json:"method"`
				Notes    map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook verifies and processes Razorpay webhook events. Signature
// verification runs against the raw body before anything is parsed; a
// mismatch rejects the request with no state change.
func (s *PaymentService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Razorpay webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("x-razorpay-signature")
	if !utils.VerifyWebhookSignature(string(payload), sig, s.cfg.RazorpayWebhookSecret) {
		s.logger.Error().Msg("Signature verification failed for Razorpay webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.logger.Error().Err(err).Msg("Invalid Razorpay webhook payload")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", env.Event).Msg("Razorpay webhook received")

	ctx := r.Context()
	switch env.Event {
	case "payment.captured":
		if err := s.settleCapturedPayment(ctx, &env); err != nil {
			s.logger.Error().Err(err).Str("payment_id", env.Payload.Payment.Entity.ID).Msg("Failed to settle captured payment")
			http.Error(w, "failed to process payment", http.StatusInternalServerError)
			return
		}
	default:
		s.logger.Debug().Str("event_type", env.Event).Msg("Ignoring Razorpay webhook event")
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (s *PaymentService) settleCapturedPayment(ctx context.Context, env *webhookEnvelope) error {
	entity := env.Payload.Payment.Entity
	userID := entity.Notes["user_id"]
	if userID == "" {
		return fmt.Errorf("missing user_id in payment notes for payment %s", entity.ID)
	}

	paymentID := entity.ID
	payment := &model.Payment{
		UserID:            userID,
		RazorpayOrderID:   entity.OrderID,
		RazorpayPaymentID: &paymentID,
		Amount:            float64(entity.Amount) / 100,
		Currency:          entity.Currency,
		PaymentMethod:     entity.Method,
	}
	if err := s.payments.MarkCaptured(ctx, payment); err != nil {
		return err
	}

	if addonMinutes, _ := strconv.Atoi(entity.Notes["addon_minutes"]); addonMinutes > 0 {
		return s.settleAddon(ctx, userID, addonMinutes, payment)
	}
	if planID, _ := strconv.ParseInt(entity.Notes["plan_id"], 10, 64); planID > 0 {
		return s.settleSubscription(ctx, userID, planID, entity.Notes["billing_cycle"], payment)
	}
	s.logger.Warn().Str("payment_id", entity.ID).Msg("Captured payment carries neither addon nor plan notes")
	return nil
}

func (s *PaymentService) settleAddon(ctx context.Context, userID string, minutes int, payment *model.Payment) error {
	purchase := &model.Purchase{
		UserID:            userID,
		PurchaseType:      "addon",
		MinutesPurchased:  minutes,
		AmountPaid:        payment.Amount,
		Currency:          payment.Currency,
		RazorpayPaymentID: *payment.RazorpayPaymentID,
		Status:            "completed",
	}
	if err := s.purchases.Insert(ctx, purchase); err != nil {
		return err
	}
	// Add-on minutes never expire, so the credit carries no cycle.
	return s.billing.CreditMinutes(ctx, userID, minutes, "addon_purchase", payment.Currency, nil, map[string]any{
		"razorpay_payment_id": *payment.RazorpayPaymentID,
	})
}

func (s *PaymentService) settleSubscription(ctx context.Context, userID string, planID int64, billingCycle string, payment *model.Payment) error {
	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return err
	}
	if billingCycle != "yearly" {
		billingCycle = "monthly"
	}

	start := time.Now()
	end := start.AddDate(0, 1, 0)
	if billingCycle == "yearly" {
		end = start.AddDate(1, 0, 0)
	}
	sub := &model.Subscription{
		UserID:             userID,
		PlanID:             plan.ID,
		BillingCycle:       billingCycle,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		Status:             "active",
	}
	if err := s.subs.UpsertFromPayment(ctx, sub); err != nil {
		return err
	}

	purchase := &model.Purchase{
		UserID:            userID,
		PurchaseType:      "subscription",
		MinutesPurchased:  PlanMinutesFor(plan.Name, billingCycle),
		AmountPaid:        payment.Amount,
		Currency:          payment.Currency,
		RazorpayPaymentID: *payment.RazorpayPaymentID,
		Status:            "completed",
	}
	if err := s.purchases.Insert(ctx, purchase); err != nil {
		return err
	}

	minutes := PlanMinutesFor(plan.Name, billingCycle)
	if minutes == 0 {
		s.logger.Warn().Str("plan", plan.Name).Msg("Unknown plan minute allocation, skipping credit")
		return nil
	}
	cycle := &model.Cycle{Start: start, End: end}
	return s.billing.CreditMinutes(ctx, userID, minutes, "subscription_"+plan.Name, payment.Currency, cycle, map[string]any{
		"razorpay_payment_id": *payment.RazorpayPaymentID,
		"billing_cycle":       billingCycle,
	})
}
