package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"rehaulx/internal/model"
	"rehaulx/internal/repository"

	"github.com/rs/zerolog"
)

// FreeSignupMinutes is the one-time credit every new user receives.
const FreeSignupMinutes = 10

// upgradeNudgeThreshold is the used/allocated ratio at which an upgrade is
// suggested.
const upgradeNudgeThreshold = 0.80

// planLadder orders plan tiers from cheapest to most expensive. The nudge
// recommends the tier after the user's current one.
var planLadder = []string{"starter", "basic", "growth", "pro"}

// planMinutes maps plan name to allocated minutes per billing cycle.
var planMinutes = map[string]struct{ Monthly, Yearly int }{
	"starter": {100, 1200},
	"basic":   {300, 2400},
	"growth":  {800, 6400},
	"pro":     {1600, 12800},
}

// PlanMinutesFor returns the minute allocation for a plan name and billing
// cycle, or 0 when the plan is unknown.
func PlanMinutesFor(planName, billingCycle string) int {
	m, ok := planMinutes[planName]
	if !ok {
		return 0
	}
	if billingCycle == "yearly" {
		return m.Yearly
	}
	return m.Monthly
}

// CeilMinutes converts a duration in seconds to billable minutes. Partial
// minutes round up and every charge is at least one minute.
func CeilMinutes(seconds float64) int {
	if seconds <= 0 {
		return 1
	}
	m := int(math.Ceil(seconds / 60))
	if m < 1 {
		return 1
	}
	return m
}

// BillingService owns the minutes ledger: credits, debits, derived balances
// and the upgrade nudge.
type BillingService interface {
	CreditMinutes(ctx context.Context, userID string, minutes int, reason, currency string, cycle *model.Cycle, meta map[string]any) error
	DebitMinutes(ctx context.Context, userID string, minutes int, reason string, meta map[string]any) error
	MinutesBalance(ctx context.Context, userID string) (*model.MinutesBalance, error)
	UpgradeNudge(ctx context.Context, userID string) (*model.UpgradeNudge, error)
	CurrentCycle(ctx context.Context, userID string) (*model.Cycle, string, error)
	UsageHistory(ctx context.Context, userID string, limit, offset int) ([]model.LedgerEntry, error)
	BootstrapFreeMinutes(ctx context.Context, userID string) (bool, error)
}

type billingService struct {
	ledger repository.LedgerRepository
	subs   repository.SubscriptionRepository
	plans  repository.PlanRepository
	logger zerolog.Logger
}

// NewBillingService creates a new BillingService with a scoped logger.
func NewBillingService(ledger repository.LedgerRepository, subs repository.SubscriptionRepository, plans repository.PlanRepository, logger zerolog.Logger) BillingService {
	return &billingService{
		ledger: ledger,
		subs:   subs,
		plans:  plans,
		logger: logger.With().Str("service", "BillingService").Logger(),
	}
}

// CreditMinutes appends a credit row. A nil cycle makes the credit unbounded
// (add-on minutes, signup bonus).
func (s *billingService) CreditMinutes(ctx context.Context, userID string, minutes int, reason, currency string, cycle *model.Cycle, meta map[string]any) error {
	if minutes <= 0 {
		return fmt.Errorf("credit minutes must be positive, got %d", minutes)
	}
	entry := &model.LedgerEntry{
		UserID:    userID,
		Minutes:   minutes,
		EntryType: model.EntryCredit,
		Reason:    reason,
		Currency:  currency,
		Meta:      meta,
	}
	if cycle != nil {
		entry.CycleStart = &cycle.Start
		entry.CycleEnd = &cycle.End
	}
	if err := s.ledger.Insert(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("reason", reason).Msg("Failed to credit minutes")
		return err
	}
	return nil
}

// DebitMinutes appends a debit row. The ledger permits overdraft; callers
// decide whether to check the balance first.
func (s *billingService) DebitMinutes(ctx context.Context, userID string, minutes int, reason string, meta map[string]any) error {
	if minutes <= 0 {
		return fmt.Errorf("debit minutes must be positive, got %d", minutes)
	}
	entry := &model.LedgerEntry{
		UserID:    userID,
		Minutes:   minutes,
		EntryType: model.EntryDebit,
		Reason:    reason,
		Meta:      meta,
	}
	if err := s.ledger.Insert(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("reason", reason).Msg("Failed to debit minutes")
		return err
	}
	return nil
}

// MinutesBalance derives the user's balance from ledger rows active now.
func (s *billingService) MinutesBalance(ctx context.Context, userID string) (*model.MinutesBalance, error) {
	allocated, used, cycleEnd, err := s.ledger.ActiveSums(ctx, userID, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to derive minutes balance")
		return nil, err
	}
	return &model.MinutesBalance{
		Allocated: allocated,
		Used:      used,
		Remaining: allocated - used,
		CycleEnd:  cycleEnd,
	}, nil
}

// UpgradeNudge suggests the next plan tier once usage crosses the threshold.
func (s *billingService) UpgradeNudge(ctx context.Context, userID string) (*model.UpgradeNudge, error) {
	balance, err := s.MinutesBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Allocated == 0 {
		return &model.UpgradeNudge{}, nil
	}
	ratio := float64(balance.Used) / float64(balance.Allocated)
	if ratio < upgradeNudgeThreshold {
		return &model.UpgradeNudge{}, nil
	}

	currentPlan := ""
	if sub, err := s.subs.CurrentSubscription(ctx, userID); err == nil {
		if plan, perr := s.plans.GetPlanByID(ctx, sub.PlanID); perr == nil {
			currentPlan = plan.Name
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to resolve current plan for nudge")
	}

	return &model.UpgradeNudge{
		Show:            true,
		Reason:          fmt.Sprintf("You have used %d%% of your minutes this cycle", int(ratio*100)),
		RecommendedPlan: nextPlan(currentPlan),
	}, nil
}

// nextPlan walks the ladder. An unknown or empty plan recommends the first
// tier; the top tier recommends itself.
func nextPlan(current string) string {
	for i, name := range planLadder {
		if name == current {
			if i+1 < len(planLadder) {
				return planLadder[i+1]
			}
			return name
		}
	}
	return planLadder[0]
}

// CurrentCycle returns the billing window and plan name of the user's latest
// active subscription, or (nil, "") when the user has none.
func (s *billingService) CurrentCycle(ctx context.Context, userID string) (*model.Cycle, string, error) {
	sub, err := s.subs.CurrentSubscription(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch current cycle")
		return nil, "", err
	}
	planName := ""
	if plan, err := s.plans.GetPlanByID(ctx, sub.PlanID); err == nil {
		planName = plan.Name
	}
	return &model.Cycle{Start: sub.CurrentPeriodStart, End: sub.CurrentPeriodEnd}, planName, nil
}

// UsageHistory lists ledger entries newest first.
func (s *billingService) UsageHistory(ctx context.Context, userID string, limit, offset int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	entries, err := s.ledger.History(ctx, userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch usage history")
		return nil, err
	}
	return entries, nil
}

// BootstrapFreeMinutes grants the one-time signup credit. Safe to call on
// every login; only the first call inserts.
func (s *billingService) BootstrapFreeMinutes(ctx context.Context, userID string) (bool, error) {
	entry := &model.LedgerEntry{
		UserID:    userID,
		Minutes:   FreeSignupMinutes,
		EntryType: model.EntryCredit,
		Reason:    "free_signup",
	}
	inserted, err := s.ledger.InsertOnceByReason(ctx, entry)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to bootstrap free minutes")
		return false, err
	}
	if inserted {
		s.logger.Info().Str("user_id", userID).Int("minutes", FreeSignupMinutes).Msg("Granted signup minutes")
	}
	return inserted, nil
}
