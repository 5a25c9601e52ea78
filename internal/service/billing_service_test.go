package service

import (
	"context"
	"testing"
	"time"

	"rehaulx/internal/model"
	"rehaulx/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedgerRepo struct {
	entries   []*model.LedgerEntry
	allocated int
	used      int
	cycleEnd  *time.Time
}

func (f *fakeLedgerRepo) Insert(_ context.Context, entry *model.LedgerEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedgerRepo) InsertOnceByReason(_ context.Context, entry *model.LedgerEntry) (bool, error) {
	for _, e := range f.entries {
		if e.UserID == entry.UserID && e.Reason == entry.Reason {
			return false, nil
		}
	}
	f.entries = append(f.entries, entry)
	return true, nil
}

func (f *fakeLedgerRepo) ActiveSums(_ context.Context, _ string, _ time.Time) (int, int, *time.Time, error) {
	return f.allocated, f.used, f.cycleEnd, nil
}

func (f *fakeLedgerRepo) History(_ context.Context, _ string, limit, offset int) ([]model.LedgerEntry, error) {
	out := make([]model.LedgerEntry, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0; i-- {
		out = append(out, *f.entries[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSubRepo struct {
	sub *model.Subscription
}

func (f *fakeSubRepo) CurrentSubscription(_ context.Context, _ string) (*model.Subscription, error) {
	if f.sub == nil {
		return nil, repository.ErrNotFound
	}
	return f.sub, nil
}

func (f *fakeSubRepo) UpsertFromPayment(_ context.Context, sub *model.Subscription) error {
	f.sub = sub
	return nil
}

type fakePlanRepo struct {
	plans []model.Plan
}

func (f *fakePlanRepo) GetPlans(_ context.Context) ([]model.Plan, error) {
	return f.plans, nil
}

func (f *fakePlanRepo) GetPlanByID(_ context.Context, planID int64) (*model.Plan, error) {
	for i := range f.plans {
		if f.plans[i].ID == planID {
			return &f.plans[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func newTestBilling(ledger *fakeLedgerRepo, subs *fakeSubRepo, plans *fakePlanRepo) BillingService {
	return NewBillingService(ledger, subs, plans, zerolog.Nop())
}

func TestCeilMinutes(t *testing.T) {
	assert.Equal(t, 1, CeilMinutes(0))
	assert.Equal(t, 1, CeilMinutes(-5))
	assert.Equal(t, 1, CeilMinutes(1))
	assert.Equal(t, 1, CeilMinutes(60))
	assert.Equal(t, 2, CeilMinutes(61))
	assert.Equal(t, 2, CeilMinutes(120))
	assert.Equal(t, 10, CeilMinutes(599.5))
}

func TestPlanMinutesFor(t *testing.T) {
	assert.Equal(t, 100, PlanMinutesFor("starter", "monthly"))
	assert.Equal(t, 1200, PlanMinutesFor("starter", "yearly"))
	assert.Equal(t, 1600, PlanMinutesFor("pro", "monthly"))
	assert.Equal(t, 12800, PlanMinutesFor("pro", "yearly"))
	assert.Equal(t, 0, PlanMinutesFor("enterprise", "monthly"))
}

func TestCreditMinutesRejectsNonPositive(t *testing.T) {
	ledger := &fakeLedgerRepo{}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	err := svc.CreditMinutes(context.Background(), "u1", 0, "addon_purchase", "USD", nil, nil)
	require.Error(t, err)
	err = svc.CreditMinutes(context.Background(), "u1", -10, "addon_purchase", "USD", nil, nil)
	require.Error(t, err)
	assert.Empty(t, ledger.entries)
}

func TestCreditMinutesWithCycle(t *testing.T) {
	ledger := &fakeLedgerRepo{}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	cycle := &model.Cycle{Start: time.Now(), End: time.Now().AddDate(0, 1, 0)}
	err := svc.CreditMinutes(context.Background(), "u1", 300, "subscription_basic", "INR", cycle, nil)
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)

	entry := ledger.entries[0]
	assert.Equal(t, model.EntryCredit, entry.EntryType)
	assert.Equal(t, 300, entry.Minutes)
	require.NotNil(t, entry.CycleStart)
	require.NotNil(t, entry.CycleEnd)
	assert.Equal(t, cycle.End, *entry.CycleEnd)
}

func TestDebitMinutes(t *testing.T) {
	ledger := &fakeLedgerRepo{}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	err := svc.DebitMinutes(context.Background(), "u1", 3, "content_generation:twitter", nil)
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)
	assert.Equal(t, model.EntryDebit, ledger.entries[0].EntryType)
	assert.Nil(t, ledger.entries[0].CycleStart)

	err = svc.DebitMinutes(context.Background(), "u1", 0, "content_generation:twitter", nil)
	require.Error(t, err)
}

func TestMinutesBalance(t *testing.T) {
	end := time.Now().AddDate(0, 1, 0)
	ledger := &fakeLedgerRepo{allocated: 100, used: 37, cycleEnd: &end}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	balance, err := svc.MinutesBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, balance.Allocated)
	assert.Equal(t, 37, balance.Used)
	assert.Equal(t, 63, balance.Remaining)
	require.NotNil(t, balance.CycleEnd)
}

func TestUpgradeNudgeBelowThreshold(t *testing.T) {
	ledger := &fakeLedgerRepo{allocated: 100, used: 79}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	nudge, err := svc.UpgradeNudge(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, nudge.Show)
}

func TestUpgradeNudgeAtThreshold(t *testing.T) {
	ledger := &fakeLedgerRepo{allocated: 100, used: 80}
	subs := &fakeSubRepo{sub: &model.Subscription{PlanID: 2, Status: "active"}}
	plans := &fakePlanRepo{plans: []model.Plan{{ID: 2, Name: "basic"}}}
	svc := newTestBilling(ledger, subs, plans)

	nudge, err := svc.UpgradeNudge(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, nudge.Show)
	assert.Equal(t, "You have used 80% of your minutes this cycle", nudge.Reason)
	assert.Equal(t, "growth", nudge.RecommendedPlan)
}

func TestUpgradeNudgeWithoutSubscriptionRecommendsStarter(t *testing.T) {
	ledger := &fakeLedgerRepo{allocated: 10, used: 9}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	nudge, err := svc.UpgradeNudge(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, nudge.Show)
	assert.Equal(t, "starter", nudge.RecommendedPlan)
}

func TestUpgradeNudgeTopTierRecommendsItself(t *testing.T) {
	ledger := &fakeLedgerRepo{allocated: 1600, used: 1500}
	subs := &fakeSubRepo{sub: &model.Subscription{PlanID: 4, Status: "active"}}
	plans := &fakePlanRepo{plans: []model.Plan{{ID: 4, Name: "pro"}}}
	svc := newTestBilling(ledger, subs, plans)

	nudge, err := svc.UpgradeNudge(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, nudge.Show)
	assert.Equal(t, "pro", nudge.RecommendedPlan)
}

func TestUpgradeNudgeZeroAllocation(t *testing.T) {
	ledger := &fakeLedgerRepo{}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	nudge, err := svc.UpgradeNudge(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, nudge.Show)
}

func TestCurrentCycle(t *testing.T) {
	start := time.Now()
	end := start.AddDate(0, 1, 0)
	subs := &fakeSubRepo{sub: &model.Subscription{PlanID: 3, CurrentPeriodStart: start, CurrentPeriodEnd: end, Status: "active"}}
	plans := &fakePlanRepo{plans: []model.Plan{{ID: 3, Name: "growth"}}}
	svc := newTestBilling(&fakeLedgerRepo{}, subs, plans)

	cycle, planName, err := svc.CurrentCycle(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cycle)
	assert.Equal(t, "growth", planName)
	assert.Equal(t, end, cycle.End)
}

func TestCurrentCycleWithoutSubscription(t *testing.T) {
	svc := newTestBilling(&fakeLedgerRepo{}, &fakeSubRepo{}, &fakePlanRepo{})

	cycle, planName, err := svc.CurrentCycle(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cycle)
	assert.Empty(t, planName)
}

func TestBootstrapFreeMinutesIsIdempotent(t *testing.T) {
	ledger := &fakeLedgerRepo{}
	svc := newTestBilling(ledger, &fakeSubRepo{}, &fakePlanRepo{})

	granted, err := svc.BootstrapFreeMinutes(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = svc.BootstrapFreeMinutes(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, granted)

	require.Len(t, ledger.entries, 1)
	assert.Equal(t, FreeSignupMinutes, ledger.entries[0].Minutes)
	assert.Equal(t, "free_signup", ledger.entries[0].Reason)
}
