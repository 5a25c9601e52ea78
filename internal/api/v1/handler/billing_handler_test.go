package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rehaulx/internal/model"
	"rehaulx/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlans struct {
	plans []model.Plan
	err   error
}

func (f *fakePlans) GetPlans(_ context.Context) ([]model.Plan, error) {
	return f.plans, f.err
}

func (f *fakePlans) GetPlanByID(_ context.Context, planID int64) (*model.Plan, error) {
	for i := range f.plans {
		if f.plans[i].ID == planID {
			return &f.plans[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestMinutesResponseShape(t *testing.T) {
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	billing := &fakeBilling{
		balance: model.MinutesBalance{Allocated: 300, Used: 250, Remaining: 50, CycleEnd: &end},
		plan:    "basic",
		nudge:   &model.UpgradeNudge{Show: true, Reason: "You have used 83% of your minutes this cycle", RecommendedPlan: "growth"},
	}
	h := NewBillingHandler(billing, &fakePlans{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/minutes", nil)
	req = req.WithContext(contextWithUser(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	h.minutes(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "allocated")
	assert.Contains(t, resp, "used")
	assert.Contains(t, resp, "remaining")
	assert.Contains(t, resp, "cycle_end")
	assert.Contains(t, resp, "subscription")
	assert.Contains(t, resp, "upgrade_nudge")
	assert.JSONEq(t, `"basic"`, string(resp["subscription"]))

	var nudge model.UpgradeNudge
	require.NoError(t, json.Unmarshal(resp["upgrade_nudge"], &nudge))
	assert.Equal(t, "growth", nudge.RecommendedPlan)
}

func TestMinutesHidesNudgeBelowThreshold(t *testing.T) {
	billing := &fakeBilling{balance: model.MinutesBalance{Allocated: 300, Used: 10, Remaining: 290}}
	h := NewBillingHandler(billing, &fakePlans{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/minutes", nil)
	req = req.WithContext(contextWithUser(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	h.minutes(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "upgrade_nudge")
}

func TestMinutesUpstreamErrorPassesDetails(t *testing.T) {
	billing := &fakeBilling{balanceErr: errors.New("derive minutes balance: connection refused")}
	h := NewBillingHandler(billing, &fakePlans{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/minutes", nil)
	req = req.WithContext(contextWithUser(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	h.minutes(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to get minutes balance", resp["error"])
	assert.Contains(t, resp["details"], "connection refused")
}

func TestListPlans(t *testing.T) {
	plans := &fakePlans{plans: []model.Plan{{ID: 1, Name: "starter"}, {ID: 2, Name: "basic"}}}
	h := NewBillingHandler(&fakeBilling{}, plans, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/plans", nil)
	rec := httptest.NewRecorder()
	h.listPlans(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]model.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp["plans"], 2)
	assert.Equal(t, "starter", resp["plans"][0].Name)
}
