package dto

import (
	"time"

	"rehaulx/internal/model"
)

type MinutesResponseDTO struct {
	Allocated    int                 `json:"allocated"`
	Used         int                 `json:"used"`
	Remaining    int                 `json:"remaining"`
	CycleEnd     *time.Time          `json:"cycle_end,omitempty"`
	Subscription string              `json:"subscription,omitempty"`
	UpgradeNudge *model.UpgradeNudge `json:"upgrade_nudge,omitempty"`
}

type UsageHistoryResponseDTO struct {
	Entries []model.LedgerEntry `json:"entries"`
}

type BootstrapResponseDTO struct {
	Granted bool `json:"granted"`
	Minutes int  `json:"minutes"`
}

type PlansResponseDTO struct {
	Plans []model.Plan `json:"plans"`
}

type CheckoutRequestDTO struct {
	Type         string `json:"type" validate:"required,oneof=addon subscription"`
	PlanID       int64  `json:"plan_id,omitempty"`
	BillingCycle string `json:"billing_cycle,omitempty" validate:"omitempty,oneof=monthly yearly"`
	AddonMinutes int    `json:"addon_minutes,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

type CheckoutResponseDTO struct {
	OK       bool                   `json:"ok"`
	Provider string                 `json:"provider"`
	Order    map[string]interface{} `json:"order"`
	KeyID    string                 `json:"key_id"`
}
