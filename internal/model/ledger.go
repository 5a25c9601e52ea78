package model

import "time"

// Ledger entry types. Balances are always derived by summing entries; rows
// are never updated or deleted after insert.
const (
	EntryCredit = "credit"
	EntryDebit  = "debit"
)

// LedgerEntry is one immutable credit or debit of billing minutes.
type LedgerEntry struct {
	ID         int64          `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"user_id"`
	Minutes    int            `db:"minutes" json:"minutes"`
	EntryType  string         `db:"entry_type" json:"entry_type"`
	Reason     string         `db:"reason" json:"reason"`
	Currency   string         `db:"currency" json:"currency,omitempty"`
	CycleStart *time.Time     `db:"cycle_start" json:"cycle_start,omitempty"`
	CycleEnd   *time.Time     `db:"cycle_end" json:"cycle_end,omitempty"`
	Meta       map[string]any `db:"meta" json:"meta,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Cycle is a billing window within which allocated minutes apply. A nil
// cycle on a ledger entry means the entry is global (add-on minutes, signup
// bonus) and counts toward every window.
type Cycle struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MinutesBalance is the derived per-cycle minute usage for a user.
// Remaining is always Allocated - Used; it is never persisted.
type MinutesBalance struct {
	Allocated int        `json:"allocated"`
	Used      int        `json:"used"`
	Remaining int        `json:"remaining"`
	CycleEnd  *time.Time `json:"cycle_end,omitempty"`
}

// UpgradeNudge recommends the next plan tier once a user has burned most of
// their allocation.
type UpgradeNudge struct {
	Show            bool   `json:"show"`
	Reason          string `json:"reason,omitempty"`
	RecommendedPlan string `json:"recommended_plan,omitempty"`
}
