package handler

import (
	"net/http"
	"strconv"

	"rehaulx/internal/api/v1/dto"
	"rehaulx/internal/middleware"
	"rehaulx/internal/repository"
	"rehaulx/internal/service"

	"github.com/rs/zerolog"
)

type BillingHandler struct {
	billing service.BillingService
	plans   repository.PlanRepository
	logger  zerolog.Logger
}

func NewBillingHandler(billing service.BillingService, plans repository.PlanRepository, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, plans: plans, logger: logger}
}

// RegisterRoutes mounts v1 billing routes. Everything except the plan list
// requires an authenticated user.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/minutes", authMw(http.HandlerFunc(h.minutes)))
	mux.Handle("/usage-history", authMw(http.HandlerFunc(h.usageHistory)))
	mux.Handle("/bootstrap-free-minutes", authMw(http.HandlerFunc(h.bootstrapFreeMinutes)))
	mux.HandleFunc("/plans", h.listPlans)
}

// minutes godoc
// @Summary Get the current minutes balance
// @Description Returns the authenticated user's allocated, used and remaining minutes for the active billing cycle, the plan name, and an upgrade nudge when usage passes the threshold.
// @Tags billing
// @Produce json
// @Success 200 {object} dto.MinutesResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Security BearerAuth
// @Router /minutes [get]
func (h *BillingHandler) minutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := middleware.UserID(r.Context())

	balance, err := h.billing.MinutesBalance(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get minutes balance")
		writeError(w, http.StatusInternalServerError, "Failed to get minutes balance", err)
		return
	}

	resp := dto.MinutesResponseDTO{
		Allocated: balance.Allocated,
		Used:      balance.Used,
		Remaining: balance.Remaining,
		CycleEnd:  balance.CycleEnd,
	}
	if _, plan, err := h.billing.CurrentCycle(r.Context(), userID); err == nil {
		resp.Subscription = plan
	}
	if nudge, err := h.billing.UpgradeNudge(r.Context(), userID); err == nil && nudge.Show {
		resp.UpgradeNudge = nudge
	}

	writeJSON(w, http.StatusOK, resp)
}

// listPlans godoc
// @Summary List subscription plans
// @Tags billing
// @Produce json
// @Success 200 {object} dto.PlansResponseDTO
// @Router /plans [get]
func (h *BillingHandler) listPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	plans, err := h.plans.GetPlans(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list plans")
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlansResponseDTO{Plans: plans})
}

// usageHistory godoc
// @Summary Get minutes usage history
// @Description Returns ledger entries for the authenticated user, newest first.
// @Tags billing
// @Produce json
// @Param limit query int false "Page size, max 100" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} dto.UsageHistoryResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Security BearerAuth
// @Router /usage-history [get]
func (h *BillingHandler) usageHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := middleware.UserID(r.Context())
	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.billing.UsageHistory(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get usage history")
		writeError(w, http.StatusInternalServerError, "Failed to get usage history", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UsageHistoryResponseDTO{Entries: entries})
}

// bootstrapFreeMinutes godoc
// @Summary Grant the one-time signup credit
// @Description Credits the free signup minutes exactly once per user. Repeat calls report granted=false.
// @Tags billing
// @Produce json
// @Success 200 {object} dto.BootstrapResponseDTO
// @Failure 401 {string} string "Unauthorized"
// @Security BearerAuth
// @Router /bootstrap-free-minutes [post]
func (h *BillingHandler) bootstrapFreeMinutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := middleware.UserID(r.Context())

	granted, err := h.billing.BootstrapFreeMinutes(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to bootstrap free minutes")
		writeError(w, http.StatusInternalServerError, "Failed to bootstrap free minutes", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BootstrapResponseDTO{Granted: granted, Minutes: service.FreeSignupMinutes})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
