package handler

import (
	"encoding/json"
	"net/http"

	"rehaulx/internal/api/v1/dto"
	"rehaulx/internal/middleware"
	"rehaulx/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type PaymentHandler struct {
	payments *service.PaymentService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewPaymentHandler(payments *service.PaymentService, validate *validator.Validate, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, validate: validate, logger: logger}
}

// RegisterRoutes mounts v1 payment routes. The webhook is called by Razorpay
// and authenticates with its signature header, never a user token.
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/payments/create-checkout", authMw(http.HandlerFunc(h.createCheckout)))
	mux.HandleFunc("/payments/webhook", h.webhook)
}

// createCheckout godoc
// @Summary Create a Razorpay checkout order
// @Description Creates a checkout order for either a one-time minutes addon or a subscription plan. The returned order and key feed directly into Razorpay's client SDK.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.CheckoutRequestDTO true "Checkout request"
// @Success 200 {object} dto.CheckoutResponseDTO
// @Failure 400 {object} map[string]string "Invalid checkout type or bundle"
// @Failure 401 {string} string "Unauthorized"
// @Security BearerAuth
// @Router /payments/create-checkout [post]
func (h *PaymentHandler) createCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid checkout request: " + err.Error()})
		return
	}
	userID := middleware.UserID(r.Context())

	var (
		order *service.CheckoutOrder
		err   error
	)
	switch req.Type {
	case "addon":
		order, err = h.payments.CreateAddonCheckout(r.Context(), userID, req.AddonMinutes)
	case "subscription":
		order, err = h.payments.CreateSubscriptionCheckout(r.Context(), userID, req.PlanID, req.BillingCycle)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Str("type", req.Type).Msg("Failed to create checkout")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to create checkout: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, dto.CheckoutResponseDTO{
		OK:       true,
		Provider: "razorpay",
		Order:    order.Order,
		KeyID:    order.KeyID,
	})
}

// webhook godoc
// @Summary Razorpay webhook receiver
// @Description Verifies the webhook signature and settles captured payments. Events other than payment.captured are acknowledged and ignored.
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {string} string "Invalid signature or payload"
// @Router /payments/webhook [post]
func (h *PaymentHandler) webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.payments.HandleWebhook(w, r)
}
