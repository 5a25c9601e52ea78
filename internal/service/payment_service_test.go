package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"rehaulx/internal/config"
	"rehaulx/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type fakePaymentRepo struct {
	pending  []*model.Payment
	captured []*model.Payment
}

func (f *fakePaymentRepo) InsertPending(_ context.Context, p *model.Payment) error {
	f.pending = append(f.pending, p)
	return nil
}

func (f *fakePaymentRepo) MarkCaptured(_ context.Context, p *model.Payment) error {
	f.captured = append(f.captured, p)
	return nil
}

type fakePurchaseRepo struct {
	purchases []*model.Purchase
}

func (f *fakePurchaseRepo) Insert(_ context.Context, p *model.Purchase) error {
	f.purchases = append(f.purchases, p)
	return nil
}

type paymentFixture struct {
	svc       *PaymentService
	payments  *fakePaymentRepo
	purchases *fakePurchaseRepo
	subs      *fakeSubRepo
	ledger    *fakeLedgerRepo
}

func newPaymentFixture() *paymentFixture {
	cfg := &config.Config{
		RazorpayKeyID:         "rzp_test_key",
		RazorpayKeySecret:     "rzp_test_secret",
		RazorpayWebhookSecret: testWebhookSecret,
	}
	payments := &fakePaymentRepo{}
	purchases := &fakePurchaseRepo{}
	subs := &fakeSubRepo{}
	ledger := &fakeLedgerRepo{}
	plans := &fakePlanRepo{plans: []model.Plan{
		{ID: 2, Name: "basic", PriceMonthly: 19, PriceYearly: 190},
	}}
	billing := NewBillingService(ledger, subs, plans, zerolog.Nop())
	svc := NewPaymentService(cfg, payments, purchases, subs, plans, billing, zerolog.Nop())
	return &paymentFixture{svc: svc, payments: payments, purchases: purchases, subs: subs, ledger: ledger}
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, svc *PaymentService, body []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("x-razorpay-signature", sig)
	rec := httptest.NewRecorder()
	svc.HandleWebhook(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newPaymentFixture()
	body := []byte(`{"event":"payment.captured"}`)

	rec := postWebhook(t, f.svc, body, "deadbeef")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.payments.captured)
	assert.Empty(t, f.ledger.entries)
}

func TestWebhookSettlesAddonPayment(t *testing.T) {
	f := newPaymentFixture()
	body := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_123",
			"order_id": "order_123",
			"amount": 500,
			"currency": "USD",
			"method": "card",
			"notes": {"user_id": "u1", "kind": "addon", "addon_minutes": "50"}
		}}}
	}`)

	rec := postWebhook(t, f.svc, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	require.Len(t, f.payments.captured, 1)
	assert.Equal(t, "order_123", f.payments.captured[0].RazorpayOrderID)

	require.Len(t, f.purchases.purchases, 1)
	assert.Equal(t, "addon", f.purchases.purchases[0].PurchaseType)
	assert.Equal(t, 50, f.purchases.purchases[0].MinutesPurchased)

	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, model.EntryCredit, entry.EntryType)
	assert.Equal(t, 50, entry.Minutes)
	assert.Equal(t, "addon_purchase", entry.Reason)
	assert.Nil(t, entry.CycleEnd)
}

func TestWebhookSettlesSubscriptionPayment(t *testing.T) {
	f := newPaymentFixture()
	body := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_456",
			"order_id": "order_456",
			"amount": 158650,
			"currency": "INR",
			"method": "upi",
			"notes": {"user_id": "u1", "kind": "subscription", "plan_id": "2", "billing_cycle": "monthly"}
		}}}
	}`)

	rec := postWebhook(t, f.svc, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, f.subs.sub)
	assert.Equal(t, int64(2), f.subs.sub.PlanID)
	assert.Equal(t, "monthly", f.subs.sub.BillingCycle)
	assert.Equal(t, "active", f.subs.sub.Status)

	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, 300, entry.Minutes)
	assert.Equal(t, "subscription_basic", entry.Reason)
	require.NotNil(t, entry.CycleStart)
	require.NotNil(t, entry.CycleEnd)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture()
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_789","notes":{"user_id":"u1"}}}}}`)

	rec := postWebhook(t, f.svc, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.payments.captured)
	assert.Empty(t, f.ledger.entries)
}

func TestWebhookMissingUserID(t *testing.T) {
	f := newPaymentFixture()
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_000","notes":{}}}}}`)

	rec := postWebhook(t, f.svc, body, signBody(body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUsdToINRPaise(t *testing.T) {
	assert.Equal(t, int64(158650), usdToINRPaise(19))
	assert.Equal(t, int64(100), usdToINRPaise(0))
	assert.Equal(t, int64(41750), usdToINRPaise(5))
}
