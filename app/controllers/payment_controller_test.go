package controllers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musevip/musebot/internal/pkg/middleware"
	"github.com/musevip/musebot/internal/pkg/payment"
)

type fakeFetcher struct {
	payments map[string]*payment.Payment
}

func (f *fakeFetcher) GetPayment(ctx context.Context, paymentID string) (*payment.Payment, error) {
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, assert.AnError
	}
	return p, nil
}

type fakeActivator struct {
	inputs []payment.ActivationInput
}

func (f *fakeActivator) Activate(ctx context.Context, in payment.ActivationInput) (bool, error) {
	f.inputs = append(f.inputs, in)
	return true, nil
}

func newPaymentWebhookApp(t *testing.T, fetcher *fakeFetcher, activator *fakeActivator) *fiber.App {
	t.Helper()
	t.Setenv("PAYMENT_WEBHOOK_SECRET", "hooksecret")
	InitializePaymentController(fetcher, activator)

	app := fiber.New()
	app.Post("/payments/webhook", middleware.SharedSecretMiddleware("PAYMENT_WEBHOOK_SECRET"), WrapPaymentWebhook())
	return app
}

func TestPaymentWebhookSecretMismatch(t *testing.T) {
	activator := &fakeActivator{}
	app := newPaymentWebhookApp(t, &fakeFetcher{}, activator)

	resp, err := app.Test(httptest.NewRequest("POST", "/payments/webhook?secret=wrong&topic=payment&id=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Empty(t, activator.inputs, "an unauthenticated call must not reach the activator")
}

func TestPaymentWebhookApprovedActivates(t *testing.T) {
	fetcher := &fakeFetcher{payments: map[string]*payment.Payment{
		"987": {ID: 987, Status: "approved", TransactionAmount: 50, CurrencyID: "MXN", ExternalReference: "4242"},
	}}
	activator := &fakeActivator{}
	app := newPaymentWebhookApp(t, fetcher, activator)

	resp, err := app.Test(httptest.NewRequest("POST", "/payments/webhook?secret=hooksecret&topic=payment&id=987", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, activator.inputs, 1)
	in := activator.inputs[0]
	assert.Equal(t, "987", in.PaymentID)
	assert.Equal(t, int64(4242), in.ChatID)
	assert.Equal(t, float64(50), in.Amount)
	assert.Equal(t, "MXN", in.Currency)
	assert.NotEmpty(t, in.RawJSON)
}

func TestPaymentWebhookJSONBodyNotification(t *testing.T) {
	fetcher := &fakeFetcher{payments: map[string]*payment.Payment{
		"555": {ID: 555, Status: "approved", TransactionAmount: 50, CurrencyID: "MXN", ExternalReference: "7"},
	}}
	activator := &fakeActivator{}
	app := newPaymentWebhookApp(t, fetcher, activator)

	body := strings.NewReader(`{"type":"payment","data":{"id":"555"}}`)
	req := httptest.NewRequest("POST", "/payments/webhook?secret=hooksecret", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, activator.inputs, 1)
	assert.Equal(t, int64(7), activator.inputs[0].ChatID)
}

func TestPaymentWebhookNonApprovedIgnored(t *testing.T) {
	fetcher := &fakeFetcher{payments: map[string]*payment.Payment{
		"10": {ID: 10, Status: "pending", TransactionAmount: 50, CurrencyID: "MXN", ExternalReference: "1"},
	}}
	activator := &fakeActivator{}
	app := newPaymentWebhookApp(t, fetcher, activator)

	resp, err := app.Test(httptest.NewRequest("POST", "/payments/webhook?secret=hooksecret&topic=payment&id=10", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "non-approved payments are acked, not retried")
	assert.Empty(t, activator.inputs)
}

func TestPaymentWebhookAmountMismatchIgnored(t *testing.T) {
	fetcher := &fakeFetcher{payments: map[string]*payment.Payment{
		"11": {ID: 11, Status: "approved", TransactionAmount: 1, CurrencyID: "MXN", ExternalReference: "1"},
	}}
	activator := &fakeActivator{}
	app := newPaymentWebhookApp(t, fetcher, activator)

	resp, err := app.Test(httptest.NewRequest("POST", "/payments/webhook?secret=hooksecret&topic=payment&id=11", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, activator.inputs)
}

func TestPaymentWebhookOtherTopicIgnored(t *testing.T) {
	activator := &fakeActivator{}
	app := newPaymentWebhookApp(t, &fakeFetcher{}, activator)

	resp, err := app.Test(httptest.NewRequest("POST", "/payments/webhook?secret=hooksecret&topic=merchant_order&id=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, activator.inputs)
}

func TestPaymentWebhookFetchFailureStillAcks(t *testing.T) {
	activator := &fakeActivator{}
	app := newPaymentWebhookApp(t, &fakeFetcher{}, activator)

	resp, err := app.Test(httptest.NewRequest("POST", "/payments/webhook?secret=hooksecret&topic=payment&id=404", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "errors are logged and acked to avoid retry storms")
	assert.Empty(t, activator.inputs)
}
