package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreference(t *testing.T) {
	var captured preferenceRequest
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(preferenceResponse{
			ID:        "pref-1",
			InitPoint: "https://checkout.example/pref-1",
		})
	}))
	defer server.Close()

	client := &Client{
		AccessToken:     "test-token",
		APIBaseURL:      server.URL,
		NotificationURL: "https://bot.example/payments/webhook?secret=s",
		HTTPClient:      server.Client(),
	}

	url, err := client.CreatePreference(context.Background(), 4242, "Muse VIP — 30 days", 50, "MXN")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/pref-1", url)

	assert.Equal(t, "Bearer test-token", headers.Get("Authorization"))
	assert.NotEmpty(t, headers.Get("X-Idempotency-Key"))

	require.Len(t, captured.Items, 1)
	assert.Equal(t, "Muse VIP — 30 days", captured.Items[0].Title)
	assert.Equal(t, float64(50), captured.Items[0].UnitPrice)
	assert.Equal(t, "MXN", captured.Items[0].CurrencyID)
	assert.Equal(t, "4242", captured.ExternalReference)
	assert.Equal(t, "https://bot.example/payments/webhook?secret=s", captured.NotificationURL)
}

func TestCreatePreferenceWithoutToken(t *testing.T) {
	client := &Client{HTTPClient: &http.Client{Timeout: time.Second}}
	_, err := client.CreatePreference(context.Background(), 1, "x", 50, "MXN")
	assert.Error(t, err)
}

func TestCreatePreferenceUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := &Client{AccessToken: "bad", APIBaseURL: server.URL, HTTPClient: server.Client()}
	_, err := client.CreatePreference(context.Background(), 1, "x", 50, "MXN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}

func TestGetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/987", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Payment{
			ID:                987,
			Status:            "approved",
			TransactionAmount: 50,
			CurrencyID:        "MXN",
			ExternalReference: "4242",
		})
	}))
	defer server.Close()

	client := &Client{AccessToken: "test-token", APIBaseURL: server.URL, HTTPClient: server.Client()}

	payment, err := client.GetPayment(context.Background(), "987")
	require.NoError(t, err)
	assert.Equal(t, int64(987), payment.ID)
	assert.Equal(t, "approved", payment.Status)

	chatID, err := payment.ChatID()
	require.NoError(t, err)
	assert.Equal(t, int64(4242), chatID)
}

func TestPaymentChatIDInvalidReference(t *testing.T) {
	p := &Payment{ID: 1, ExternalReference: "not-a-chat"}
	_, err := p.ChatID()
	assert.Error(t, err)
}

func TestProductMatches(t *testing.T) {
	t.Setenv("VIP_PRICE", "")
	t.Setenv("VIP_CURRENCY", "")

	assert.True(t, Matches(50, "MXN"))
	assert.True(t, Matches(50, "mxn"))
	assert.False(t, Matches(49.99, "MXN"))
	assert.False(t, Matches(50, "USD"))

	t.Setenv("VIP_PRICE", "120")
	t.Setenv("VIP_CURRENCY", "USD")
	assert.True(t, Matches(120, "USD"))
	assert.False(t, Matches(50, "MXN"))
}
