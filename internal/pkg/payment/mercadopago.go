// Package payment integrates the Mercado Pago checkout/payment API and
// turns approved payments into VIP subscription windows.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/musevip/musebot/internal/pkg/constants"
	"github.com/musevip/musebot/internal/pkg/env"
)

const defaultMercadoPagoAPIBaseURL = "https://api.mercadopago.com"

// Client is a thin REST client for the payment processor. Checkout links
// are created through preferences; payment details are always re-fetched
// by id before anything is trusted.
type Client struct {
	AccessToken     string
	APIBaseURL      string
	NotificationURL string
	BackURL         string

	HTTPClient *http.Client
}

// NewClientFromEnv builds the client from MP_* and PUBLIC_DOMAIN env
// values. The notification URL carries the shared webhook secret so the
// processor's callbacks can authenticate themselves.
func NewClientFromEnv() *Client {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	notificationURL := strings.TrimSpace(env.GetEnv("MP_NOTIFICATION_URL", ""))
	if notificationURL == "" && base != "" {
		secret := strings.TrimSpace(env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""))
		notificationURL = base + constants.PaymentWebhookRoute
		if secret != "" {
			notificationURL += "?secret=" + secret
		}
	}

	return &Client{
		AccessToken:     strings.TrimSpace(env.GetEnv("MP_ACCESS_TOKEN", "")),
		APIBaseURL:      strings.TrimSpace(env.GetEnv("MP_API_BASE_URL", defaultMercadoPagoAPIBaseURL)),
		NotificationURL: notificationURL,
		BackURL:         strings.TrimSpace(env.GetEnv("MP_BACK_URL", "")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Payment is the subset of the processor's payment detail the bot cares
// about. ExternalReference carries the chat id set at preference time.
type Payment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
	ExternalReference string  `json:"external_reference"`
}

// ChatID parses the correlation token back into a chat id.
func (p *Payment) ChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(p.ExternalReference), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("payment %d has invalid external_reference %q: %w", p.ID, p.ExternalReference, err)
	}
	return id, nil
}

// CreatePreference creates a checkout for the fixed VIP product, tagged
// with the chat id, and returns the user-facing checkout URL.
func (c *Client) CreatePreference(ctx context.Context, chatID int64, title string, price float64, currency string) (string, error) {
	if strings.TrimSpace(c.AccessToken) == "" {
		return "", errors.New("MP_ACCESS_TOKEN is not configured")
	}

	reqBody := preferenceRequest{
		Items: []preferenceItem{{
			Title:      title,
			Quantity:   1,
			UnitPrice:  price,
			CurrencyID: currency,
		}},
		ExternalReference: strconv.FormatInt(chatID, 10),
		NotificationURL:   c.NotificationURL,
	}
	if c.BackURL != "" {
		reqBody.BackURLs = map[string]string{"success": c.BackURL, "pending": c.BackURL, "failure": c.BackURL}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("preference creation failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out preferenceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.InitPoint) == "" {
		return "", errors.New("preference response has empty init_point")
	}
	return out.InitPoint, nil
}

// GetPayment fetches the full payment detail by id. Webhook payload
// fields are never trusted for the approval decision; this call is.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(c.AccessToken) == "" {
		return nil, errors.New("MP_ACCESS_TOKEN is not configured")
	}
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, errors.New("payment id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/v1/payments/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out Payment
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
