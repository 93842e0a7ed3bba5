// Package razorpay is a thin adapter over the Razorpay hosted checkout:
// order creation plus signature verification for the two completion
// channels (browser callback, server webhook).
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// KeyID returns the public key the browser checkout widget needs.
func (c *Client) KeyID() string {
	return c.cfg.KeyID
}

// GatewayOrder is the handle returned by the gateway's order endpoint.
// Amount is in the gateway's minor unit (paise).
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder registers a payment order with the gateway. amount is in whole
// currency units; the gateway wants paise.
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (*GatewayOrder, error) {
	payload := map[string]any{
		"amount":   amount * 100,
		"currency": "INR",
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create gateway order: status %d: %s", resp.StatusCode, respBody)
	}

	var order GatewayOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	return &order, nil
}

// VerifyPaymentSignature checks the signature the buyer's browser reports
// after the hosted flow completes: HMAC-SHA256 of "orderID|paymentID" keyed
// with the API secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, c.cfg.KeySecret)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw webhook body, keyed with the webhook secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(body, signature, c.cfg.WebhookSecret)
}

func verifyHMAC(message []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
