package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.flutterwave.com/v3"

// Charge statuses as reported by the provider.
const (
	ChargeStatusPending    = "pending"
	ChargeStatusSuccessful = "successful"
	ChargeStatusFailed     = "failed"
)

// ErrUnreachable marks a charge or verify attempt that never produced a
// definitive answer from the provider (network error, timeout). Callers must
// not treat it as a confirmed failure.
var ErrUnreachable = errors.New("payment gateway unreachable")

// RejectedError is a well-formed error response from the provider.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment gateway rejected request: %s", e.Message)
}

// ChargeResult is the provider's answer to a charge request.
type ChargeResult struct {
	Status        string // pending, successful, failed
	FlwRef        string
	TransactionID int64
	RedirectURL   string // card rails may require a redirect
}

// VerifyResult is the authoritative status pulled for a transaction.
type VerifyResult struct {
	Status        string
	TxRef         string
	FlwRef        string
	TransactionID int64
	Amount        int64
	Currency      string
}

// MobileMoneyCharge carries everything needed to initiate a mobile money
// charge. Network is the operator short code (MTN, ORANGE).
type MobileMoneyCharge struct {
	TxRef       string
	Amount      int64
	Currency    string
	Country     string
	Network     string
	PhoneNumber string
	Email       string
	FullName    string
}

// CardCharge carries everything needed to initiate a card charge.
type CardCharge struct {
	TxRef       string
	Amount      int64
	Currency    string
	CardNumber  string
	CVV         string
	ExpiryMonth string
	ExpiryYear  string
	Email       string
	FullName    string
	RedirectURL string
}

// Client wraps the Flutterwave HTTP API. It performs no retries or
// deduplication; callers supply a fresh tx_ref per logical attempt.
type Client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
}

// NewClient creates a gateway client with a bounded request timeout.
func NewClient(baseURL, secretKey, webhookSecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// NewClientFromEnv creates a gateway client from environment configuration.
func NewClientFromEnv() *Client {
	timeout := 30 * time.Second
	if s := os.Getenv("GATEWAY_TIMEOUT_SECONDS"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	return NewClient(
		os.Getenv("FLW_BASE_URL"),
		os.Getenv("FLW_SECRET_KEY"),
		os.Getenv("FLW_WEBHOOK_SECRET"),
		timeout,
	)
}

type chargeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID     int64  `json:"id"`
		TxRef  string `json:"tx_ref"`
		FlwRef string `json:"flw_ref"`
		Status string `json:"status"`
		Auth   struct {
			Redirect string `json:"redirect"`
		} `json:"authorization"`
	} `json:"data"`
	Meta struct {
		Authorization struct {
			Redirect string `json:"redirect"`
		} `json:"authorization"`
	} `json:"meta"`
}

// ChargeMobileMoney initiates a franco mobile money charge (MTN MoMo, Orange
// Money). The returned status is usually pending until the payer approves on
// their handset.
func (c *Client) ChargeMobileMoney(ctx context.Context, charge MobileMoneyCharge) (*ChargeResult, error) {
	body := map[string]interface{}{
		"tx_ref":       charge.TxRef,
		"amount":       charge.Amount,
		"currency":     charge.Currency,
		"country":      charge.Country,
		"network":      charge.Network,
		"phone_number": charge.PhoneNumber,
		"email":        charge.Email,
		"fullname":     charge.FullName,
	}
	return c.postCharge(ctx, "/charges?type=mobile_money_franco", body)
}

// ChargeCard initiates a card charge.
func (c *Client) ChargeCard(ctx context.Context, charge CardCharge) (*ChargeResult, error) {
	body := map[string]interface{}{
		"tx_ref":       charge.TxRef,
		"amount":       charge.Amount,
		"currency":     charge.Currency,
		"card_number":  charge.CardNumber,
		"cvv":          charge.CVV,
		"expiry_month": charge.ExpiryMonth,
		"expiry_year":  charge.ExpiryYear,
		"email":        charge.Email,
		"fullname":     charge.FullName,
		"redirect_url": charge.RedirectURL,
	}
	return c.postCharge(ctx, "/charges?type=card", body)
}

func (c *Client) postCharge(ctx context.Context, path string, body map[string]interface{}) (*ChargeResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var parsed chargeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid response body", ErrUnreachable)
	}

	if resp.StatusCode >= 400 || parsed.Status == "error" {
		return nil, &RejectedError{Message: parsed.Message}
	}

	redirect := parsed.Meta.Authorization.Redirect
	if redirect == "" {
		redirect = parsed.Data.Auth.Redirect
	}

	return &ChargeResult{
		Status:        parsed.Data.Status,
		FlwRef:        parsed.Data.FlwRef,
		TransactionID: parsed.Data.ID,
		RedirectURL:   redirect,
	}, nil
}

// VerifyTransaction pulls the authoritative status for a gateway transaction
// id. Used to resolve payments stuck in pending.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID int64) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/transactions/%d/verify", c.baseURL, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID       int64   `json:"id"`
			TxRef    string  `json:"tx_ref"`
			FlwRef   string  `json:"flw_ref"`
			Status   string  `json:"status"`
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid response body", ErrUnreachable)
	}

	if resp.StatusCode >= 400 || parsed.Status == "error" {
		return nil, &RejectedError{Message: parsed.Message}
	}

	return &VerifyResult{
		Status:        parsed.Data.Status,
		TxRef:         parsed.Data.TxRef,
		FlwRef:        parsed.Data.FlwRef,
		TransactionID: parsed.Data.ID,
		Amount:        int64(parsed.Data.Amount),
		Currency:      parsed.Data.Currency,
	}, nil
}

// ValidateWebhookSignature checks the signature header delivered with a
// webhook against an HMAC-SHA256 of the raw payload. Comparison is constant
// time. A webhook that fails this check must be rejected before its payload
// is trusted.
func (c *Client) ValidateWebhookSignature(rawPayload []byte, signatureHeader string) bool {
	return ValidateWebhookSignature(rawPayload, signatureHeader, c.webhookSecret)
}

// ValidateWebhookSignature is the standalone form used by tests and by
// callers that hold the secret themselves.
func ValidateWebhookSignature(rawPayload []byte, signatureHeader, secret string) bool {
	if secret == "" || signatureHeader == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawPayload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}

// SignWebhookPayload produces the signature the gateway would attach to a
// payload. Exposed for tests and local tooling.
func SignWebhookPayload(rawPayload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawPayload)
	return hex.EncodeToString(mac.Sum(nil))
}
