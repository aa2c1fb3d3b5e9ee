/**
 * @description
 * Client for the wallet ledger service: balance reads and debits.
 */
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/walletgate/confirmation-service/internal/domain"
)

// Client talks to the ledger service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new ledger service client.
func NewClient(baseURL string, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetBalance returns the account's current balance in minor units.
func (c *Client) GetBalance(ctx context.Context, accountID string) (int64, error) {
	if accountID == "" {
		return 0, fmt.Errorf("account ID is required")
	}

	url := fmt.Sprintf("%s/internal/wallets/%s/balance", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Internal-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, domain.ErrUnknownAccount
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("ledger service returned status %d", resp.StatusCode)
	}

	var response struct {
		Balance int64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to parse balance response: %w", err)
	}
	return response.Balance, nil
}

// Debit deducts amount from the account's balance, tagged with a reason.
// A 402 from the ledger maps to domain.ErrInsufficientBalance.
func (c *Client) Debit(ctx context.Context, accountID string, amount int64, reason string) error {
	if accountID == "" {
		return fmt.Errorf("account ID is required")
	}
	if c.apiKey == "" {
		return fmt.Errorf("ledger service internal api key is not configured")
	}

	payload := map[string]interface{}{
		"account_id": accountID,
		"amount":     amount,
		"reason":     reason,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/internal/wallets/%s/debit", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-API-Key", c.apiKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return domain.ErrInsufficientBalance
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ledger service returned status %d", resp.StatusCode)
	}
	return nil
}
