package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client mirrors wallet balances to the external quota service. The mirror is
// best-effort: the internal ledger stays authoritative and callers bound
// their own retries.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: timeout},
	}
}

type updateBalanceRequest struct {
	CustomerID   uint64 `json:"customer_id"`
	BalanceCents int64  `json:"balance_cents"`
}

func (c *Client) UpdateBalance(ctx context.Context, customerID uint64, balanceCents int64) error {
	if c.baseURL == "" {
		return errors.New("quota service base url is not configured")
	}

	body, err := json.Marshal(&updateBalanceRequest{CustomerID: customerID, BalanceCents: balanceCents})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/internal/quota/balance", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("quota service returned status=%d", resp.StatusCode)
	}

	return nil
}
