package ledgercli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"
)

// ErrSettlementTimeout marks a ledger call whose outcome is unknown.
// The caller must re-read the authoritative balance before deciding bet
// state; it must never assume the adjust failed.
var ErrSettlementTimeout = errors.New("ledger call timed out, outcome unknown")

// ErrInsufficientFunds is surfaced when the ledger rejects a debit.
var ErrInsufficientFunds = errors.New("insufficient funds")

type Client struct {
	BaseUrl string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseUrl, apiKey string) *Client {
	return &Client{
		BaseUrl: baseUrl,
		APIKey:  apiKey,
		HTTP: &http.Client{
			Timeout: 10 * time.Second, // Settlement calls carry a bounded timeout.
		},
	}
}

type adjustRequest struct {
	UserID        string `json:"user_id"`
	AmountMicros  int64  `json:"amount_micros"`
	Kind          string `json:"kind"`
	RoundID       string `json:"round_id,omitempty"`
	TransactionID string `json:"transaction_id"`
}

type adjustResponse struct {
	Status           string `json:"status"`
	Resp             string `json:"resp,omitempty"`
	NewBalanceMicros int64  `json:"new_balance_micros"`
}

type balanceResponse struct {
	Status        string `json:"status"`
	Resp          string `json:"resp,omitempty"`
	BalanceMicros int64  `json:"balance_micros"`
}

// AtomicAdjustBalance applies a signed delta to a user's custodial
// balance. The ledger is atomic and idempotent per transaction id, so a
// retried call with the same txID never double-applies.
func (c *Client) AtomicAdjustBalance(userID string, deltaMicros int64, kind, roundID, txID string) (int64, error) {
	baseUrl, err := url.Parse(c.BaseUrl)
	if err != nil {
		return 0, fmt.Errorf("failed to parse base URL: %v", err)
	}
	baseUrl.Path = path.Join(baseUrl.Path, "balance", "adjust")

	jsonData, err := json.Marshal(adjustRequest{
		UserID:        userID,
		AmountMicros:  deltaMicros,
		Kind:          kind,
		RoundID:       roundID,
		TransactionID: txID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to serialize adjust data: %v", err)
	}

	req, err := http.NewRequest("POST", baseUrl.String(), bytes.NewReader(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create adjust request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, ErrSettlementTimeout
		}
		return 0, fmt.Errorf("failed to send adjust request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read adjust response body: %v", err)
	}

	// Try to unmarshal as an error first
	var out adjustResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to parse adjust response: %v", err)
	}
	if out.Status == "error" {
		if out.Resp == "insufficient_funds" {
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("ledger error: %s", out.Resp)
	}
	return out.NewBalanceMicros, nil
}

// GetBalance reads the authoritative custodial balance.
func (c *Client) GetBalance(userID string) (int64, error) {
	baseUrl, err := url.Parse(c.BaseUrl)
	if err != nil {
		return 0, fmt.Errorf("failed to parse base URL: %v", err)
	}
	baseUrl.Path = path.Join(baseUrl.Path, "balance", userID)

	req, err := http.NewRequest("GET", baseUrl.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create balance request: %v", err)
	}
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, ErrSettlementTimeout
		}
		return 0, fmt.Errorf("failed to send balance request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance response body: %v", err)
	}

	var out balanceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("failed to parse balance response: %v", err)
	}
	if out.Status == "error" {
		return 0, fmt.Errorf("ledger error: %s", out.Resp)
	}
	return out.BalanceMicros, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
