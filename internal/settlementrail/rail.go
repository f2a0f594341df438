package settlementrail

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// The settlement rail is the opaque chain gateway holding house
// custody. This client only consumes it: deposit detection and the
// address -> user directory. Transaction crafting and signing live on
// the gateway side.

type Deposit struct {
	FromAddress  string `json:"from_address"`
	AmountMicros int64  `json:"amount_micros"`
	TxRef        string `json:"tx_ref"`
}

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
			Timeout: 15 * time.Second,
		},
	}
}

type depositsResponse struct {
	Status   string    `json:"status"`
	Resp     string    `json:"resp,omitempty"`
	Deposits []Deposit `json:"deposits"`
}

type directoryResponse struct {
	Status string `json:"status"`
	Resp   string `json:"resp,omitempty"`
	UserID string `json:"user_id"`
}

// PendingDeposits lists deposits into house custody not yet
// acknowledged by the engine.
func (c *Client) PendingDeposits() ([]Deposit, error) {
	baseUrl, err := url.Parse(c.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %v", err)
	}
	baseUrl.Path = path.Join(baseUrl.Path, "deposits", "pending")

	req, err := http.NewRequest("GET", baseUrl.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create deposits request: %v", err)
	}
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send deposits request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read deposits response body: %v", err)
	}

	var out depositsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse deposits response: %v", err)
	}
	if out.Status == "error" {
		return nil, fmt.Errorf("rail error: %s", out.Resp)
	}
	return out.Deposits, nil
}

// AckDeposit tells the gateway a deposit was credited (or parked) so it
// is not reported again.
func (c *Client) AckDeposit(txRef string) error {
	baseUrl, err := url.Parse(c.BaseUrl)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %v", err)
	}
	baseUrl.Path = path.Join(baseUrl.Path, "deposits", "ack", txRef)

	req, err := http.NewRequest("POST", baseUrl.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create ack request: %v", err)
	}
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ack request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("rail ack failed: %s - %s", resp.Status, string(body))
	}
	return nil
}

// ResolveAddress maps a deposit source address to a registered user id
// through the user directory. Returns an empty id when nobody owns the
// address yet.
func (c *Client) ResolveAddress(address string) (string, error) {
	baseUrl, err := url.Parse(c.BaseUrl)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %v", err)
	}
	baseUrl.Path = path.Join(baseUrl.Path, "users", "by-address", address)

	req, err := http.NewRequest("GET", baseUrl.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create directory request: %v", err)
	}
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send directory request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read directory response body: %v", err)
	}

	var out directoryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse directory response: %v", err)
	}
	if out.Status == "error" {
		return "", fmt.Errorf("directory error: %s", out.Resp)
	}
	return out.UserID, nil
}
