// Package payment integrates the CryptoPay gateway: an HTTP client for
// invoices and transfers, and a watcher that polls open invoices until
// they reach a terminal status.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the gateway's view of a payment intent.
type Invoice struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	PayURL    string `json:"pay_url"`
	Payload   string `json:"payload,omitempty"`
}

// APIError is a gateway-level failure.
type APIError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment api error %d: %s", e.Code, e.Name)
}

// Client is a CryptoPay API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a gateway client for the given API base and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// apiResponse is the gateway envelope: result on success, error otherwise.
type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

// call performs one API request and unmarshals the result envelope.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	var body *bytes.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal %s params: %w", method, err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer res.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if !envelope.OK {
		if envelope.Error != nil {
			return envelope.Error
		}
		return fmt.Errorf("%s returned http %d", method, res.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// CreateInvoice issues a new invoice for the given asset and amount.
func (c *Client) CreateInvoice(ctx context.Context, asset string, amount decimal.Decimal, payload string) (*Invoice, error) {
	params := map[string]string{
		"asset":  asset,
		"amount": amount.String(),
	}
	if payload != "" {
		params["payload"] = payload
	}

	var invoice Invoice
	if err := c.call(ctx, "createInvoice", params, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetInvoices fetches the current state of the given invoices.
func (c *Client) GetInvoices(ctx context.Context, invoiceIDs []int64) ([]Invoice, error) {
	ids := make([]string, len(invoiceIDs))
	for i, id := range invoiceIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	params := map[string]string{"invoice_ids": strings.Join(ids, ",")}

	var result struct {
		Items []Invoice `json:"items"`
	}
	if err := c.call(ctx, "getInvoices", params, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Transfer sends funds from the app balance to a user.
func (c *Client) Transfer(ctx context.Context, userID int64, asset string, amount decimal.Decimal, spendID string) error {
	params := map[string]string{
		"user_id":  strconv.FormatInt(userID, 10),
		"asset":    asset,
		"amount":   amount.String(),
		"spend_id": spendID,
	}
	return c.call(ctx, "transfer", params, nil)
}
