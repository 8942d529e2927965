package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createInvoice", r.URL.Path)
		assert.Equal(t, "secret-token", r.Header.Get("Crypto-Pay-API-Token"))

		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "USDT", params["asset"])
		assert.Equal(t, "25.5", params["amount"])
		assert.Equal(t, "deposit:100", params["payload"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": Invoice{
				InvoiceID: 42,
				Status:    "active",
				Asset:     "USDT",
				Amount:    "25.5",
				PayURL:    "https://pay.example/42",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token")

	invoice, err := client.CreateInvoice(context.Background(), "USDT", decimal.RequireFromString("25.5"), "deposit:100")
	require.NoError(t, err)
	assert.Equal(t, int64(42), invoice.InvoiceID)
	assert.Equal(t, "active", invoice.Status)
	assert.Equal(t, "https://pay.example/42", invoice.PayURL)
}

func TestClientGetInvoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getInvoices", r.URL.Path)

		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "1,2,3", params["invoice_ids"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"items": []Invoice{
					{InvoiceID: 1, Status: "paid"},
					{InvoiceID: 2, Status: "active"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token")

	invoices, err := client.GetInvoices(context.Background(), []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "paid", invoices[0].Status)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":    false,
			"error": APIError{Code: 429, Name: "TOO_MANY_REQUESTS"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token")

	_, err := client.GetInvoices(context.Background(), []int64{1})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", apiErr.Name)
}

func TestClientTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfer", r.URL.Path)

		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "100", params["user_id"])
		assert.Equal(t, "withdraw:7", params["spend_id"])

		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token")

	err := client.Transfer(context.Background(), 100, "USDT", decimal.RequireFromString("30.00"), "withdraw:7")
	require.NoError(t, err)
}
