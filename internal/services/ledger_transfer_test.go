package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferServiceFor(t *testing.T, handler http.HandlerFunc) (*HTTPLedgerTransferService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := newTestConfig()
	cfg.Ledger.TransferURL = server.URL
	cfg.Ledger.APIKey = "test-key"
	return NewHTTPLedgerTransferService(cfg), server
}

func TestTransferSuccess(t *testing.T) {
	var gotKey string
	svc, _ := transferServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotKey, _ = body["idempotency_key"].(string)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      true,
			"transfer_ref": "xfer_abc",
		})
	})

	result, err := svc.Transfer(context.Background(), &TransferRequest{
		IdempotencyKey: "tx-123",
		FromTreasury:   "acct:treasury:1",
		ToAccount:      "acct:investor:1",
		TokenID:        "tok_1",
		Amount:         50,
	})

	require.NoError(t, err)
	assert.Equal(t, "xfer_abc", result.TransferRef)
	assert.Equal(t, "tx-123", gotKey)
}

func TestTransferServerErrorIsRetryable(t *testing.T) {
	svc, _ := transferServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "ledger node unavailable",
		})
	})

	_, err := svc.Transfer(context.Background(), &TransferRequest{IdempotencyKey: "tx-500"})

	var transferErr *LedgerTransferError
	require.ErrorAs(t, err, &transferErr)
	assert.True(t, transferErr.Retryable)
	assert.Equal(t, "tx-500", transferErr.TransactionID)
}

func TestTransferRejectionHonorsRetryableFlag(t *testing.T) {
	svc, _ := transferServiceFor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":   false,
			"retryable": false,
			"message":   "token frozen",
		})
	})

	_, err := svc.Transfer(context.Background(), &TransferRequest{IdempotencyKey: "tx-frozen"})

	var transferErr *LedgerTransferError
	require.ErrorAs(t, err, &transferErr)
	assert.False(t, transferErr.Retryable)
}

func TestTransferNetworkErrorIsRetryable(t *testing.T) {
	svc, server := transferServiceFor(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := svc.Transfer(context.Background(), &TransferRequest{IdempotencyKey: "tx-down"})

	var transferErr *LedgerTransferError
	require.ErrorAs(t, err, &transferErr)
	assert.True(t, transferErr.Retryable)
}
