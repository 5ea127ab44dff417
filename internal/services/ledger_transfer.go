// internal/services/ledger_transfer.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/propshare/propshare-backend/internal/config"
)

// TransferRequest moves property tokens from the treasury account to an
// investor account. IdempotencyKey is the saga's transaction ID: the transfer
// service deduplicates on it, so re-submitting after an unknown outcome is
// safe and this engine never invents its own at-most-once guarantee.
type TransferRequest struct {
	IdempotencyKey string
	FromTreasury   string
	ToAccount      string
	TokenID        string
	Amount         int64
}

type TransferResult struct {
	TransferRef string
}

// LedgerTransferService is the external distributed-ledger collaborator. A
// single call is never retried internally; an unknown outcome (timeout,
// partition) surfaces as a retryable error and recovery happens through the
// saga's explicit retry path.
type LedgerTransferService interface {
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
}

// HTTPLedgerTransferService talks to the transfer API over HTTP with an
// explicit per-call timeout.
type HTTPLedgerTransferService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPLedgerTransferService(cfg *config.Config) *HTTPLedgerTransferService {
	return &HTTPLedgerTransferService{
		baseURL: strings.TrimRight(cfg.Ledger.TransferURL, "/"),
		apiKey:  cfg.Ledger.APIKey,
		client: &http.Client{
			Timeout: time.Duration(cfg.Ledger.TransferTimeout) * time.Second,
		},
	}
}

type transferAPIRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	FromAccount    string `json:"from_account"`
	ToAccount      string `json:"to_account"`
	TokenID        string `json:"token_id"`
	Amount         int64  `json:"amount"`
}

type transferAPIResponse struct {
	Success     bool   `json:"success"`
	TransferRef string `json:"transfer_ref,omitempty"`
	Retryable   bool   `json:"retryable,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (s *HTTPLedgerTransferService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	body, err := json.Marshal(transferAPIRequest{
		IdempotencyKey: req.IdempotencyKey,
		FromAccount:    req.FromTreasury,
		ToAccount:      req.ToAccount,
		TokenID:        req.TokenID,
		Amount:         req.Amount,
	})
	if err != nil {
		return nil, &LedgerTransferError{TransactionID: req.IdempotencyKey, Retryable: false, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, &LedgerTransferError{TransactionID: req.IdempotencyKey, Retryable: false, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		// Timeout or network partition: outcome unknown, recover via retry
		// with the same idempotency key.
		return nil, &LedgerTransferError{TransactionID: req.IdempotencyKey, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	var parsed transferAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &LedgerTransferError{TransactionID: req.IdempotencyKey, Retryable: true, Err: err}
	}

	if resp.StatusCode >= 500 {
		return nil, &LedgerTransferError{
			TransactionID: req.IdempotencyKey,
			Retryable:     true,
			Err:           fmt.Errorf("transfer service returned %d: %s", resp.StatusCode, parsed.Message),
		}
	}

	if !parsed.Success {
		return nil, &LedgerTransferError{
			TransactionID: req.IdempotencyKey,
			Retryable:     parsed.Retryable,
			Err:           errors.New(parsed.Message),
		}
	}

	return &TransferResult{TransferRef: parsed.TransferRef}, nil
}
