// internal/services/investment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/propshare/propshare-backend/internal/config"
	"github.com/propshare/propshare-backend/internal/models"
	"github.com/propshare/propshare-backend/internal/valuation"
)

// AuditSink receives settlement audit events. Implementations must not block.
type AuditSink interface {
	Record(userID uuid.UUID, action string, transactionID uuid.UUID, details models.JSONB)
}

// Notifier sends user-facing settlement notifications. Delivery is best
// effort; failures are logged and never fail a saga run.
type Notifier interface {
	SendPurchaseConfirmation(user *models.User, property *models.Property, transaction *models.Transaction) error
	SendTransferPending(user *models.User, property *models.Property, transaction *models.Transaction) error
	SendRefundNotification(user *models.User, property *models.Property, transaction *models.Transaction, reason string) error
}

type PurchaseRequest struct {
	PropertyID    uuid.UUID `json:"property_id" validate:"required"`
	TokenAmount   int64     `json:"token_amount" validate:"required,gt=0"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
	Currency      string    `json:"currency,omitempty"`
}

type PurchaseResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Investment  *models.Investment  `json:"investment"`
}

// InvestmentService coordinates the settlement saga for token purchases:
// collect payment, transfer tokens on the ledger, then atomically reserve
// supply and merge the holding. Each run owns exactly one Transaction record
// whose ID doubles as the idempotency key for both external calls.
type InvestmentService struct {
	store      LedgerStore
	gateway    PaymentGateway
	transfers  LedgerTransferService
	compliance ComplianceService
	audit      AuditSink
	notifier   Notifier
	config     *config.Config
}

func NewInvestmentService(
	store LedgerStore,
	gateway PaymentGateway,
	transfers LedgerTransferService,
	compliance ComplianceService,
	audit AuditSink,
	notifier Notifier,
	cfg *config.Config,
) *InvestmentService {
	return &InvestmentService{
		store:      store,
		gateway:    gateway,
		transfers:  transfers,
		compliance: compliance,
		audit:      audit,
		notifier:   notifier,
		config:     cfg,
	}
}

// Purchase runs a full saga: validate, charge, transfer, commit. The charge
// happens before supply is reserved, so losing a concurrent race on the last
// tokens triggers a compensating refund rather than an oversell.
func (s *InvestmentService) Purchase(ctx context.Context, userID uuid.UUID, req *PurchaseRequest) (*PurchaseResult, error) {
	if req.TokenAmount <= 0 {
		return nil, &ValidationError{Field: "token_amount", Message: "must be positive"}
	}
	if req.PaymentMethod == "" {
		return nil, &ValidationError{Field: "payment_method", Message: "is required"}
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.CanInvest() {
		return nil, &ValidationError{Field: "user", Message: "account is not eligible to invest"}
	}

	property, err := s.store.GetProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if property.Status != models.PropertyStatusActive {
		return nil, &ValidationError{Field: "property", Message: "property is not open for investment"}
	}
	if !property.Tokenized() {
		return nil, &ValidationError{Field: "property", Message: "property has not been issued on the ledger"}
	}

	// Advisory pre-check. The binding supply check is the guarded decrement
	// at commit time; this only avoids charging for an obviously doomed
	// purchase.
	if req.TokenAmount > property.AvailableTokens {
		return nil, ErrInsufficientTokens
	}

	amount, fee, total := valuation.PurchaseAmounts(req.TokenAmount, property.PricePerToken, property.PlatformFeePercentage)
	if amount < property.MinimumInvestment {
		return nil, &ValidationError{
			Field:   "token_amount",
			Message: fmt.Sprintf("purchase is below the minimum investment of %.2f", property.MinimumInvestment),
		}
	}

	if s.compliance != nil {
		decision, err := s.compliance.CheckLimits(ctx, userID, total)
		if err != nil {
			return nil, fmt.Errorf("compliance check unavailable: %w", err)
		}
		if !decision.Allowed {
			return nil, &ValidationError{Field: "compliance", Message: decision.Reason}
		}
		for _, w := range decision.Warnings {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"warning": w,
			}).Warn("Compliance warning on purchase")
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = s.config.Payment.DefaultCurrency
	}

	txRecord := &models.Transaction{
		UserID:        userID,
		PropertyID:    property.ID,
		Type:          models.TransactionTypeInvestment,
		TokenAmount:   req.TokenAmount,
		PricePerToken: property.PricePerToken,
		Amount:        amount,
		FeeAmount:     fee,
		NetAmount:     total,
		Currency:      currency,
		PaymentMethod: req.PaymentMethod,
		Status:        models.TransactionStatusPending,
	}
	if err := s.store.CreateTransaction(ctx, txRecord); err != nil {
		return nil, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.Payment.ChargeTimeout)*time.Second)
	defer cancel()

	charge, err := s.gateway.Charge(chargeCtx, &ChargeRequest{
		Amount:         total,
		Currency:       currency,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: txRecord.ID.String(),
		Metadata: map[string]string{
			"user_id":      userID.String(),
			"property_id":  property.ID.String(),
			"token_amount": fmt.Sprintf("%d", req.TokenAmount),
		},
	})
	if err != nil {
		failCtx := context.WithoutCancel(ctx)
		if markErr := s.store.MarkTransactionFailed(failCtx, txRecord.ID, err.Error()); markErr != nil {
			logrus.WithError(markErr).WithField("transaction_id", txRecord.ID).Error("Failed to mark transaction failed after charge error")
		}
		s.recordAudit(userID, models.AuditActionPurchaseFailed, txRecord.ID, models.JSONB{
			"reason": err.Error(),
			"stage":  "payment",
		})
		return nil, &PaymentError{Reason: "payment was declined", Err: err}
	}

	// Money is collected from here on. Caller cancellation must not abandon
	// a paid purchase, so the rest of the saga runs on a detached context.
	ctx = context.WithoutCancel(ctx)

	if err := s.store.MarkTransactionProcessing(ctx, txRecord.ID, charge.Reference); err != nil {
		// Money is collected but the durable marker is missing, so the
		// sweeper cannot see this purchase. Keep the charge reference in
		// the log and audit trail and hand it to an operator.
		logrus.WithError(err).WithFields(logrus.Fields{
			"transaction_id":    txRecord.ID,
			"payment_reference": charge.Reference,
		}).Error("Charge succeeded but transaction could not be marked processing")
		if markErr := s.store.MarkRequiresIntervention(ctx, txRecord.ID); markErr != nil {
			logrus.WithError(markErr).WithField("transaction_id", txRecord.ID).Error("Failed to flag transaction for intervention")
		}
		s.recordAudit(userID, models.AuditActionInterventionRequired, txRecord.ID, models.JSONB{
			"payment_reference": charge.Reference,
			"reason":            "payment collected but transaction not marked processing",
		})
		return nil, fmt.Errorf("failed to record collected payment: %w", err)
	}
	txRecord.Status = models.TransactionStatusProcessing
	txRecord.PaymentReference = charge.Reference

	return s.transferAndCommit(ctx, txRecord, user, property)
}

// RetryLedgerTransfer re-enters a parked saga at the transfer step. The
// transfer reuses the transaction ID as its idempotency key, so a transfer
// that actually went through on a timed-out earlier attempt is deduplicated
// by the ledger rather than repeated.
func (s *InvestmentService) RetryLedgerTransfer(ctx context.Context, transactionID uuid.UUID) (*PurchaseResult, error) {
	txRecord, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !txRecord.AwaitingLedgerTransfer() {
		return nil, &InvalidStateError{TransactionID: transactionID.String(), State: string(txRecord.Status)}
	}
	if txRecord.RequiresIntervention {
		return nil, &InvalidStateError{TransactionID: transactionID.String(), State: "requires_intervention"}
	}

	user, err := s.store.GetUser(ctx, txRecord.UserID)
	if err != nil {
		return nil, err
	}
	property, err := s.store.GetProperty(ctx, txRecord.PropertyID)
	if err != nil {
		return nil, err
	}

	return s.transferAndCommit(context.WithoutCancel(ctx), txRecord, user, property)
}

// RetryLedgerTransferForUser verifies the caller owns the transaction before
// re-entering the saga. A mismatch reads the same as an unknown transaction.
func (s *InvestmentService) RetryLedgerTransferForUser(ctx context.Context, userID, transactionID uuid.UUID) (*PurchaseResult, error) {
	txRecord, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txRecord.UserID != userID {
		return nil, &NotFoundError{Resource: "transaction", ID: transactionID.String()}
	}
	return s.RetryLedgerTransfer(ctx, transactionID)
}

// transferAndCommit runs the back half of the saga: ledger transfer, then the
// atomic reserve-and-merge. On a retryable transfer failure the purchase is
// parked in pending_ledger_transfer instead of refunded, because the transfer
// outcome is unknown and the idempotency key makes a later retry safe.
func (s *InvestmentService) transferAndCommit(ctx context.Context, txRecord *models.Transaction, user *models.User, property *models.Property) (*PurchaseResult, error) {
	transferCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.Ledger.TransferTimeout)*time.Second)
	defer cancel()

	result, err := s.transfers.Transfer(transferCtx, &TransferRequest{
		IdempotencyKey: txRecord.ID.String(),
		FromTreasury:   property.TreasuryAccount,
		ToAccount:      user.WalletAddress,
		TokenID:        property.LedgerTokenID,
		Amount:         txRecord.TokenAmount,
	})
	if err != nil {
		return nil, s.parkTransfer(ctx, txRecord, user, property, err)
	}

	investment, err := s.store.ReserveAndCommit(ctx, &CommitParams{
		TransactionID: txRecord.ID,
		UserID:        txRecord.UserID,
		PropertyID:    txRecord.PropertyID,
		TokenAmount:   txRecord.TokenAmount,
		PricePerToken: txRecord.PricePerToken,
		TransferRef:   result.TransferRef,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientTokens) {
			return nil, s.compensate(ctx, txRecord, user, property)
		}
		return nil, err
	}

	now := time.Now()
	txRecord.Status = models.TransactionStatusCompleted
	txRecord.BlockchainTxID = result.TransferRef
	txRecord.ProcessedAt = &now

	s.recordAudit(txRecord.UserID, models.AuditActionPurchaseCompleted, txRecord.ID, models.JSONB{
		"property_id":  property.ID.String(),
		"token_amount": txRecord.TokenAmount,
		"net_amount":   txRecord.NetAmount,
		"transfer_ref": result.TransferRef,
	})
	s.notify(func(n Notifier) error {
		return n.SendPurchaseConfirmation(user, property, txRecord)
	})

	return &PurchaseResult{Transaction: txRecord, Investment: investment}, nil
}

// parkTransfer records a paid purchase whose token transfer did not complete
// and surfaces the transfer error to the caller. The transaction stays in
// processing; tokens are never reserved until a transfer succeeds.
func (s *InvestmentService) parkTransfer(ctx context.Context, txRecord *models.Transaction, user *models.User, property *models.Property, cause error) error {
	var transferErr *LedgerTransferError
	if !errors.As(cause, &transferErr) {
		transferErr = &LedgerTransferError{TransactionID: txRecord.ID.String(), Retryable: true, Err: cause}
	}

	// The local attempt counter mirrors the durable bump.
	if _, err := s.store.MarkPendingLedgerTransfer(ctx, txRecord.ID); err != nil {
		logrus.WithError(err).WithField("transaction_id", txRecord.ID).Error("Failed to park transaction pending transfer")
	} else {
		txRecord.TransferAttempts++
	}

	s.recordAudit(txRecord.UserID, models.AuditActionTransferPending, txRecord.ID, models.JSONB{
		"property_id": property.ID.String(),
		"attempts":    txRecord.TransferAttempts,
		"retryable":   transferErr.Retryable,
		"cause":       transferErr.Err.Error(),
	})

	if !transferErr.Retryable || txRecord.TransferAttempts >= s.config.Sweeper.MaxAttempts {
		if err := s.store.MarkRequiresIntervention(ctx, txRecord.ID); err != nil {
			logrus.WithError(err).WithField("transaction_id", txRecord.ID).Error("Failed to flag transaction for intervention")
		}
		txRecord.RequiresIntervention = true
		s.recordAudit(txRecord.UserID, models.AuditActionInterventionRequired, txRecord.ID, models.JSONB{
			"attempts":  txRecord.TransferAttempts,
			"retryable": transferErr.Retryable,
		})
	} else {
		s.notify(func(n Notifier) error {
			return n.SendTransferPending(user, property, txRecord)
		})
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txRecord.ID,
		"attempts":       txRecord.TransferAttempts,
		"retryable":      transferErr.Retryable,
	}).Warn("Ledger transfer did not complete, purchase parked")

	return transferErr
}

// compensate refunds a charge whose purchase lost the supply race and marks
// the transaction failed. If the refund itself fails the transaction stays in
// processing and is flagged for manual intervention.
func (s *InvestmentService) compensate(ctx context.Context, txRecord *models.Transaction, user *models.User, property *models.Property) error {
	const reason = "insufficient property tokens"

	if err := s.gateway.Refund(ctx, txRecord.PaymentReference, txRecord.NetAmount, reason); err != nil {
		logrus.WithError(err).WithField("transaction_id", txRecord.ID).Error("Compensating refund failed")
		if markErr := s.store.MarkRequiresIntervention(ctx, txRecord.ID); markErr != nil {
			logrus.WithError(markErr).WithField("transaction_id", txRecord.ID).Error("Failed to flag transaction for intervention")
		}
		s.recordAudit(txRecord.UserID, models.AuditActionInterventionRequired, txRecord.ID, models.JSONB{
			"reason": "refund failed after supply conflict",
		})
		return &ConcurrencyConflictError{
			PropertyID: property.ID.String(),
			Requested:  txRecord.TokenAmount,
			Refunded:   false,
		}
	}

	// Failing the transaction and restoring a parked investment are one
	// store operation; the holding never stays pending after its refund.
	if err := s.store.MarkTransactionCompensated(ctx, txRecord.ID, reason+", payment refunded"); err != nil {
		logrus.WithError(err).WithField("transaction_id", txRecord.ID).Error("Failed to mark transaction compensated after refund")
	}
	txRecord.Status = models.TransactionStatusFailed

	s.recordAudit(txRecord.UserID, models.AuditActionCompensatingRefund, txRecord.ID, models.JSONB{
		"property_id": property.ID.String(),
		"amount":      txRecord.NetAmount,
	})
	s.notify(func(n Notifier) error {
		return n.SendRefundNotification(user, property, txRecord, reason)
	})

	return &ConcurrencyConflictError{
		PropertyID: property.ID.String(),
		Requested:  txRecord.TokenAmount,
		Refunded:   true,
	}
}

func (s *InvestmentService) recordAudit(userID uuid.UUID, action string, txID uuid.UUID, details models.JSONB) {
	if s.audit != nil {
		s.audit.Record(userID, action, txID, details)
	}
}

func (s *InvestmentService) notify(send func(Notifier) error) {
	if s.notifier == nil {
		return
	}
	n := s.notifier
	go func() {
		if err := send(n); err != nil {
			logrus.WithError(err).Warn("Failed to send settlement notification")
		}
	}()
}
